package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"safetrack.org/internal/account"
	"safetrack.org/internal/audit"
	"safetrack.org/internal/auth"
	"safetrack.org/internal/blob"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/httpapi"
	"safetrack.org/internal/identity"
	"safetrack.org/internal/incident"
	"safetrack.org/internal/obs"
	"safetrack.org/internal/report"
	"safetrack.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		userStore     account.Store
		incidentStore incident.Store
		auditStore    audit.Store
		probe         httpapi.ReadyProbe
		pgStore       *pg.Store
	)
	if dsn := os.Getenv("SAFETRACK_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()
		userStore = pgStore.Accounts()
		incidentStore = pgStore.Incidents()
		auditStore = pgStore.Audit()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("SAFETRACK_PG_DSN not set; using in-memory stores")
		userStore = account.NewInMemory()
		incidentStore = incident.NewInMemory()
		auditStore = audit.NewInMemory()
	}

	var blobs blob.Store
	if dir := os.Getenv("SAFETRACK_BLOB_DIR"); dir != "" {
		var err error
		blobs, err = blob.NewFS(dir)
		if err != nil {
			log.Fatalf("open blob store: %v", err)
		}
	} else {
		blobs = blob.NewInMemory()
	}

	provider, err := identity.NewDirectoryProvider(userStore)
	if err != nil {
		log.Fatalf("identity provider: %v", err)
	}
	accountSvc, err := account.NewService(userStore, provider, incidentStore)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}
	incidentSvc, err := incident.NewService(incidentStore)
	if err != nil {
		log.Fatalf("incident service: %v", err)
	}
	reportSvc, err := report.NewService(blobs)
	if err != nil {
		log.Fatalf("report service: %v", err)
	}
	resolver, err := auth.NewResolver(account.NewRoleSource(userStore))
	if err != nil {
		log.Fatalf("role resolver: %v", err)
	}
	recorder := audit.NewRecorder(auditStore)
	runner, err := guard.NewRunner(resolver, recorder)
	if err != nil {
		log.Fatalf("guard runner: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		ReadyProbe: probe,
		Version:    version,
		Runner:     runner,
		Recorder:   recorder,
		Accounts:   accountSvc,
		Incidents:  incidentSvc,
		Reports:    reportSvc,
	})

	addr := os.Getenv("SAFETRACK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting safetrack-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Optional gRPC health listener for probes that prefer gRPC.
	grpcSrv := httpapi.NewGRPCServer(probe)
	if grpcAddr := os.Getenv("SAFETRACK_GRPC_ADDR"); grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		log.Printf("Starting gRPC health on %s", grpcAddr)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
