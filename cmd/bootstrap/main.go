// Command bootstrap seeds the first super_admin account. It talks straight to
// the store, bypassing the HTTP layer, because no caller with sufficient
// privileges exists yet on a fresh deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"safetrack.org/internal/account"
	"safetrack.org/internal/auth"
	"safetrack.org/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "email for the super_admin account")
	password := flag.String("password", "", "initial password (min 10 characters)")
	name := flag.String("name", "Administrator", "display name")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || len(*password) < 10 {
		fmt.Fprintln(os.Stderr, "usage: bootstrap -email admin@example.com -password <min 10 chars> [-name ...]")
		os.Exit(2)
	}

	dsn := os.Getenv("SAFETRACK_PG_DSN")
	if dsn == "" {
		log.Fatal("SAFETRACK_PG_DSN is required: an in-memory store would vanish with the process")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	u := account.User{
		Email:        *email,
		DisplayName:  *name,
		Role:         auth.RoleSuperAdmin,
		Status:       account.StatusActive,
		Permissions:  account.DefaultPermissions(),
		CustomClaims: map[string]any{"role": string(auth.RoleSuperAdmin)},
		PasswordHash: hash,
	}
	if err := store.Accounts().Create(ctx, &u); err != nil {
		log.Fatalf("create super_admin: %v", err)
	}

	fmt.Printf("created super_admin %s (%s)\n", u.ID, u.Email)
}
