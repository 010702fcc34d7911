package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"safetrack.org/internal/account"
	"safetrack.org/internal/auth"
	"safetrack.org/internal/ids"
)

// AccountStore implements account.Store over Postgres. Permission and claim
// maps travel as jsonb.
type AccountStore struct {
	db *sql.DB
}

var _ account.Store = (*AccountStore)(nil)

const userColumns = `id, email, display_name, role, status, permissions, custom_claims,
	password_hash, token_version, last_login_at, created_at, updated_at`

func (s *AccountStore) Create(ctx context.Context, u *account.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt

	perms, err := json.Marshal(orEmptyBool(u.Permissions))
	if err != nil {
		return err
	}
	claims, err := json.Marshal(orEmptyAny(u.CustomClaims))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into users (id, email, display_name, role, status, permissions, custom_claims,
			password_hash, token_version, last_login_at, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, u.ID, u.Email, u.DisplayName, string(u.Role), string(u.Status), perms, claims,
		u.PasswordHash, u.TokenVersion, u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return account.ErrEmailTaken
	}
	return err
}

func (s *AccountStore) Find(ctx context.Context, id string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (account.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]account.User, int, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+` from users order by id asc limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []account.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (s *AccountStore) UpdateProfile(ctx context.Context, id string, upd account.ProfileUpdate) (account.User, error) {
	if upd.DisplayName != nil {
		row := s.db.QueryRowContext(ctx, `
			update users set display_name=$2, updated_at=now()
			where id=$1
			returning `+userColumns, id, strings.TrimSpace(*upd.DisplayName))
		return scanUser(row)
	}
	return s.Find(ctx, id)
}

func (s *AccountStore) SetRole(ctx context.Context, id string, role auth.Role) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `
		update users set role=$2, updated_at=now()
		where id=$1
		returning `+userColumns, id, string(role))
	return scanUser(row)
}

func (s *AccountStore) SetStatus(ctx context.Context, id string, status account.Status) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `
		update users set status=$2, updated_at=now()
		where id=$1
		returning `+userColumns, id, string(status))
	return scanUser(row)
}

func (s *AccountStore) SetClaims(ctx context.Context, id string, claims map[string]any) (account.User, error) {
	buf, err := json.Marshal(orEmptyAny(claims))
	if err != nil {
		return account.User{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		update users set custom_claims=$2, updated_at=now()
		where id=$1
		returning `+userColumns, id, buf)
	return scanUser(row)
}

func (s *AccountStore) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set password_hash=$2, updated_at=now() where id=$1
	`, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *AccountStore) BumpTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `
		update users set token_version = token_version + 1, updated_at=now()
		where id=$1
		returning token_version
	`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, account.ErrNotFound
	}
	return version, err
}

func (s *AccountStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users set last_login_at=$2, updated_at=now() where id=$1
	`, id, at.UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (account.User, error) {
	var (
		u         account.User
		role      string
		status    string
		perms     []byte
		claims    []byte
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &role, &status, &perms, &claims,
		&u.PasswordHash, &u.TokenVersion, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.User{}, account.ErrNotFound
	}
	if err != nil {
		return account.User{}, err
	}
	u.Role = auth.Role(role)
	u.Status = account.Status(status)
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &u.Permissions); err != nil {
			return account.User{}, err
		}
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &u.CustomClaims); err != nil {
			return account.User{}, err
		}
	}
	if lastLogin.Valid {
		at := lastLogin.Time.UTC()
		u.LastLoginAt = &at
	}
	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func orEmptyBool(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}

func orEmptyAny(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
