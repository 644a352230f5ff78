// Package userstore implements the account-lookup collaborator behind the
// bearer-token auth middleware. It sits outside the job queue core but
// shares the same database/sql connection/dialect machinery as
// internal/storage/metadata.
package userstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/models"
	"github.com/scorbettUM/dcrx-kv/internal/storage/metadata"
	"golang.org/x/crypto/bcrypt"
)

// Store implements interfaces.UserStore over database/sql.
type Store struct {
	db          *sql.DB
	placeholder metadata.Placeholder
	logger      *common.Logger
}

// New opens (or reuses the dialect rules for) the users table's backing
// database.
func New(cfg *common.DatabaseConfig, poolSize int, logger *common.Logger) (*Store, error) {
	db, placeholder, _, err := metadata.OpenDatabase(cfg, poolSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, placeholder: placeholder, logger: logger}, nil
}

// Init creates the users table if absent.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		disabled INTEGER NOT NULL DEFAULT 0,
		hashed_password TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("userstore: init: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var disabled int
	if err := row.Scan(
		&account.ID, &account.Username, &account.FirstName, &account.LastName,
		&account.Email, &disabled, &account.HashedPassword,
	); err != nil {
		return nil, err
	}
	account.Disabled = disabled != 0
	return account, nil
}

// GetByUsername looks up an account by its unique username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := fmt.Sprintf(
		"SELECT id, username, first_name, last_name, email, disabled, hashed_password FROM users WHERE username = %s",
		s.placeholder(1),
	)
	account, err := s.scanAccount(s.db.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("userstore: account %q not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: get by username: %w", err)
	}
	return account, nil
}

// GetByID looks up an account by its unique ID.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := fmt.Sprintf(
		"SELECT id, username, first_name, last_name, email, disabled, hashed_password FROM users WHERE id = %s",
		s.placeholder(1),
	)
	account, err := s.scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("userstore: account %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: get by id: %w", err)
	}
	return account, nil
}

// Create inserts a new account, hashing password with bcrypt.
func (s *Store) Create(ctx context.Context, account *models.Account, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("userstore: hash password: %w", err)
	}
	account.HashedPassword = string(hashed)

	disabled := 0
	if account.Disabled {
		disabled = 1
	}

	placeholders := make([]string, 7)
	for i := range placeholders {
		placeholders[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf(
		"INSERT INTO users (id, username, first_name, last_name, email, disabled, hashed_password) VALUES (%s)",
		joinComma(placeholders),
	)
	_, err = s.db.ExecContext(ctx, query,
		account.ID, account.Username, account.FirstName, account.LastName,
		account.Email, disabled, account.HashedPassword,
	)
	if err != nil {
		return fmt.Errorf("userstore: create: %w", err)
	}
	return nil
}

// VerifyPassword looks up the account by username and checks password
// against its stored bcrypt hash.
func (s *Store) VerifyPassword(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account.Disabled {
		return nil, fmt.Errorf("userstore: account %q is disabled", username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(password)); err != nil {
		return nil, fmt.Errorf("userstore: invalid credentials for %q", username)
	}
	return account, nil
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

var _ interfaces.UserStore = (*Store)(nil)
