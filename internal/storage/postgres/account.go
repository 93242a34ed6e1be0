package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/knw/internal/game/actor"
)

// Privilege levels. Game masters and admins may edit every record; only
// admins may change roles.
const (
	RolePlayer = "player"
	RoleGM     = "gm"
	RoleAdmin  = "admin"
)

// ValidRole reports whether role is a recognised privilege level.
func ValidRole(role string) bool {
	switch role {
	case RolePlayer, RoleGM, RoleAdmin:
		return true
	}
	return false
}

var (
	// ErrInvalidRole is returned when an unrecognised role string is supplied.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAccountNotFound is returned when an account lookup yields no results.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when a username is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const accountColumns = `id, username, password_hash, role, created_at`

// Account is a registered telnet user.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// UserID is the id recorded in document owner lists.
func (a Account) UserID() string {
	return strconv.FormatInt(a.ID, 10)
}

// User returns the permission identity of the account.
func (a Account) User() actor.User {
	return actor.User{
		ID:   a.UserID(),
		Name: a.Username,
		GM:   a.Role == RoleGM || a.Role == RoleAdmin,
	}
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// AccountRepository stores accounts in the accounts table.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates an AccountRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create registers username with a bcrypt hash of password and the player role.
//
// Precondition: username and password must be non-empty.
// Postcondition: Returns the stored Account, or ErrAccountExists if the username is taken.
func (r *AccountRepository) Create(ctx context.Context, username, password string) (Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("hashing password: %w", err)
	}
	acct, err := scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO accounts (username, password_hash) VALUES ($1, $2)
		 RETURNING `+accountColumns,
		username, hash))
	switch {
	case isDuplicateKeyError(err):
		return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, username)
	case err != nil:
		return Account{}, fmt.Errorf("inserting account %s: %w", username, err)
	}
	return acct, nil
}

// Authenticate returns the account for username when password matches its hash.
//
// Postcondition: Returns ErrAccountNotFound for an unknown user and
// ErrInvalidCredentials for a wrong password.
func (r *AccountRepository) Authenticate(ctx context.Context, username, password string) (Account, error) {
	acct, err := r.GetByUsername(ctx, username)
	if err != nil {
		return Account{}, err
	}
	if !CheckPassword(password, acct.PasswordHash) {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// GetByUsername looks up an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return Account{}, fmt.Errorf("querying account %s: %w", username, err)
	}
	return acct, err
}

// SetRole changes the privilege level of an account.
//
// Postcondition: Returns ErrInvalidRole or ErrAccountNotFound without writing anything.
func (r *AccountRepository) SetRole(ctx context.Context, accountID int64, role string) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return r.updateOne(ctx, `UPDATE accounts SET role = $2 WHERE id = $1`, accountID, role)
}

// ChangePassword replaces the password of username after verifying the current one.
//
// Precondition: next must be non-empty.
// Postcondition: The old password no longer authenticates.
func (r *AccountRepository) ChangePassword(ctx context.Context, username, current, next string) error {
	acct, err := r.Authenticate(ctx, username, current)
	if err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return r.updateOne(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, acct.ID, hash)
}

func (r *AccountRepository) updateOne(ctx context.Context, sql string, id int64, value string) error {
	tag, err := r.db.Exec(ctx, sql, id, value)
	if err != nil {
		return fmt.Errorf("updating account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
