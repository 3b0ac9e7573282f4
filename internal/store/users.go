package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alextreichler/luxora/internal/models"
)

const userColumns = `id, username, email, password, is_admin, first_name, last_name, phone, address, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.IsAdmin, &u.FirstName, &u.LastName,
		&u.Phone, &u.Address, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetUserByLogin finds a user by username or, case-insensitively, by email.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR LOWER(email) = LOWER(?) ORDER BY id LIMIT 1`
	u, err := scanUser(s.queryRow(ctx, query, login, login))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// UserConflicts reports whether username or email are already taken.
func (s *Store) UserConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	err = s.queryRow(ctx, `
		SELECT
			COALESCE(MAX(CASE WHEN username = ? THEN 1 ELSE 0 END), 0),
			COALESCE(MAX(CASE WHEN LOWER(email) = LOWER(?) THEN 1 ELSE 0 END), 0)
		FROM users`, username, email).Scan(&usernameTaken, &emailTaken)
	return usernameTaken, emailTaken, err
}

// CreateUser stores a user whose Password is already hashed.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = now()
	err := s.queryRow(ctx, `
		INSERT INTO users (username, email, password, is_admin, first_name, last_name, phone, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		u.Username, u.Email, u.Password, u.IsAdmin, u.FirstName, u.LastName, u.Phone, u.Address, u.CreatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
	}
	return err
}

func (s *Store) UpdateUserProfile(ctx context.Context, u *models.User) error {
	res, err := s.exec(ctx, `UPDATE users SET first_name = ?, last_name = ?, phone = ?, address = ? WHERE id = ?`,
		u.FirstName, u.LastName, u.Phone, u.Address, u.ID)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserCredentials replaces the password hash and admin flag.
func (s *Store) UpdateUserCredentials(ctx context.Context, id int64, passwordHash string, isAdmin bool) error {
	res, err := s.exec(ctx, `UPDATE users SET password = ?, is_admin = ? WHERE id = ?`, passwordHash, isAdmin, id)
	if err != nil {
		return fmt.Errorf("update user credentials: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
