// Package auth manages customer and admin accounts.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

var errInvalidCredentials = apperrors.Unauthorized("Invalid username or password")

// Users is the account storage the service needs.
type Users interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UserConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUserProfile(ctx context.Context, u *models.User) error
	UpdateUserCredentials(ctx context.Context, id int64, passwordHash string, isAdmin bool) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type Service struct {
	Users Users
}

func NewService(users Users) *Service {
	return &Service{Users: users}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Phone           string
	Address         string
}

// Register validates r and creates a non-admin account.
func (svc *Service) Register(ctx context.Context, r Registration) (*models.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	fields := make(map[string]string)
	if len(r.Username) < MinUsernameLength {
		fields["username"] = "Username must be at least 3 characters."
	}
	if !models.IsValidEmail(r.Email) {
		fields["email"] = "Please enter a valid email address."
	}
	if len(r.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 6 characters."
	} else if r.Password != r.ConfirmPassword {
		fields["confirm_password"] = "Passwords do not match."
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid registration", fields)
	}

	usernameTaken, emailTaken, err := svc.Users.UserConflicts(ctx, r.Username, r.Email)
	if err != nil {
		return nil, apperrors.Persistence("failed to check account", err)
	}
	if usernameTaken {
		fields["username"] = "Username is already taken."
	}
	if emailTaken {
		fields["email"] = "Email is already registered."
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid registration", fields)
	}

	hash, err := HashPassword(r.Password)
	if err != nil {
		return nil, apperrors.Persistence("failed to hash password", err)
	}
	u := &models.User{
		Username:  r.Username,
		Email:     r.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Phone:     strings.TrimSpace(r.Phone),
		Address:   strings.TrimSpace(r.Address),
	}
	if err := svc.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Validation("invalid registration", map[string]string{"username": "Username or email is already registered."})
		}
		return nil, apperrors.Persistence("failed to create account", err)
	}

	slog.Info("User registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Authenticate checks the credentials of a user identified by username or
// email and records the login time.
func (svc *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperrors.Validation("missing credentials", map[string]string{"login": "Please enter your username or email and password."})
	}

	u, err := svc.Users.GetUserByLogin(ctx, login)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load account", err)
	}
	if !CheckPassword(u.Password, password) {
		slog.Warn("Failed login attempt", "login", login)
		return nil, errInvalidCredentials
	}

	at := time.Now().UTC()
	if err := svc.Users.TouchLastLogin(ctx, u.ID, at); err != nil {
		slog.Error("Failed to record last login", "user_id", u.ID, "error", err)
	} else {
		u.LastLogin = &at
	}
	return u, nil
}

// EnsureAdmin creates the configured admin account, or promotes it and
// refreshes its password when it already exists.
func (svc *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	if email == "" {
		email = username + "@localhost.local"
	}

	u, err := svc.Users.GetUserByLogin(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if u == nil {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		u = &models.User{Username: username, Email: email, Password: hash, IsAdmin: true}
		if err := svc.Users.CreateUser(ctx, u); err != nil {
			return nil, err
		}
		slog.Info("Admin user created", "username", username)
		return u, nil
	}

	if u.IsAdmin && CheckPassword(u.Password, password) {
		return u, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := svc.Users.UpdateUserCredentials(ctx, u.ID, hash, true); err != nil {
		return nil, err
	}
	u.Password = hash
	u.IsAdmin = true
	slog.Info("Admin user updated", "username", username)
	return u, nil
}

type Profile struct {
	FirstName string
	LastName  string
	Phone     string
	Address   string
}

func (svc *Service) UpdateProfile(ctx context.Context, userID int64, p Profile) (*models.User, error) {
	u, err := svc.Users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user", err)
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load account", err)
	}

	u.FirstName = strings.TrimSpace(p.FirstName)
	u.LastName = strings.TrimSpace(p.LastName)
	u.Phone = strings.TrimSpace(p.Phone)
	u.Address = strings.TrimSpace(p.Address)
	if err := svc.Users.UpdateUserProfile(ctx, u); err != nil {
		return nil, apperrors.Persistence("failed to update profile", err)
	}
	return u, nil
}
