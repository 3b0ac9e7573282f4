package auth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	db, err := store.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewService(db), db
}

func validRegistration() Registration {
	return Registration{
		Username: "karim", Email: "karim@example.com",
		Password: "secret1", ConfirmPassword: "secret1", Phone: "0666",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "secret1", u.Password)

	byName, err := svc.Authenticate(ctx, "karim", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	require.NotNil(t, byName.LastLogin)

	byEmail, err := svc.Authenticate(ctx, "KARIM@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = svc.Authenticate(ctx, "karim", "wrong-password")
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))
	_, err = svc.Authenticate(ctx, "nobody", "secret1")
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))
	_, err = svc.Authenticate(ctx, "", "")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Registration)
		field  string
	}{
		{"short username", func(r *Registration) { r.Username = "ab" }, "username"},
		{"bad email", func(r *Registration) { r.Email = "karim" }, "email"},
		{"short password", func(r *Registration) { r.Password, r.ConfirmPassword = "12345", "12345" }, "password"},
		{"mismatch", func(r *Registration) { r.ConfirmPassword = "secret2" }, "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			r := validRegistration()
			tt.mutate(&r)

			_, err := svc.Register(context.Background(), r)
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	r := validRegistration()
	r.Username = "other"
	r.Email = "Karim@Example.com"
	_, err = svc.Register(ctx, r)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "email")
	assert.NotContains(t, appErr.Fields, "username")
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, "admin", "", "admin123")
	require.NoError(t, err)
	assert.True(t, first.IsAdmin)

	second, err := svc.EnsureAdmin(ctx, "admin", "", "admin123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.EnsureAdmin(ctx, "admin", "", "rotated-pass")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "admin", "admin123")
	assert.Error(t, err)
	u, err := svc.Authenticate(ctx, "admin", "rotated-pass")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	u, err := svc.EnsureAdmin(ctx, "karim", "", "secret1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	again, err := svc.Authenticate(ctx, "karim", "secret1")
	require.NoError(t, err)
	assert.True(t, again.IsAdmin)
}

func TestUpdateProfile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, u.ID, Profile{FirstName: " Karim ", Address: "Alger centre"})
	require.NoError(t, err)

	got, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Karim", got.FirstName)
	assert.Equal(t, "Alger centre", got.Address)
	assert.Empty(t, got.Phone)

	_, err = svc.UpdateProfile(ctx, 999, Profile{})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestTokenIssuer(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)

	token, expiresAt, err := ti.Issue(7, "admin", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.Admin)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestTokenIssuerRejects(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	token, _, err := ti.Issue(1, "admin", true)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other-secret", time.Hour).Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := ti.Parse(strings.TrimSuffix(token, token[len(token)-2:]) + "xx")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "admin", Admin: true})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ti.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
