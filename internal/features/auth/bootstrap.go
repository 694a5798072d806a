package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"keeper/internal/domain"
)

const issuer = "keeper"

var ErrAdminExists = errors.New("an admin account already exists")

// AdminStore is the subset of the users repository bootstrap needs.
type AdminStore interface {
	HasAdmin(ctx context.Context) (bool, error)
	CreateUser(ctx context.Context, u domain.User) (int64, error)
}

type BootstrapResult struct {
	UserID int
	// OTPURL is the otpauth:// URL to enroll in an authenticator app.
	OTPURL string
}

// BootstrapAdmin creates the first admin with a bcrypt password hash and a
// fresh TOTP secret. It refuses to run once any admin exists.
func BootstrapAdmin(ctx context.Context, store AdminStore, email, password string) (BootstrapResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return BootstrapResult{}, errors.New("admin email and password are required")
	}
	exists, err := store.HasAdmin(ctx)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return BootstrapResult{}, ErrAdminExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("hash password: %w", err)
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: email})
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("generate totp secret: %w", err)
	}
	id, err := store.CreateUser(ctx, domain.User{
		Email:        email,
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
		TOTPSecret:   key.Secret(),
	})
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("create admin: %w", err)
	}
	return BootstrapResult{UserID: int(id), OTPURL: key.URL()}, nil
}
