package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/auth"
	"github.com/sakif/memory-journal/internal/repository/memstore"
	"github.com/sakif/memory-journal/internal/validate"
)

const testSecret = "a-test-secret-that-is-at-least-32-bytes-long"

func newTestAuthService(t *testing.T, withTokens bool) (*AuthService, *memstore.Store) {
	t.Helper()
	var tokens *auth.TokenService
	if withTokens {
		var err error
		tokens, err = auth.NewTokenService(testSecret, time.Hour)
		if err != nil {
			t.Fatalf("NewTokenService() error = %v", err)
		}
	}
	store := memstore.New()
	svc := NewAuthService(store, tokens, auth.NewPasswordServiceWithCost(bcrypt.MinCost), validate.New(), discardLogger())
	return svc, store
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister_WithPassword(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	res, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Ada@Example.com",
		Password: "lovelace1815",
	}, "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if res.User.ID == "" {
		t.Error("expected a generated user ID")
	}
	if res.User.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lowercased", res.User.Email)
	}
	if res.User.Name != "ada" {
		t.Errorf("Name = %q, want local part of email", res.User.Name)
	}
	if res.User.AvatarURL != "https://ui-avatars.com/api/?name=ada&background=random" {
		t.Errorf("AvatarURL = %q", res.User.AvatarURL)
	}
	if res.User.PasswordHash == "" || res.User.PasswordHash == "lovelace1815" {
		t.Error("password should be stored hashed")
	}

	userID, err := svc.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != res.User.ID {
		t.Errorf("token subject = %q, want %q", userID, res.User.ID)
	}
}

func TestRegister_WithoutTokens(t *testing.T) {
	svc, _ := newTestAuthService(t, false)

	res, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "password1"}, "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if res.Token != "" {
		t.Errorf("Token = %q, want none when sessions are disabled", res.Token)
	}
	if _, err := svc.ValidateToken("anything"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("ValidateToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, false)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"bad email", RegisterInput{Email: "nope", Password: "password1"}},
		{"no password", RegisterInput{Email: "a@example.com"}},
		{"short password", RegisterInput{Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t, false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"}, ""); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Email: "A@example.com", Password: "password2"}, "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

// TestRegister_ExistingID covers external IDs: the signed-in owner refreshes
// the profile, anyone else conflicts.
func TestRegister_ExistingID(t *testing.T) {
	svc, _ := newTestAuthService(t, false)
	ctx := context.Background()

	in := RegisterInput{ID: "ext-1", Email: "ext@example.com", Name: "Ext"}
	if _, err := svc.Register(ctx, in, ""); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := svc.Register(ctx, in, "someone-else"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	in.Name = "Renamed"
	res, err := svc.Register(ctx, in, "ext-1")
	if err != nil {
		t.Fatalf("Register() by owner error = %v", err)
	}
	if res.User.Name != "Renamed" {
		t.Errorf("Name = %q, want %q", res.User.Name, "Renamed")
	}
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService(t, true)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"}, "")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	res, err := svc.Login(ctx, "a@example.com", "password1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.User.ID != reg.User.ID || res.Token == "" {
		t.Errorf("Login() = %+v, want user %s with a token", res, reg.User.ID)
	}

	for _, tc := range []struct{ email, password string }{
		{"a@example.com", "wrong-password"},
		{"nobody@example.com", "password1"},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("Login(%q) error = %v, want ErrUnauthorized", tc.email, err)
		}
	}
}

// =========================================================================
// GITHUB
// =========================================================================

func TestLoginOrRegisterGitHub_CreatesThenUpdates(t *testing.T) {
	svc, store := newTestAuthService(t, false)
	ctx := context.Background()

	profile := &auth.GitHubProfile{ID: 42, Login: "octocat", Email: "Octo@Example.com", AvatarURL: "https://a/1.png"}
	res, err := svc.LoginOrRegisterGitHub(ctx, profile)
	if err != nil {
		t.Fatalf("first login error = %v", err)
	}
	if res.User.ID != "github:42" || res.User.Provider != "github" {
		t.Errorf("user = %+v, want github:42 from github", res.User)
	}

	profile.AvatarURL = "https://a/2.png"
	if _, err := svc.LoginOrRegisterGitHub(ctx, profile); err != nil {
		t.Fatalf("second login error = %v", err)
	}
	stored, err := store.GetUserByID(ctx, "github:42")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if stored.AvatarURL != "https://a/2.png" {
		t.Errorf("AvatarURL = %q, want refreshed", stored.AvatarURL)
	}
}

func TestLoginOrRegisterGitHub_LinksExistingEmail(t *testing.T) {
	svc, _ := newTestAuthService(t, false)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "octo@example.com", Password: "password1"}, "")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	res, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubProfile{ID: 7, Login: "octo", Email: "octo@example.com"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Errorf("user ID = %q, want existing %q", res.User.ID, reg.User.ID)
	}
}

// =========================================================================
// PROFILE
// =========================================================================

func TestUpdateUser(t *testing.T) {
	svc, _ := newTestAuthService(t, false)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"}, "")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	id := reg.User.ID

	name := "  Ada  "
	u, err := svc.UpdateUser(ctx, id, id, UpdateUserInput{Name: &name})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if u.Name != "Ada" {
		t.Errorf("Name = %q, want %q", u.Name, "Ada")
	}

	if _, err := svc.UpdateUser(ctx, "intruder", id, UpdateUserInput{Name: &name}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}

	blank := " "
	if _, err := svc.UpdateUser(ctx, id, id, UpdateUserInput{Name: &blank}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestGetUser(t *testing.T) {
	svc, _ := newTestAuthService(t, false)

	if _, err := svc.GetUser(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if _, err := svc.GetUser(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
