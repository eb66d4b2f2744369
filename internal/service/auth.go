package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/auth"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

// AuthService owns accounts: registration, password and GitHub sign-in, and
// profile updates.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService (JWT), PasswordService (bcrypt)
//
// tokens may be nil when no JWT secret is configured; sign-in then succeeds
// without issuing a session token.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	emails    EmailValidator
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	emails EmailValidator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		emails:    emails,
		logger:    logger,
	}
}

// AuthResult bundles the account and its session token so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput describes a new account. ID is set when the identity comes
// from an external provider; otherwise one is generated and Password is
// required.
type RegisterInput struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Password  string
	Provider  string
}

// Register creates an account. Re-registering an external ID the caller is
// already signed in as refreshes the profile instead; anyone else gets a
// Conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, callerID string) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.emails.Email(in.Email); err != nil {
		return nil, err
	}

	if in.ID != "" {
		existing, err := s.users.GetUserByID(ctx, in.ID)
		switch {
		case err == nil:
			if callerID != existing.ID {
				return nil, apperror.Conflict("this account is already registered")
			}
			return s.refreshProfile(ctx, existing, in)
		case !apperror.IsNotFound(err):
			return nil, fmt.Errorf("service/auth: looking up user %s: %w", in.ID, err)
		}
	} else if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user := &model.User{
		ID:        in.ID,
		Email:     in.Email,
		Name:      in.Name,
		AvatarURL: in.AvatarURL,
		Provider:  in.Provider,
	}
	if user.Name == "" {
		user.Name, _, _ = strings.Cut(in.Email, "@")
	}
	if user.AvatarURL == "" {
		user.AvatarURL = defaultAvatarURL(user.Name)
	}
	if in.Password != "" {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("provider", user.Provider))

	return s.issue(user)
}

func (s *AuthService) refreshProfile(ctx context.Context, user *model.User, in RegisterInput) (*AuthResult, error) {
	if in.Name != "" {
		user.Name = in.Name
	}
	if in.AvatarURL != "" {
		user.AvatarURL = in.AvatarURL
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
	}
	return s.issue(user)
}

// Login checks an email and password. Unknown emails and wrong passwords
// produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if apperror.IsNotFound(err) {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the GitHub account, creating it on first
// use. A verified GitHub email that already belongs to an account signs into
// that account.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, profile *auth.GitHubProfile) (*AuthResult, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: GitHub profile must not be nil")
	}
	incoming := profile.User()
	incoming.Email = strings.ToLower(incoming.Email)

	user, err := s.users.GetUserByID(ctx, incoming.ID)
	if apperror.IsNotFound(err) && incoming.Email != "" {
		user, err = s.users.GetUserByEmail(ctx, incoming.Email)
	}
	switch {
	case err == nil:
		user.AvatarURL = incoming.AvatarURL
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
		}
	case apperror.IsNotFound(err):
		user = incoming
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating GitHub user: %w", err)
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub user: %w", err)
	}

	s.logger.Info("user authenticated via GitHub", slog.String("user_id", user.ID), slog.String("login", profile.Login))
	return s.issue(user)
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "user id is required")
	}
	return s.users.GetUserByID(ctx, id)
}

type UpdateUserInput struct {
	Name      *string
	AvatarURL *string
}

// UpdateUser edits the caller's own profile.
func (s *AuthService) UpdateUser(ctx context.Context, callerID, id string, in UpdateUserInput) (*model.User, error) {
	if callerID != id {
		return nil, apperror.Forbidden("you can only update your own profile")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		user.Name = name
	}
	setTrimmed(&user.AvatarURL, in.AvatarURL)

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user ID a session token was issued to.
func (s *AuthService) ValidateToken(token string) (string, error) {
	if s.tokens == nil {
		return "", apperror.Unauthorized("sessions are disabled")
	}
	return s.tokens.Validate(token)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	if s.tokens == nil {
		return &AuthResult{User: user}, nil
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func defaultAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
