package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// invalidCredentials is deliberately the same for an unknown email and a
// wrong password.
const invalidCredentials = "invalid email or password"

// AuthService registers and signs in profiles and issues the session JWT.
type AuthService struct {
	profiles  repository.ProfileRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	profiles repository.ProfileRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is what every successful sign-in returns.
type AuthResult struct {
	User  *model.Profile `json:"user"`
	Token string         `json:"token"`
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// ProfilePatch updates only the non-nil fields.
type ProfilePatch struct {
	Username  *string
	AvatarURL *string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password is too long")
	}

	profile := &model.Profile{Email: email, Username: username, PasswordHash: hash}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create profile", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("registering: %w", err)
	}

	s.logger.Info("profile registered",
		slog.String("userID", profile.ID),
		slog.String("username", profile.Username),
	)
	return s.issue(profile)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("logging in: %w", err)
	}
	// GitHub-only accounts have no password to check against.
	if profile.PasswordHash == "" {
		return nil, apperror.Unauthorized(invalidCredentials)
	}
	if err := s.passwords.Verify(profile.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("login rejected", slog.String("userID", profile.ID))
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("logging in: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", profile.ID))
	return s.issue(profile)
}

// LoginOrRegisterGitHub signs in the profile linked to a GitHub account,
// creating or linking one on first use.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	githubID := ghUser.ID
	profile := &model.Profile{
		GitHubID:  &githubID,
		Email:     strings.ToLower(ghUser.Email),
		Username:  ghUser.Login,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.profiles.UpsertGitHubProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("service/auth: upserting profile (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", profile.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(profile)
}

func (s *AuthService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if id == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	profile, err := s.profiles.GetProfileByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching profile %s: %w", id, err)
	}
	return profile, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*model.Profile, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		profile.Username = username
	}
	if patch.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
	}

	if err := s.profiles.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("service/auth: updating profile %s: %w", id, err)
	}
	return profile, nil
}

func (s *AuthService) issue(profile *model.Profile) (*AuthResult, error) {
	token, err := s.tokens.Generate(profile.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", profile.ID, err)
	}
	return &AuthResult{User: profile, Token: token}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if email == "" || err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "a valid email address is required")
	}
	return email, nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	return nil
}
