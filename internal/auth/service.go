package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/api"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	signupPath  = "/auth/signup"
)

var (
	// ErrCancelled is returned when the call timed out or was aborted.
	ErrCancelled = errors.New("auth request cancelled")
	// ErrMissingCredentials is returned before any request when email or password is empty.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrNoAccessToken is returned when the server answered 2xx without a token.
	ErrNoAccessToken = errors.New("response carried no access token")
)

// Service calls the auth endpoints. None of them send an Authorization header.
type Service struct {
	logger  *zap.Logger
	fetcher *api.Fetcher
}

// NewService creates an auth Service over fetcher.
func NewService(logger *zap.Logger, fetcher *api.Fetcher) *Service {
	return &Service{logger: logger, fetcher: fetcher}
}

// Login exchanges email and password for a token pair and profile.
func (s *Service) Login(ctx context.Context, payload LoginPayload) (LoginResult, error) {
	if payload.Email == "" || payload.Password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	var env envelope[LoginResult]
	if err := s.post(ctx, loginPath, payload, &env); err != nil {
		s.logger.Warn("auth.login_failed", zap.String("email", payload.Email), zap.Error(err))
		return LoginResult{}, err
	}
	if env.Data.AccessToken == "" {
		return LoginResult{}, ErrNoAccessToken
	}

	s.logger.Info("auth.login_success",
		zap.Int64("user_id", env.Data.UserID),
		zap.Bool("refresh_issued", env.Data.Refresh() != ""))
	return env.Data, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, errors.New("refresh token is empty")
	}

	var env envelope[TokenPair]
	body := map[string]string{"refresh_token": refreshToken}
	if err := s.post(ctx, refreshPath, body, &env); err != nil {
		s.logger.Warn("auth.refresh_failed", zap.Error(err))
		return TokenPair{}, err
	}
	if env.Data.AccessToken == "" {
		return TokenPair{}, ErrNoAccessToken
	}

	s.logger.Info("auth.refresh_success", zap.Bool("rotated", env.Data.Refresh() != ""))
	return env.Data, nil
}

// Signup registers a new account and returns its user id.
func (s *Service) Signup(ctx context.Context, payload SignupPayload) (SignupResult, error) {
	if payload.Email == "" || payload.Password == "" {
		return SignupResult{}, ErrMissingCredentials
	}
	if payload.Password != payload.PasswordCheck {
		return SignupResult{}, errors.New("password confirmation does not match")
	}

	var env envelope[SignupResult]
	if err := s.post(ctx, signupPath, payload, &env); err != nil {
		s.logger.Warn("auth.signup_failed", zap.String("email", payload.Email), zap.Error(err))
		return SignupResult{}, err
	}

	s.logger.Info("auth.signup_success", zap.Int64("user_id", env.Data.UserID))
	return env.Data, nil
}

func (s *Service) post(ctx context.Context, endpoint string, body, out any) error {
	opts := api.Options{Method: http.MethodPost, Body: body, SkipAuth: true}
	res, err := s.fetcher.Do(ctx, endpoint, opts, "", out)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if res.Cancelled {
		return ErrCancelled
	}
	return nil
}
