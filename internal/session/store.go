package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wedding-os/client/internal/api"
	"github.com/wedding-os/client/internal/auth"
	"github.com/wedding-os/client/internal/storage"
	"github.com/wedding-os/client/pkg/utils"
)

// Authenticator is the subset of the auth service the store needs.
type Authenticator interface {
	Login(ctx context.Context, payload auth.LoginPayload) (auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

var _ api.Session = (*Store)(nil)

// refreshTimeout bounds one shared refresh exchange. It runs detached from
// the callers' contexts.
const refreshTimeout = 30 * time.Second

// Store holds the current session in memory and mirrors every change to a
// durable key/value backend.
type Store struct {
	logger *zap.Logger
	kv     storage.KV
	auth   Authenticator

	mu   sync.RWMutex
	sess Session

	refreshGroup singleflight.Group
}

// New creates an empty Store. Call Hydrate to load a persisted session.
func New(kv storage.KV, authenticator Authenticator, logger *zap.Logger) *Store {
	return &Store{logger: logger, kv: kv, auth: authenticator}
}

// Hydrate replaces the in-memory session with what the backend holds.
// A corrupt user record is dropped rather than failing the load.
func (s *Store) Hydrate(ctx context.Context) error {
	access, _, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	user, err := s.loadUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sess = Session{AccessToken: access, RefreshToken: refresh, User: user}
	s.mu.Unlock()

	s.logger.Debug("session.hydrated",
		zap.String("access_token", utils.MaskToken(access)),
		zap.Bool("has_refresh", refresh != ""),
		zap.Bool("has_user", user != nil))
	return nil
}

func (s *Store) loadUser(ctx context.Context) (*UserProfile, error) {
	raw, found, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !found || raw == "" {
		return nil, nil
	}
	var u UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("session.user_corrupt", zap.Error(err))
		return nil, nil
	}
	return &u, nil
}

// SetSession applies u to memory and persists each present field.
func (s *Store) SetSession(ctx context.Context, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, u)
}

func (s *Store) applyLocked(ctx context.Context, u Update) error {
	var errs []error

	if u.AccessToken != nil {
		s.sess.AccessToken = *u.AccessToken
		errs = append(errs, s.persist(ctx, KeyAccessToken, *u.AccessToken))
	}
	if u.RefreshToken != nil {
		s.sess.RefreshToken = *u.RefreshToken
		errs = append(errs, s.persist(ctx, KeyRefreshToken, *u.RefreshToken))
	}
	if u.userSet {
		var raw string
		if u.user != nil {
			cp := *u.user
			s.sess.User = &cp
			b, err := json.Marshal(cp)
			if err != nil {
				return fmt.Errorf("encode user: %w", err)
			}
			raw = string(b)
		} else {
			s.sess.User = nil
		}
		errs = append(errs, s.persist(ctx, KeyUser, raw))
	}

	return errors.Join(errs...)
}

func (s *Store) persist(ctx context.Context, key, value string) error {
	if value == "" {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Logout clears the session in memory and in the backend.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = Session{}
	var errs []error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		errs = append(errs, s.persist(ctx, key, ""))
	}
	s.logger.Info("session.logged_out")
	return errors.Join(errs...)
}

// Login authenticates and stores the resulting tokens and profile.
func (s *Store) Login(ctx context.Context, payload auth.LoginPayload) (*UserProfile, error) {
	res, err := s.auth.Login(ctx, payload)
	if err != nil {
		return nil, err
	}

	user := &UserProfile{
		ID:              res.UserID,
		Nickname:        res.Nickname,
		ProfileImageURL: res.ProfileImage(),
		Role:            res.Role,
	}
	u := Update{
		AccessToken:  String(res.AccessToken),
		RefreshToken: String(res.Refresh()),
	}.SetUser(user)

	if err := s.SetSession(ctx, u); err != nil {
		return user, fmt.Errorf("persist session: %w", err)
	}
	return user, nil
}

// Refresh exchanges the stored refresh token for a new access token.
// It returns false without calling the server when there is no refresh
// token, and logs the user out when the server rejects the exchange.
// Concurrent calls share one exchange. A caller whose ctx ends first gets
// false while the exchange carries on for the rest; a cancelled or timed
// out exchange leaves the session in place.
func (s *Store) Refresh(ctx context.Context) bool {
	rt := s.RefreshToken()
	if rt == "" {
		return false
	}

	ch := s.refreshGroup.DoChan(rt, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(rctx, rt), nil
	})
	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		s.logger.Debug("session.refresh_abandoned", zap.Error(ctx.Err()))
		return false
	}
}

func (s *Store) refresh(ctx context.Context, rt string) bool {
	pair, err := s.auth.Refresh(ctx, rt)
	if errors.Is(err, auth.ErrCancelled) || (err != nil && ctx.Err() != nil) {
		s.logger.Warn("session.refresh_cancelled", zap.Error(err))
		return false
	}
	if err != nil {
		s.logger.Warn("session.refresh_failed", zap.Error(err))
		if lerr := s.Logout(ctx); lerr != nil {
			s.logger.Error("session.logout_failed", zap.Error(lerr))
		}
		return false
	}

	next := pair.Refresh()
	if next == "" {
		next = rt
	}
	u := Update{AccessToken: String(pair.AccessToken), RefreshToken: String(next)}
	if err := s.SetSession(ctx, u); err != nil {
		s.logger.Warn("session.persist_failed", zap.Error(err))
	}

	s.logger.Info("session.refreshed",
		zap.String("access_token", utils.MaskToken(pair.AccessToken)),
		zap.Bool("rotated", next != rt))
	return true
}

// ReloadUser re-reads the user profile from the backend. A missing record
// leaves the in-memory profile unchanged.
func (s *Store) ReloadUser(ctx context.Context) error {
	user, err := s.loadUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	s.mu.Lock()
	s.sess.User = user
	s.mu.Unlock()
	return nil
}

// Theme returns the stored theme, or ThemeLight when unset or unknown.
func (s *Store) Theme(ctx context.Context) (Theme, error) {
	raw, found, err := s.kv.Get(ctx, KeyTheme)
	if err != nil {
		return ThemeLight, fmt.Errorf("load theme: %w", err)
	}
	t := Theme(raw)
	if !found || !t.Valid() {
		return ThemeLight, nil
	}
	return t, nil
}

// SetTheme persists t.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	return s.persist(ctx, KeyTheme, string(t))
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.RefreshToken
}

// User returns a copy of the signed-in profile, or nil.
func (s *Store) User() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess.User == nil {
		return nil
	}
	cp := *s.sess.User
	return &cp
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sess
	if out.User != nil {
		cp := *out.User
		out.User = &cp
	}
	return out
}
