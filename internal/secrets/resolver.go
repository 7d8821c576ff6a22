package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/auth"
	pkgsecrets "github.com/wedding-os/client/pkg/secrets"
)

// App is the last segment of every credential secret name.
const App = "weddingos"

// Resolver looks up account credentials for weddingctl profiles and caches
// them locally.
//
// Secret naming convention: {env}/{profile}/weddingos
type Resolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[auth.LoginPayload]
}

func NewResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[auth.LoginPayload],
) *Resolver {
	return &Resolver{logger: logger, env: env, provider: provider, cache: cache}
}

// SecretName builds the secret key for profile.
func (r *Resolver) SecretName(profile string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, profile, App))
}

// Resolve returns the credentials stored for profile.
func (r *Resolver) Resolve(ctx context.Context, profile string) (auth.LoginPayload, error) {
	name := r.SecretName(profile)
	if creds, ok := r.cache.Get(name); ok {
		return creds, nil
	}

	raw, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed", zap.String("key", name), zap.Error(err))
		return auth.LoginPayload{}, fmt.Errorf("resolve credentials for %q: %w", profile, err)
	}

	creds, err := parseCredentials(raw)
	if err != nil {
		return auth.LoginPayload{}, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(name, creds)
	r.logger.Info("secrets.credentials_resolved", zap.String("profile", profile))
	return creds, nil
}

// Forget drops the cached credentials for profile.
func (r *Resolver) Forget(profile string) {
	r.cache.Bust(r.SecretName(profile))
}

// Profiles lists every profile with a credential secret under the current env.
func (r *Resolver) Profiles(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env + "/")
	suffix := "/" + App

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var profiles []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		p := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if p != "" && !strings.Contains(p, "/") {
			profiles = append(profiles, p)
		}
	}

	r.logger.Debug("secrets.profiles_discovered", zap.Int("count", len(profiles)))
	return profiles, nil
}

func parseCredentials(raw map[string]string) (auth.LoginPayload, error) {
	email := raw["email"]
	if email == "" {
		email = raw["username"]
	}
	creds := auth.LoginPayload{Email: email, Password: raw["password"]}
	if creds.Email == "" || creds.Password == "" {
		return auth.LoginPayload{}, errors.New("secret must contain email and password")
	}
	return creds, nil
}
