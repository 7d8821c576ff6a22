package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/auth"
	pkgsecrets "github.com/wedding-os/client/pkg/secrets"
)

type fakeProvider struct {
	secrets map[string]map[string]string
	gets    int
	listErr error
}

func (f *fakeProvider) GetSecret(_ context.Context, name string) (map[string]string, error) {
	f.gets++
	s, ok := f.secrets[name]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return s, nil
}

func (f *fakeProvider) ListSecrets(_ context.Context, _ string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.secrets))
	for n := range f.secrets {
		names = append(names, n)
	}
	return names, nil
}

func newTestResolver(p pkgsecrets.Provider) *Resolver {
	return NewResolver(zap.NewNop(), "dev", p, pkgsecrets.NewCache[auth.LoginPayload](time.Hour, nil))
}

func TestResolve_CachesCredentials(t *testing.T) {
	fp := &fakeProvider{secrets: map[string]map[string]string{
		"dev/couple/weddingos": {"email": "kim@wedding.os", "password": "pw"},
	}}
	r := newTestResolver(fp)
	ctx := context.Background()

	creds, err := r.Resolve(ctx, "couple")
	require.NoError(t, err)
	assert.Equal(t, auth.LoginPayload{Email: "kim@wedding.os", Password: "pw"}, creds)

	_, err = r.Resolve(ctx, "COUPLE")
	require.NoError(t, err)
	assert.Equal(t, 1, fp.gets, "second lookup served from cache")

	r.Forget("couple")
	_, err = r.Resolve(ctx, "couple")
	require.NoError(t, err)
	assert.Equal(t, 2, fp.gets)
}

func TestResolve_UsernameAlias(t *testing.T) {
	fp := &fakeProvider{secrets: map[string]map[string]string{
		"dev/planner/weddingos": {"username": "lee@wedding.os", "password": "pw"},
	}}
	creds, err := newTestResolver(fp).Resolve(context.Background(), "planner")
	require.NoError(t, err)
	assert.Equal(t, "lee@wedding.os", creds.Email)
}

func TestResolve_Errors(t *testing.T) {
	fp := &fakeProvider{secrets: map[string]map[string]string{
		"dev/broken/weddingos": {"email": "x@y.z"},
	}}
	r := newTestResolver(fp)

	_, err := r.Resolve(context.Background(), "missing")
	assert.ErrorContains(t, err, "resolve credentials")

	_, err = r.Resolve(context.Background(), "broken")
	assert.ErrorContains(t, err, "email and password")
}

func TestProfiles(t *testing.T) {
	fp := &fakeProvider{secrets: map[string]map[string]string{
		"dev/couple/weddingos":  {},
		"dev/planner/weddingos": {},
		"dev/couple/other-app":  {},
		"dev/a/b/weddingos":     {},
		"prod/couple/weddingos": {},
	}}
	profiles, err := newTestResolver(fp).Profiles(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"couple", "planner"}, profiles)

	_, err = newTestResolver(&fakeProvider{listErr: errors.New("denied")}).Profiles(context.Background())
	assert.Error(t, err)
}
