package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	mu           sync.Mutex
	access       string
	refresh      string
	next         string
	refreshOK    bool
	refreshCalls int
}

func (s *fakeSession) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *fakeSession) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *fakeSession) Refresh(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if !s.refreshOK {
		s.access, s.refresh = "", ""
		return false
	}
	s.access = s.next
	return true
}

func (s *fakeSession) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// tokenGate accepts requests bearing the valid token and rejects everything else with 401.
func tokenGate(valid string, hits *atomic.Int32, seen *[]string, mu *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mu.Lock()
		*seen = append(*seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token_expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}
}

func newTestClient(srv *httptest.Server, s Session) *Client {
	return NewClient(zap.NewNop(), newTestFetcher(srv, 0), s)
}

func TestClient_RefreshAndReplayOnce(t *testing.T) {
	var hits atomic.Int32
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(tokenGate("new", &hits, &seen, &mu))
	defer srv.Close()

	sess := &fakeSession{access: "old", refresh: "r1", next: "new", refreshOK: true}
	var out map[string]string
	res, err := newTestClient(srv, sess).Get(context.Background(), "/users/me", &out)

	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "ok", out["message"])
	assert.Equal(t, 1, sess.calls())
	assert.EqualValues(t, 2, hits.Load())
	assert.Equal(t, []string{"Bearer old", "Bearer new"}, seen)
}

func TestClient_RefreshFailureReturnsOriginal401(t *testing.T) {
	var hits atomic.Int32
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(tokenGate("never", &hits, &seen, &mu))
	defer srv.Close()

	sess := &fakeSession{access: "old", refresh: "r1", refreshOK: false}
	_, err := newTestClient(srv, sess).Get(context.Background(), "/users/me", nil)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "token_expired", Message(err))
	assert.Equal(t, 1, sess.calls())
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, sess.AccessToken(), "failed refresh clears the session")
}

func TestClient_StillRejectedAfterReplay(t *testing.T) {
	var hits atomic.Int32
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(tokenGate("never", &hits, &seen, &mu))
	defer srv.Close()

	sess := &fakeSession{access: "old", refresh: "r1", next: "also-bad", refreshOK: true}
	_, err := newTestClient(srv, sess).Get(context.Background(), "/users/me", nil)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 1, sess.calls(), "at most one refresh per call")
	assert.EqualValues(t, 2, hits.Load(), "at most one replay per call")
}

func TestClient_NoRefreshTokenNoRefresh(t *testing.T) {
	var hits atomic.Int32
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(tokenGate("new", &hits, &seen, &mu))
	defer srv.Close()

	sess := &fakeSession{access: "old", refreshOK: true, next: "new"}
	_, err := newTestClient(srv, sess).Get(context.Background(), "/users/me", nil)

	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 0, sess.calls())
	assert.EqualValues(t, 1, hits.Load())
}

func TestClient_SkipAuthPassesThrough401(t *testing.T) {
	var hits atomic.Int32
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(tokenGate("new", &hits, &seen, &mu))
	defer srv.Close()

	sess := &fakeSession{access: "old", refresh: "r1", next: "new", refreshOK: true}
	_, err := newTestClient(srv, sess).Request(context.Background(), "/auth/login",
		Options{Method: http.MethodPost, Body: map[string]string{"email": "a@b.c"}, SkipAuth: true}, nil)

	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 0, sess.calls())
	assert.Equal(t, []string{""}, seen, "skip auth sends no Authorization header")
}

func TestClient_AnonymousSendsNoAuthorization(t *testing.T) {
	var hits atomic.Int32
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(tokenGate("new", &hits, &seen, &mu))
	defer srv.Close()

	_, err := newTestClient(srv, &fakeSession{}).Get(context.Background(), "/posts", nil)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	_, err = newTestClient(srv, nil).Get(context.Background(), "/posts", nil)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	assert.Equal(t, []string{"", ""}, seen)
}

func TestClient_ReplayResendsBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sess := &fakeSession{access: "old", refresh: "r1", next: "new", refreshOK: true}
	res, err := newTestClient(srv, sess).Post(context.Background(), "/budget", map[string]int{"amount": 100}, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"amount":100}`, bodies[0])
	assert.Equal(t, bodies[0], bodies[1])
}

func TestClient_ReplayResendsForm(t *testing.T) {
	var files []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("mainImage")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		_ = f.Close()
		mu.Lock()
		files = append(files, string(data))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sess := &fakeSession{access: "old", refresh: "r1", next: "new", refreshOK: true}
	form := NewForm().AddFile("mainImage", "main.jpg", []byte("jpeg-bytes"))
	_, err := newTestClient(srv, sess).Post(context.Background(), "/invitation-3d/generate", form, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"jpeg-bytes", "jpeg-bytes"}, files)
}

func TestClient_CancelledSkipsRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := &fakeSession{access: "old", refresh: "r1", next: "new", refreshOK: true}
	res, err := newTestClient(srv, sess).Get(ctx, "/users/me", nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 0, sess.calls())
}
