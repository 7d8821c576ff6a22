package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/api"
)

func newTestService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := api.NewFetcher(zap.NewNop(), api.FetcherConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	return NewService(zap.NewNop(), f)
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestLogin_Success(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var got LoginPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, LoginPayload{Email: "kim@wedding.os", Password: "pw"}, got)

		respond(w, http.StatusOK, `{"message":"login_success","data":{
			"access_token":"acc","refresh_token":"ref","token_type":"bearer",
			"user_id":7,"nickname":"Kim","profile_image_url":null}}`)
	})

	res, err := svc.Login(context.Background(), LoginPayload{Email: "kim@wedding.os", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "acc", res.AccessToken)
	assert.Equal(t, "ref", res.Refresh())
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, "Kim", res.Nickname)
	assert.Equal(t, "", res.ProfileImage())
}

func TestLogin_RejectedCarriesServerMessage(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusUnauthorized, `{"message":"invalid_credentials","data":null}`)
	})

	_, err := svc.Login(context.Background(), LoginPayload{Email: "a@b.c", Password: "bad"})
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "invalid_credentials", api.Message(err))
}

func TestLogin_MissingCredentials(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})

	_, err := svc.Login(context.Background(), LoginPayload{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLogin_NoAccessToken(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, `{"message":"ok","data":{}}`)
	})

	_, err := svc.Login(context.Background(), LoginPayload{Email: "a@b.c", Password: "pw"})
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantAccess  string
		wantRotated string
	}{
		{"rotated", `{"message":"ok","data":{"access_token":"a2","refresh_token":"r2"}}`, "a2", "r2"},
		{"not rotated", `{"message":"ok","data":{"access_token":"a2"}}`, "a2", ""},
		{"null refresh", `{"message":"ok","data":{"access_token":"a2","refresh_token":null}}`, "a2", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/refresh", r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))
				var got map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, "r1", got["refresh_token"])
				respond(w, http.StatusOK, tt.body)
			})

			pair, err := svc.Refresh(context.Background(), "r1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccess, pair.AccessToken)
			assert.Equal(t, tt.wantRotated, pair.Refresh())
		})
	}
}

func TestRefresh_EmptyToken(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := svc.Refresh(context.Background(), "")
	assert.Error(t, err)
}

func TestRefresh_Rejected(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusUnauthorized, `{"message":"refresh_expired"}`)
	})
	_, err := svc.Refresh(context.Background(), "r1")
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
}

func TestRefresh_CancelledIsFailure(t *testing.T) {
	svc := newTestService(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Refresh(ctx, "r1")
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestSignup(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/signup", r.URL.Path)
		var got SignupPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Lee", got.Nickname)
		respond(w, http.StatusCreated, `{"message":"signup_success","data":{"user_id":12}}`)
	})

	res, err := svc.Signup(context.Background(), SignupPayload{
		Email: "lee@wedding.os", Password: "pw", PasswordCheck: "pw", Nickname: "Lee",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.UserID)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := svc.Signup(context.Background(), SignupPayload{Email: "a@b.c", Password: "pw", PasswordCheck: "px"})
	assert.Error(t, err)
}
