package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinship/pkg/requestcontext"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*Claims, error) { return s.claims, s.err }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRequireAuth(t *testing.T) {
	accountID := uuid.New()

	t.Run("missing header is unauthorized", func(t *testing.T) {
		h := RequireAuth(stubValidator{}, discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not run")
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		h := RequireAuth(stubValidator{err: errors.New("bad")}, discard())(http.NotFoundHandler())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non uuid subject is unauthorized", func(t *testing.T) {
		h := RequireAuth(stubValidator{claims: &Claims{AccountID: "alice"}}, discard())(http.NotFoundHandler())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token injects identity", func(t *testing.T) {
		var got requestcontext.AuthIdentity
		var ok bool
		h := RequireAuth(stubValidator{claims: &Claims{
			AccountID: accountID.String(),
			Name:      " Ana Souza ",
			Email:     "ana@example.com",
		}}, discard())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got, ok = requestcontext.Identity(r.Context())
		}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer token")
		h.ServeHTTP(httptest.NewRecorder(), r)

		require.True(t, ok)
		assert.Equal(t, accountID.String(), got.AccountID.String())
		assert.Equal(t, "Ana Souza", got.Name)
		assert.Equal(t, "ana@example.com", got.Email)
	})
}
