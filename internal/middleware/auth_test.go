package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailnotes/server/internal/auth"
)

type stubResolver struct {
	valid string
	id    auth.Identity
	seen  []string
}

func (s *stubResolver) Resolve(_ context.Context, credential string) auth.Resolution {
	s.seen = append(s.seen, credential)
	switch credential {
	case "":
		return auth.Anonymous(auth.ReasonNoCredential)
	case s.valid:
		return auth.Resolved(s.id)
	default:
		return auth.Anonymous(auth.ReasonTagMismatch)
	}
}

func TestSession_AttachesResolution(t *testing.T) {
	resolver := &stubResolver{valid: "good", id: auth.Identity{ID: uuid.New(), Email: "a@b.com"}}

	var got auth.Identity
	var ok bool
	h := Session(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	assert.Equal(t, resolver.id, got)
	assert.Equal(t, []string{"good"}, resolver.seen)
}

func TestSession_NeverBlocks(t *testing.T) {
	resolver := &stubResolver{valid: "good"}

	for _, cookie := range []string{"", "tampered"} {
		called := false
		var res auth.Resolution
		h := Session(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			res = ResolutionFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, res.IsAnonymous())
	}
}

func TestRequireIdentity(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireIdentity(inner)

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("resolved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
		req = req.WithContext(WithResolution(req.Context(), auth.Resolved(auth.Identity{ID: uuid.New()})))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/notes/x", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "DELETE", line["method"])
	assert.Equal(t, "/api/notes/x", line["path"])
	assert.EqualValues(t, 404, line["status"])
	assert.EqualValues(t, 4, line["bytes"])
}
