package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFields(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		f, err := readFields(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Empty(t, f)
	})

	t.Run("json scalars", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/", `{"email":" a@b.com ","code":482913,"nested":{"x":1}}`)
		f, err := readFields(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", f.get("email"))
		assert.Equal(t, "482913", f.get("code"))
		assert.Empty(t, f.get("nested"))
	})

	t.Run("form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("choice=60days"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
		f, err := readFields(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "60days", f.get("choice"))
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := readFields(httptest.NewRecorder(), jsonRequest(http.MethodPost, "/", `[1,2`))
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
