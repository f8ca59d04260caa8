package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mailnotes/server/internal/auth"
	httphandler "github.com/mailnotes/server/internal/http"
	"github.com/mailnotes/server/internal/http/handlers"
	"github.com/mailnotes/server/internal/mailer/mailertest"
	"github.com/mailnotes/server/internal/notes"
	"github.com/mailnotes/server/internal/repo"
)

const testSecret = "integration-cookie-secret"

// stores is the storage a harness runs against.
type stores struct {
	users  repo.UserRepo
	tokens repo.TokenRepo
	notes  repo.NoteRepo
}

func memoryStores() stores {
	return stores{
		users:  repo.NewMemoryUserRepo(),
		tokens: repo.NewMemoryTokenRepo(),
		notes:  repo.NewMemoryNoteRepo(),
	}
}

// harness is the full HTTP stack on an httptest server with a recording mailer.
type harness struct {
	Server *httptest.Server
	Mail   *mailertest.Recorder
	Auth   *auth.AuthService
	Stores stores
}

func newHarness(t *testing.T, s stores) *harness {
	t.Helper()

	mail := &mailertest.Recorder{}
	codec, err := auth.NewSessionCodec(testSecret)
	require.NoError(t, err)

	codeProvider := auth.NewEmailCodeProvider(s.users, s.tokens, mail)
	authService := auth.NewAuthService(codeProvider, codec, s.users, mail, 5*time.Second)
	authHandler := handlers.NewAuthHandler(authService, handlers.CookieOptions{SameSite: http.SameSiteLaxMode}, false)
	notesHandler := handlers.NewNotesHandler(notes.NewService(s.notes))

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Resolver: authService,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, authHandler, notesHandler)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		_ = authService.Wait(context.Background())
	})

	return &harness{Server: server, Mail: mail, Auth: authService, Stores: s}
}

// browser is one user agent with its own cookie jar.
type browser struct {
	t      *testing.T
	h      *harness
	client *http.Client
}

func (h *harness) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, h: h, client: &http.Client{Jar: jar}}
}

type response struct {
	Status  int
	Body    map[string]any
	Raw     string
	Cookies []*http.Cookie
}

func (b *browser) do(method, path string, body any, extra ...*http.Cookie) response {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.h.Server.URL+path, reader)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range extra {
		req.AddCookie(c)
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	out := response{Status: resp.StatusCode, Raw: string(raw), Cookies: resp.Cookies()}
	if len(raw) > 0 {
		require.NoError(b.t, json.Unmarshal(raw, &out.Body), "body: %s", raw)
	}
	return out
}

func (b *browser) get(path string) response { return b.do(http.MethodGet, path, nil) }

func (b *browser) post(path string, body any) response { return b.do(http.MethodPost, path, body) }

// login runs send-code then verify-code with the mailed code.
func (b *browser) login(email string) response {
	b.t.Helper()
	resp := b.post("/auth/send-code", map[string]string{"email": email})
	require.Equal(b.t, http.StatusOK, resp.Status, resp.Raw)

	code, ok := b.h.Mail.LastCode(auth.NormalizeEmail(email))
	require.True(b.t, ok, "no code mailed to %s", email)

	resp = b.post("/auth/verify-code", map[string]string{"email": email, "code": code})
	require.Equal(b.t, http.StatusOK, resp.Status, resp.Raw)
	return resp
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
