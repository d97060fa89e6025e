package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/lborres/agora"
	"github.com/lborres/agora/adapters/memory"
	"github.com/lborres/agora/core"
	"github.com/lborres/agora/pkg/crypto"
	"github.com/lborres/agora/services"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

type recordingMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, _, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, resetURL)
	return nil
}

func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links, "no reset mail sent")
	link := m.links[len(m.links)-1]
	return link[strings.LastIndex(link, "/")+1:]
}

type testEnv struct {
	app     *fiber.App
	adapter *Adapter
	agora   *agora.Agora
	store   *memory.Store
	mailer  *recordingMailer
	hasher  crypto.PasswordHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	providers := services.DefaultProviders()
	for i := range providers {
		if providers[i].Name == "github" {
			providers[i].ClientID, providers[i].ClientSecret = "gh-id", "gh-secret"
		}
	}

	env := &testEnv{
		app:    fiber.New(),
		store:  memory.New(),
		mailer: &recordingMailer{},
		hasher: crypto.NewBcrypt(4),
	}
	env.adapter = New(env.app)

	ag, err := agora.New(agora.Config{
		Secret:         testSecret,
		Database:       env.store,
		HTTP:           env.adapter,
		Mailer:         env.mailer,
		PasswordHasher: env.hasher,
		Providers:      providers,
	})
	require.NoError(t, err)
	env.agora = ag

	env.app.Use(env.adapter.PageGuard())
	page := func(c fiber.Ctx) error { return c.SendString("page " + c.Path()) }
	env.app.Get("/", page)
	env.app.Get("/signin", page)
	env.app.Get("/account", page)
	env.app.Get("/admin/users", page)
	env.app.Get("/conversations/:id", page)

	return env
}

func (e *testEnv) seedUser(t *testing.T, id, email, password string, role core.Role) *core.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	u := &core.User{ID: id, Email: email, PasswordHash: &hash, Role: role}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) seedMessage(t *testing.T, id, authorID string) {
	t.Helper()
	content := "hello"
	require.NoError(t, e.store.CreateResource(context.Background(),
		&core.Resource{ID: id, Kind: core.KindMessage, AuthorID: authorID, ConversationID: "c1", Content: &content}))
}

// tokenFor issues a session token for an already seeded user.
func (e *testEnv) tokenFor(t *testing.T, u *core.User) string {
	t.Helper()
	issued, err := e.agora.Sessions.Issue(u.Identity())
	require.NoError(t, err)
	return issued.Token
}

type response struct {
	*http.Response
	body map[string]any
	raw  []byte
}

// do sends a request. token, when set, travels as the session cookie.
func (e *testEnv) do(t *testing.T, method, target string, body any, token string) *response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "agora.session-token", Value: token})
	}

	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) *response {
	t.Helper()
	resp, err := e.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	r := &response{Response: resp, raw: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &r.body))
	}
	return r
}

// sessionCookie returns the value of the live session cookie set by r.
func (r *response) sessionCookie() string {
	for _, c := range r.Cookies() {
		if c.Name == "agora.session-token" && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func (r *response) cleared(name string) bool {
	for _, c := range r.Cookies() {
		if c.Name == name && c.Value == "" {
			return true
		}
	}
	return false
}
