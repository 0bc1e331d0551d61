package dispatch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hornshoofs/scoring-api/internal/auth"
	"github.com/hornshoofs/scoring-api/internal/scoring"
	"github.com/hornshoofs/scoring-api/internal/store"
)

// memBackend doubles as the store for end-to-end dispatcher tests.
type memBackend struct {
	data     map[string]string
	failGets bool
}

func newMemBackend() *memBackend { return &memBackend{data: make(map[string]string)} }

func (b *memBackend) Get(ctx context.Context, key string) (string, error) {
	if b.failGets {
		return "", errors.New("connection refused")
	}
	val, ok := b.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return val, nil
}

func (b *memBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	b.data[key] = value
	return nil
}

func (b *memBackend) Ping(ctx context.Context) error { return nil }

type fixture struct {
	handler *Handler
	auth    *auth.Authenticator
	backend *memBackend
}

func newFixture() *fixture {
	backend := newMemBackend()
	a := auth.New("", "", "")
	engine := scoring.NewEngine(store.NewWithBackend(backend, 1, 0, nil, nil), nil, nil)
	return &fixture{handler: NewHandler(a, engine, nil), auth: a, backend: backend}
}

func (f *fixture) signed(body map[string]any) map[string]any {
	login, _ := body["login"].(string)
	account, _ := body["account"].(string)
	if f.auth.IsAdmin(login) {
		body["token"] = f.auth.AdminToken()
	} else {
		body["token"] = f.auth.UserToken(account, login)
	}
	return body
}

func (f *fixture) handle(t *testing.T, body map[string]any) (any, int, *Context) {
	t.Helper()
	rctx := &Context{RequestID: "test"}
	payload, code, err := f.handler.Handle(context.Background(), body, rctx)
	require.NoError(t, err)
	return payload, code, rctx
}

// =============================================================================
// Envelope and authentication
// =============================================================================

func TestHandle_EmptyRequest(t *testing.T) {
	f := newFixture()
	_, code, _ := f.handle(t, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestHandle_BadAuth(t *testing.T) {
	f := newFixture()
	cases := []map[string]any{
		{"account": "horns&hoofs", "login": "h&f", "method": "online_score", "token": "", "arguments": map[string]any{}},
		{"account": "horns&hoofs", "login": "h&f", "method": "online_score", "token": "sdd", "arguments": map[string]any{}},
		{"account": "horns&hoofs", "login": "admin", "method": "online_score", "token": "", "arguments": map[string]any{}},
	}
	for _, body := range cases {
		payload, code, _ := f.handle(t, body)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Nil(t, payload, "forbidden responses are opaque")
	}
}

func TestHandle_AuthBeforeArguments(t *testing.T) {
	// A bad token wins over invalid method arguments.
	f := newFixture()
	body := map[string]any{
		"account": "horns&hoofs", "login": "h&f", "method": "online_score",
		"token": "bogus", "arguments": map[string]any{"phone": "123"},
	}
	_, code, _ := f.handle(t, body)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestHandle_MissingEnvelopeKeys(t *testing.T) {
	f := newFixture()
	cases := []map[string]any{
		{"account": "horns&hoofs", "login": "h&f", "method": "online_score"},
		{"account": "horns&hoofs", "login": "h&f", "arguments": map[string]any{}},
		{"account": "horns&hoofs", "method": "online_score", "arguments": map[string]any{}},
	}
	for _, body := range cases {
		f.signed(body)
		payload, code, _ := f.handle(t, body)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, payload.(string), "missing field")
	}
}

func TestHandle_UnknownMethod(t *testing.T) {
	f := newFixture()
	body := f.signed(map[string]any{
		"account": "horns&hoofs", "login": "h&f", "method": "online_scoring",
		"arguments": map[string]any{},
	})
	_, code, _ := f.handle(t, body)
	assert.Equal(t, http.StatusNotFound, code)
}

// =============================================================================
// online_score
// =============================================================================

func TestHandle_OnlineScore(t *testing.T) {
	f := newFixture()
	body := f.signed(map[string]any{
		"account": "h&f", "login": "h&f", "method": "online_score",
		"arguments": map[string]any{"phone": "79175002040", "email": "a@b.ru"},
	})
	payload, code, rctx := f.handle(t, body)
	require.Equal(t, http.StatusOK, code)

	result := payload.(map[string]any)
	score := result["score"].(float64)
	assert.Equal(t, 3.0, score)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 5.0)

	assert.Equal(t, []string{"email", "phone"}, rctx.Has)
}

func TestHandle_OnlineScore_InvalidArguments(t *testing.T) {
	f := newFixture()
	cases := []struct {
		args map[string]any
		want string
	}{
		{map[string]any{"phone": "89175002040"}, "must start with 7"},
		{map[string]any{"email": "nope"}, "email without @"},
		{map[string]any{"gender": 5.0}, "gender must be 0 or 1 or 2"},
	}
	for _, tc := range cases {
		body := f.signed(map[string]any{
			"account": "h&f", "login": "h&f", "method": "online_score",
			"arguments": tc.args,
		})
		payload, code, _ := f.handle(t, body)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, payload.(string), tc.want)
	}
}

func TestHandle_AdminScore(t *testing.T) {
	f := newFixture()
	f.backend.failGets = true // admin path must never touch the store
	body := f.signed(map[string]any{
		"account": "horns&hoofs", "login": "admin", "method": "online_score",
		"arguments": map[string]any{"phone": "123", "email": "broken"},
	})
	payload, code, _ := f.handle(t, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, scoring.AdminScore, payload.(map[string]any)["score"])
}

// =============================================================================
// clients_interests
// =============================================================================

func TestHandle_ClientsInterests(t *testing.T) {
	f := newFixture()
	f.backend.data["i:1"] = "reading"
	f.backend.data["i:2"] = "coding"
	body := f.signed(map[string]any{
		"account": "h&f", "login": "h&f", "method": "clients_interests",
		"arguments": map[string]any{"client_ids": []any{1.0, 2.0, 3.0}, "date": "20.07.2017"},
	})
	payload, code, rctx := f.handle(t, body)
	require.Equal(t, http.StatusOK, code)

	interests := payload.(map[string]any)["interests"].(map[string][]string)
	require.Len(t, interests, 3)
	assert.Equal(t, []string{"reading"}, interests["1"])
	assert.Equal(t, []string{"coding"}, interests["2"])
	assert.Empty(t, interests["3"])

	assert.Equal(t, 3, rctx.NClients)
}

func TestHandle_ClientsInterests_EmptyIDs(t *testing.T) {
	f := newFixture()
	body := f.signed(map[string]any{
		"account": "h&f", "login": "h&f", "method": "clients_interests",
		"arguments": map[string]any{"client_ids": []any{}},
	})
	payload, code, _ := f.handle(t, body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, payload.(string), "client_ids is empty list")
}

func TestHandle_ClientsInterests_StoreFailurePropagates(t *testing.T) {
	f := newFixture()
	f.backend.failGets = true
	body := f.signed(map[string]any{
		"account": "h&f", "login": "h&f", "method": "clients_interests",
		"arguments": map[string]any{"client_ids": []any{1.0}},
	})
	rctx := &Context{}
	_, _, err := f.handler.Handle(context.Background(), body, rctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestHandle_ScoreStoreFailureSwallowed(t *testing.T) {
	// The advisory cache path never turns a broken store into a failure.
	f := newFixture()
	f.backend.failGets = true
	body := f.signed(map[string]any{
		"account": "h&f", "login": "h&f", "method": "online_score",
		"arguments": map[string]any{"phone": "79175002040", "email": "a@b.ru"},
	})
	payload, code, _ := f.handle(t, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, payload.(map[string]any)["score"])
}
