package blum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCreds is a scripted credential source.
type fakeCreds struct {
	query string
	calls int
}

func (f *fakeCreds) WebAppData(_ context.Context) (string, error) {
	f.calls++
	if f.query == "" {
		return "tg-web-app-data", nil
	}
	return f.query, nil
}

// newTestClient builds a Client against an httptest server with pacing
// delays zeroed out.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeCreds) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	creds := &fakeCreds{}
	c, err := NewClient(creds, Options{
		GatewayURL: srv.URL,
		GameURL:    srv.URL,
		Timings:    &Timings{},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return c, creds
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(s))
}

func TestDo_ClassifiesJSONMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "Need to start farm"})
	}))

	_, err := c.do(context.Background(), http.MethodPost, c.game+"/farming/claim", nil)
	assert.ErrorIs(t, err, ErrNeedToStartFarm)
}

func TestDo_UnknownMessageKeepsText(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "internal rate limit"})
	}))

	_, err := c.do(context.Background(), http.MethodGet, c.game+"/tasks", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "internal rate limit", apiErr.Message)
}

func TestDo_PlainTextIsWrappedNotClassified(t *testing.T) {
	// Even a table entry must pass through untouched when it arrives as
	// text/plain: classification only applies after a JSON decode.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, "same day")
	}))

	raw, err := c.do(context.Background(), http.MethodPost, c.game+"/daily-reward", nil)
	require.NoError(t, err)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "same day", body.Message)
}

func TestDo_JSONArrayPassesThrough(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]string{{"id": "1"}, {"id": "2"}})
	}))

	raw, err := c.do(context.Background(), http.MethodGet, c.game+"/tasks", nil)
	require.NoError(t, err)

	var items []map[string]string
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Len(t, items, 2)
}

func TestDo_MalformedJSONIsFatal(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))

	_, err := c.do(context.Background(), http.MethodGet, c.game+"/user/balance", nil)
	assert.ErrorContains(t, err, "decode json response")
}

func TestDo_UnexpectedContentTypeIsFatal(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x00})
	}))

	_, err := c.do(context.Background(), http.MethodGet, c.game+"/user/balance", nil)
	assert.ErrorContains(t, err, "unexpected content type")
}

func TestDo_SetsBearerHeaderOnceAuthenticated(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, map[string]any{})
	}))

	_, err := c.do(context.Background(), http.MethodGet, c.game+"/user/balance", nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "no bearer header before login")

	c.accessToken = "token-123"
	_, err = c.do(context.Background(), http.MethodGet, c.game+"/user/balance", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", gotAuth)
}
