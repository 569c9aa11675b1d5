package blum

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authRequest is one recorded call against the fake gateway.
type authRequest struct {
	path     string
	query    string
	username string
	referral string
}

// fakeGateway scripts the auth provider, username check and refresh
// endpoints and records every request.
type fakeGateway struct {
	mu       sync.Mutex
	requests []authRequest

	// spentReferrals report the limit-exceeded error.
	spentReferrals map[string]bool
	// takenUsernames is how many username checks fail before one succeeds.
	takenUsernames int
	// accountExists makes the plain authenticate call return tokens.
	accountExists bool
}

func (g *fakeGateway) recorded() []authRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]authRequest(nil), g.requests...)
}

func (g *fakeGateway) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)

		g.mu.Lock()
		g.requests = append(g.requests, authRequest{
			path:     r.URL.Path,
			query:    payload["query"],
			username: payload["username"],
			referral: payload["referralToken"],
		})
		g.mu.Unlock()

		switch r.URL.Path {
		case "/auth/provider/PROVIDER_TELEGRAM_MINI_APP":
			if referral := payload["referralToken"]; referral != "" && g.spentReferrals[referral] {
				writeJSON(w, map[string]string{"message": "referral token limit has been exceeded"})
				return
			}
			if payload["username"] != "" || g.accountExists {
				writeJSON(w, map[string]any{
					"token": map[string]any{
						"access":  "access-1",
						"refresh": "refresh-1",
						"user": map[string]any{
							"id":       map[string]any{"id": "user-1"},
							"username": payload["username"],
						},
					},
				})
				return
			}
			// Dry-run with a live referral, or a plain authenticate for an
			// account that does not exist: no token either way.
			writeJSON(w, map[string]any{})
		case "/user/username/check":
			g.mu.Lock()
			taken := g.takenUsernames > 0
			if taken {
				g.takenUsernames--
			}
			g.mu.Unlock()
			if taken {
				writeJSON(w, map[string]string{"message": "Username is not available"})
				return
			}
			writeJSON(w, map[string]any{})
		case "/auth/refresh":
			writeJSON(w, map[string]string{"access": "access-2", "refresh": "refresh-2"})
		default:
			http.NotFound(w, r)
		}
	})
}

func TestLogin_ExistingAccount(t *testing.T) {
	gw := &fakeGateway{accountExists: true}
	c, creds := newTestClient(t, gw.handler())

	res, err := c.Login(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "access-1", res.AccessToken)
	assert.Equal(t, "refresh-1", c.refreshToken)
	assert.Equal(t, 1, creds.calls, "one handshake per authenticate call")
}

// TestLogin_SecondCallDoesNotResubmit checks that an established session is
// returned as-is: a single-use referral code must never be consumed twice
// by the client.
func TestLogin_SecondCallDoesNotResubmit(t *testing.T) {
	gw := &fakeGateway{accountExists: true}
	c, _ := newTestClient(t, gw.handler())

	first, err := c.Login(context.Background(), []string{"CODE"})
	require.NoError(t, err)
	requestsAfterFirst := len(gw.recorded())

	second, err := c.Login(context.Background(), []string{"CODE"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, gw.recorded(), requestsAfterFirst, "second login must not touch the network")
}

func TestLogin_NoAccountNoReferrals(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := newTestClient(t, gw.handler())

	_, err := c.Login(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

// TestLogin_ReferralListSkipsSpentCodes checks the bootstrap working set:
// with codes [A, B] where A is exhausted, creation uses B and A is probed
// exactly once.
func TestLogin_ReferralListSkipsSpentCodes(t *testing.T) {
	gw := &fakeGateway{spentReferrals: map[string]bool{"A": true}}
	c, _ := newTestClient(t, gw.handler())

	referrals := []string{"A", "B"}
	res, err := c.Login(context.Background(), referrals)
	require.NoError(t, err)
	assert.Equal(t, "access-1", res.AccessToken)
	assert.Equal(t, []string{"A", "B"}, referrals, "configured list must not be mutated")

	var probesA, createsWithB int
	for _, req := range gw.recorded() {
		if req.referral == "A" {
			probesA++
		}
		if req.referral == "B" && req.username != "" {
			createsWithB++
		}
	}
	assert.Equal(t, 1, probesA, "spent code probed once, never retried")
	assert.Equal(t, 1, createsWithB, "account created with the valid code")
}

func TestLogin_AllReferralsSpent(t *testing.T) {
	gw := &fakeGateway{spentReferrals: map[string]bool{"A": true, "B": true}}
	c, _ := newTestClient(t, gw.handler())

	_, err := c.Login(context.Background(), []string{"A", "B"})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

// TestLogin_UsernameCollisionRetries checks that a taken username restarts
// the creation attempt, handshake included, and that the retry is bounded.
func TestLogin_UsernameCollisionRetries(t *testing.T) {
	gw := &fakeGateway{takenUsernames: 2}
	c, creds := newTestClient(t, gw.handler())

	res, err := c.Login(context.Background(), []string{"CODE"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	var checks int
	for _, req := range gw.recorded() {
		if req.path == "/user/username/check" {
			checks++
		}
	}
	assert.Equal(t, 3, checks, "two collisions then a free username")
	// Handshakes: initial authenticate, referral dry-run, final create.
	assert.Equal(t, 3, creds.calls)
}

func TestLogin_UsernameRetryIsBounded(t *testing.T) {
	gw := &fakeGateway{takenUsernames: maxUsernameAttempts + 1}
	c, _ := newTestClient(t, gw.handler())

	_, err := c.Login(context.Background(), []string{"CODE"})
	assert.ErrorContains(t, err, "no available username")
}

func TestRefresh_ReplacesBothTokens(t *testing.T) {
	gw := &fakeGateway{accountExists: true}
	c, _ := newTestClient(t, gw.handler())

	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, "access-2", c.accessToken)
	assert.Equal(t, "refresh-2", c.refreshToken)
}
