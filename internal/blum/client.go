// Package blum implements the authenticated client for the Blum rewards
// API: session bootstrap, token refresh and the domain operations driven by
// the run loop.
package blum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"blum-bot/internal/model"
)

// Default API endpoints. Auth and session management live on the gateway,
// gameplay and tasks on the game domain.
const (
	DefaultGatewayURL = "https://gateway.blum.codes/v1"
	DefaultGameURL    = "https://game-domain.blum.codes/api/v1"

	defaultTimeout = 120 * time.Second
)

// Android browser user agents, one picked per client at random.
var userAgents = []string{
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 12; Redmi Note 11) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 13; 2211133G) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Mobile Safari/537.36",
}

// CredentialSource mints the opaque web-app query consumed by the auth
// provider endpoint. Each call performs a full mini-app handshake against
// the chat platform; implementations must be safe to invoke repeatedly.
type CredentialSource interface {
	WebAppData(ctx context.Context) (string, error)
}

// Timings bounds the randomized pacing delays inside domain operations.
type Timings struct {
	GameDwellMin  time.Duration
	GameDwellMax  time.Duration
	TaskClaimMin  time.Duration
	TaskClaimMax  time.Duration
}

// DefaultTimings mirrors the pacing the game client itself exhibits.
func DefaultTimings() Timings {
	return Timings{
		GameDwellMin: 35 * time.Second,
		GameDwellMax: 40 * time.Second,
		TaskClaimMin: 10 * time.Second,
		TaskClaimMax: 20 * time.Second,
	}
}

// Options configures a Client.
type Options struct {
	// GatewayURL and GameURL override the default API bases, mainly for tests.
	GatewayURL string
	GameURL    string

	// Proxy is an optional outbound proxy URL (http, https or socks5).
	Proxy string

	// Timeout is the per-request transport timeout.
	Timeout time.Duration

	// GamePointsMin and GamePointsMax bound the random point value submitted
	// when claiming a game.
	GamePointsMin int
	GamePointsMax int

	Timings *Timings

	Logger zerolog.Logger
}

// Client owns the authenticated HTTP channel to the Blum API. A Client is
// bound to exactly one account and is not safe for concurrent use; the run
// loop drives it strictly sequentially.
type Client struct {
	http    *http.Client
	gateway string
	game    string
	creds   CredentialSource

	accessToken  string
	refreshToken string
	auth         *model.AuthResult

	userAgent  string
	pointsMin  int
	pointsMax  int
	timings    Timings

	log zerolog.Logger
}

// NewClient creates a Client that mints login credentials through creds.
func NewClient(creds CredentialSource, opts Options) (*Client, error) {
	if opts.GatewayURL == "" {
		opts.GatewayURL = DefaultGatewayURL
	}
	if opts.GameURL == "" {
		opts.GameURL = DefaultGameURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.GamePointsMin <= 0 {
		opts.GamePointsMin = 240
	}
	if opts.GamePointsMax < opts.GamePointsMin {
		opts.GamePointsMax = 280
	}
	timings := DefaultTimings()
	if opts.Timings != nil {
		timings = *opts.Timings
	}

	transport, err := newTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		gateway:   opts.GatewayURL,
		game:      opts.GameURL,
		creds:     creds,
		userAgent: userAgents[rand.N(len(userAgents))],
		pointsMin: opts.GamePointsMin,
		pointsMax: opts.GamePointsMax,
		timings:   timings,
		log:       opts.Logger,
	}, nil
}

// newTransport builds an HTTP transport, optionally tunneled through an
// upstream proxy. SOCKS5 proxies dial through golang.org/x/net/proxy, HTTP
// proxies go through the standard CONNECT path.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{}
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy %s: %w", u.Host, err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer for %s does not support context", u.Host)
		}
		transport.DialContext = contextDialer.DialContext
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return transport, nil
}

// do is the sole network entry point. It performs the request, decodes the
// body by content type and routes any JSON "message" field through the error
// classifier before the caller sees the result.
//
// Rules, in order:
//   - application/json that fails to decode is a fatal transport error;
//   - a decoded JSON object carrying a string "message" becomes a typed
//     error (or *APIError when the message is not in the table);
//   - text/plain is wrapped as {"message": <body>} without classification;
//   - any other content type is a fatal error for the call.
func (c *Client) do(ctx context.Context, method, rawURL string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.Trace().Str("url", rawURL).Bytes("body", raw).Msg("response")

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode json response: %w", err)
		}
		if obj, ok := decoded.(map[string]any); ok {
			if message, ok := obj["message"].(string); ok {
				return nil, classifyMessage(message)
			}
		}
		return json.RawMessage(raw), nil
	case strings.Contains(contentType, "text/plain"):
		wrapped, err := json.Marshal(map[string]string{"message": string(raw)})
		if err != nil {
			return nil, fmt.Errorf("wrap text response: %w", err)
		}
		return json.RawMessage(wrapped), nil
	default:
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}
}

// get performs a GET and decodes the result into out.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// post performs a POST and, when out is non-nil, decodes the result into it.
func (c *Client) post(ctx context.Context, rawURL string, payload, out any) error {
	raw, err := c.do(ctx, http.MethodPost, rawURL, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
