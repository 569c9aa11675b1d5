// Package telegram is the chat-platform collaborator: it mints mini-app
// credentials and performs channel-join side effects over MTProto.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
)

// The game's bot contact and the web app it serves.
const (
	botUsername = "BlumCryptoBot"
	webAppURL   = "https://telegram.blum.codes/"
)

// ErrNotAuthorized is returned when the session file exists but holds no
// authorized user. The session has to be re-created interactively.
var ErrNotAuthorized = errors.New("telegram session is not authorized")

// Options configures a Client.
type Options struct {
	APIID   int
	APIHash string

	// SessionPath is the session file for this account.
	SessionPath string

	// Proxy is an optional socks5 URL for the MTProto connection.
	Proxy string

	Logger zerolog.Logger
}

// Client talks to Telegram on behalf of one account. The underlying MTProto
// connection is scarce, so it is opened and closed around every call rather
// than held for the account's lifetime.
type Client struct {
	opts Options
	log  zerolog.Logger
}

// NewClient creates a Client for one session file.
func NewClient(opts Options) *Client {
	return &Client{opts: opts, log: opts.Logger}
}

// newTelegramClient builds a fresh gotd client. Clients are single-use: one
// per connect/disconnect bracket.
func (c *Client) newTelegramClient() (*telegram.Client, error) {
	opts := telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.opts.SessionPath},
	}
	if c.opts.Proxy != "" {
		u, err := url.Parse(c.opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse telegram proxy url: %w", err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return nil, fmt.Errorf("unsupported telegram proxy scheme %q", u.Scheme)
		}
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
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: contextDialer.DialContext})
	}
	return telegram.NewClient(c.opts.APIID, c.opts.APIHash, opts), nil
}

// withConn runs fn inside a connect/disconnect bracket. The bracket releases
// the connection on every exit path, including panics inside fn.
func (c *Client) withConn(ctx context.Context, fn func(ctx context.Context, api *tg.Client) error) error {
	client, err := c.newTelegramClient()
	if err != nil {
		return err
	}
	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}
		return fn(ctx, client.API())
	})
}

// WebAppData performs the mini-app handshake and returns the opaque
// tgWebAppData credential: resolve the game bot, make sure a /start message
// exists so the bot accepts web-view requests, request the web view and pull
// the credential out of the returned URL fragment.
func (c *Client) WebAppData(ctx context.Context) (string, error) {
	var data string
	err := c.withConn(ctx, func(ctx context.Context, api *tg.Client) error {
		bot, err := resolveBot(ctx, api, botUsername)
		if err != nil {
			return err
		}
		peer := bot.AsInputPeer()

		empty, err := historyEmpty(ctx, api, peer)
		if err != nil {
			return err
		}
		if empty {
			sender := message.NewSender(api)
			if _, err := sender.To(peer).Text(ctx, "/start"); err != nil {
				return fmt.Errorf("send /start: %w", err)
			}
		}

		req := &tg.MessagesRequestWebViewRequest{
			Peer:     peer,
			Bot:      bot.AsInput(),
			Platform: "android",
		}
		req.SetURL(webAppURL)
		view, err := api.MessagesRequestWebView(ctx, req)
		if err != nil {
			return fmt.Errorf("request web view: %w", err)
		}

		data, err = extractWebAppData(view.URL)
		return err
	})
	return data, err
}

// JoinChannel joins the channel referenced by a t.me link. Used as the
// subscription side effect for social tasks.
func (c *Client) JoinChannel(ctx context.Context, channelURL string) error {
	name := strings.TrimPrefix(channelURL, "https://t.me/")
	return c.withConn(ctx, func(ctx context.Context, api *tg.Client) error {
		resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: name})
		if err != nil {
			return fmt.Errorf("resolve channel %s: %w", name, err)
		}
		for _, chat := range resolved.Chats {
			if channel, ok := chat.(*tg.Channel); ok {
				if _, err := api.ChannelsJoinChannel(ctx, channel.AsInput()); err != nil {
					return fmt.Errorf("join channel %s: %w", name, err)
				}
				c.log.Info().Str("channel", name).Msg("joined channel")
				return nil
			}
		}
		return fmt.Errorf("no channel in resolved peer %q", name)
	})
}

// resolveBot resolves the bot contact to a full user with access hash.
func resolveBot(ctx context.Context, api *tg.Client, name string) (*tg.User, error) {
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: name})
	if err != nil {
		return nil, fmt.Errorf("resolve bot %s: %w", name, err)
	}
	peer, ok := resolved.Peer.(*tg.PeerUser)
	if !ok {
		return nil, fmt.Errorf("%s did not resolve to a user", name)
	}
	for _, u := range resolved.Users {
		if user, ok := u.(*tg.User); ok && user.ID == peer.UserID {
			return user, nil
		}
	}
	return nil, fmt.Errorf("resolved peer %s has no user object", name)
}

// historyEmpty reports whether the chat with peer has no messages yet.
func historyEmpty(ctx context.Context, api *tg.Client, peer tg.InputPeerClass) (bool, error) {
	history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{Peer: peer, Limit: 1})
	if err != nil {
		return false, fmt.Errorf("get chat history: %w", err)
	}
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return len(h.Messages) == 0, nil
	case *tg.MessagesMessagesSlice:
		return h.Count == 0, nil
	case *tg.MessagesChannelMessages:
		return h.Count == 0, nil
	default:
		return false, nil
	}
}

// extractWebAppData pulls the tgWebAppData credential out of the web-view
// URL. The credential travels in the URL fragment, query-encoded.
func extractWebAppData(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse web view url: %w", err)
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", fmt.Errorf("parse web view fragment: %w", err)
	}
	data := values.Get("tgWebAppData")
	if data == "" {
		return "", errors.New("web view url carries no tgWebAppData")
	}
	return data, nil
}
