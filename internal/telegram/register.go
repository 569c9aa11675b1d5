package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// CreateSession interactively authorizes the session file: phone number,
// login code and, when the account has one, the 2FA password are read from
// in. Safe to call on an already-authorized session; it becomes a no-op.
func (c *Client) CreateSession(ctx context.Context, in io.Reader, out io.Writer) error {
	client, err := c.newTelegramClient()
	if err != nil {
		return err
	}
	return client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(&terminalAuth{
			in:  bufio.NewReader(in),
			out: out,
		}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authorize session: %w", err)
		}
		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetch self: %w", err)
		}
		c.log.Info().
			Str("username", self.Username).
			Int64("user_id", self.ID).
			Msg("session authorized")
		return nil
	})
}

// terminalAuth prompts for login credentials on the terminal.
type terminalAuth struct {
	in  *bufio.Reader
	out io.Writer
}

func (a *terminalAuth) prompt(label string) (string, error) {
	if _, err := fmt.Fprint(a.out, label); err != nil {
		return "", err
	}
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *terminalAuth) Phone(_ context.Context) (string, error) {
	return a.prompt("Phone number (international format): ")
}

func (a *terminalAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompt("Login code: ")
}

func (a *terminalAuth) Password(_ context.Context) (string, error) {
	return a.prompt("2FA password: ")
}

func (a *terminalAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (a *terminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up through an official client first")
}
