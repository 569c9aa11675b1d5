package blum

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"blum-bot/internal/model"
	"blum-bot/internal/pkg/username"
)

// maxUsernameAttempts bounds the retry-until-unique-username loop during
// account creation. The upstream generator space is large enough that five
// collisions in a row means something else is wrong.
const maxUsernameAttempts = 5

// Login establishes the session. For an existing account a single
// authenticate call is enough; otherwise account creation runs through the
// referral bootstrap. Calling Login again on an established session returns
// the stored result without touching the network, so a single-use referral
// code is never resubmitted.
func (c *Client) Login(ctx context.Context, referrals []string) (*model.AuthResult, error) {
	if c.auth != nil {
		return c.auth, nil
	}

	query, err := c.creds.WebAppData(ctx)
	if err != nil {
		return nil, fmt.Errorf("mini-app handshake: %w", err)
	}

	res, err := c.Authenticate(ctx, query, "", "")
	if err != nil {
		return nil, err
	}
	if res.AccessToken != "" {
		c.setSession(res)
		return res, nil
	}

	if len(referrals) == 0 {
		c.log.Error().Msg("account does not exist and no referral codes are configured")
		return nil, ErrAccountNotFound
	}

	c.log.Info().Msg("account does not exist, creating it")
	return c.createAccount(ctx, referrals)
}

// createAccount is the bootstrap state machine: pick the first referral code
// the server still accepts, then retry random usernames until one is free,
// re-fetching the handshake credential on every attempt.
func (c *Client) createAccount(ctx context.Context, referrals []string) (*model.AuthResult, error) {
	// Work on a copy; configured referral lists are never mutated in place.
	working := slices.Clone(referrals)

	referral := ""
	for _, code := range working {
		ok, err := c.CheckReferralCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.log.Error().Str("referral", code).Msg("referral code is invalid or exhausted, dropping it")
			continue
		}
		referral = code
		break
	}
	if referral == "" {
		c.log.Error().Msg("no valid referral codes left")
		return nil, ErrAccountNotFound
	}

	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		name := username.Random()

		available, err := c.UsernameAvailable(ctx, name)
		if err != nil {
			return nil, err
		}
		if !available {
			c.log.Debug().Str("username", name).Int("attempt", attempt).Msg("username taken, retrying")
			continue
		}

		// Fresh credential per attempt: the handshake is cheap and a stale
		// query can outlive its validity window across retries.
		query, err := c.creds.WebAppData(ctx)
		if err != nil {
			return nil, fmt.Errorf("mini-app handshake: %w", err)
		}

		res, err := c.Authenticate(ctx, query, name, referral)
		if err != nil {
			return nil, err
		}
		if res.AccessToken == "" {
			return nil, ErrAccountNotFound
		}

		c.setSession(res)
		c.log.Info().Str("username", name).Str("referral", referral).Msg("account created")
		return res, nil
	}

	return nil, fmt.Errorf("no available username after %d attempts", maxUsernameAttempts)
}

// Authenticate posts the handshake credential to the auth provider endpoint.
// username and referral are only sent during account creation. The returned
// result may be empty: a missing access token signals that the account does
// not exist yet.
func (c *Client) Authenticate(ctx context.Context, query, name, referral string) (*model.AuthResult, error) {
	payload := map[string]string{"query": query}
	if name != "" {
		payload["username"] = name
	}
	if referral != "" {
		payload["referralToken"] = referral
	}

	var res model.AuthResult
	if err := c.post(ctx, c.gateway+"/auth/provider/PROVIDER_TELEGRAM_MINI_APP", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CheckReferralCode dry-runs an authenticate call with the code attached.
// A limit-exceeded response means the code is spent; any other failure
// propagates.
func (c *Client) CheckReferralCode(ctx context.Context, code string) (bool, error) {
	query, err := c.creds.WebAppData(ctx)
	if err != nil {
		return false, fmt.Errorf("mini-app handshake: %w", err)
	}
	_, err = c.Authenticate(ctx, query, "", code)
	if errors.Is(err, ErrReferralTokenUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UsernameAvailable asks the gateway whether a candidate username is free.
func (c *Client) UsernameAvailable(ctx context.Context, name string) (bool, error) {
	err := c.post(ctx, c.gateway+"/user/username/check", map[string]string{"username": name}, nil)
	if errors.Is(err, ErrUsernameNotAvailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Refresh exchanges the stored refresh token for a new token pair. The run
// loop calls this after every farming-window sleep to keep the session alive.
func (c *Client) Refresh(ctx context.Context) error {
	var res model.AuthResult
	if err := c.post(ctx, c.gateway+"/auth/refresh", map[string]string{"refresh": c.refreshToken}, &res); err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}
	c.accessToken = res.AccessToken
	c.refreshToken = res.RefreshToken
	c.log.Debug().Msg("session tokens refreshed")
	return nil
}

// setSession installs a successful auth result as the active session.
func (c *Client) setSession(res *model.AuthResult) {
	c.auth = res
	c.accessToken = res.AccessToken
	c.refreshToken = res.RefreshToken
}
