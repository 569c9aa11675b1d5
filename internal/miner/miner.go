// Package miner drives one account through the indefinite farming loop:
// bootstrap, farming window management, daily reward, tasks and game plays.
package miner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"blum-bot/internal/model"
	"blum-bot/internal/pkg/wait"
)

// API is the slice of the Blum client the run loop depends on.
type API interface {
	Login(ctx context.Context, referrals []string) (*model.AuthResult, error)
	Refresh(ctx context.Context) error
	GetBalance(ctx context.Context) (*model.Balance, error)
	StartFarming(ctx context.Context) (*model.Farming, error)
	ClaimFarming(ctx context.Context) (*model.FarmingClaim, error)
	ClaimDailyReward(ctx context.Context) (bool, error)
	GetTasks(ctx context.Context) ([]model.Task, error)
	StartTask(ctx context.Context, taskID string) (*model.Task, error)
	ClaimTask(ctx context.Context, taskID string) (*model.Task, error)
	PlayGame(ctx context.Context) error
}

// Subscriber performs the channel-join side effect required by
// subscription tasks.
type Subscriber interface {
	JoinChannel(ctx context.Context, channelURL string) error
}

// Timings bounds the randomized pacing between loop actions.
type Timings struct {
	ShortPauseMin time.Duration
	ShortPauseMax time.Duration
	GamePauseMin  time.Duration
	GamePauseMax  time.Duration
}

// DefaultTimings returns the loop pacing used in production.
func DefaultTimings() Timings {
	return Timings{
		ShortPauseMin: 5 * time.Second,
		ShortPauseMax: 10 * time.Second,
		GamePauseMin:  10 * time.Second,
		GamePauseMax:  20 * time.Second,
	}
}

// Options configures a Miner.
type Options struct {
	// Referrals is the configured referral code list used when the account
	// has to be created.
	Referrals []string

	// PlayGames enables spending game passes.
	PlayGames bool

	Timings *Timings

	Logger zerolog.Logger
}

// Miner runs one account. Accounts are fully independent: a Miner shares no
// state with other Miners and every call it makes is strictly sequential.
type Miner struct {
	api     API
	chat    Subscriber
	opts    Options
	timings Timings
	log     zerolog.Logger
}

// New creates a Miner for one account.
func New(api API, chat Subscriber, opts Options) *Miner {
	timings := DefaultTimings()
	if opts.Timings != nil {
		timings = *opts.Timings
	}
	return &Miner{
		api:     api,
		chat:    chat,
		opts:    opts,
		timings: timings,
		log:     opts.Logger,
	}
}

// Run bootstraps the account and loops until the context is cancelled or an
// unrecovered failure propagates out. There is no terminal success state.
func (m *Miner) Run(ctx context.Context) error {
	if _, err := m.api.Login(ctx, m.opts.Referrals); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	balance, err := m.api.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("initial balance: %w", err)
	}
	m.logBalance(balance)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch balance.FarmingState() {
		case model.FarmingAbsent:
			if _, err := m.api.StartFarming(ctx); err != nil {
				return err
			}
		case model.FarmingReady:
			if _, err := m.api.ClaimFarming(ctx); err != nil {
				return err
			}
			if err := wait.Between(ctx, m.timings.ShortPauseMin, m.timings.ShortPauseMax); err != nil {
				return err
			}
			if _, err := m.api.StartFarming(ctx); err != nil {
				return err
			}
		}

		claimed, err := m.api.ClaimDailyReward(ctx)
		if err != nil {
			return err
		}
		if claimed {
			balance, err = m.api.GetBalance(ctx)
			if err != nil {
				return err
			}
			m.logBalance(balance)
		}

		balance, err = m.api.GetBalance(ctx)
		if err != nil {
			return err
		}

		if err := m.processTasks(ctx); err != nil {
			return err
		}

		if balance.GamePasses > 0 && m.opts.PlayGames {
			m.log.Info().Int("passes", balance.GamePasses).Msg("game passes available, playing")
			for i := 0; i < balance.GamePasses; i++ {
				if err := wait.Between(ctx, m.timings.GamePauseMin, m.timings.GamePauseMax); err != nil {
					return err
				}
				if err := m.api.PlayGame(ctx); err != nil {
					return err
				}
			}
			if err := wait.Between(ctx, m.timings.ShortPauseMin, m.timings.ShortPauseMax); err != nil {
				return err
			}
		}

		if balance.FarmingState() == model.FarmingActive {
			// Sleep to the server-reported window end plus a second of margin,
			// then refresh the tokens: the session would go stale across an
			// eight-hour sleep otherwise.
			d := time.Duration(balance.Farming.End-balance.Timestamp)*time.Millisecond + time.Second
			m.log.Info().Str("duration", formatDuration(d)).Msg("farming active, sleeping until window end")
			if err := wait.For(ctx, d); err != nil {
				return err
			}
			if err := m.api.Refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// processTasks walks the remote task list once: start everything startable,
// claim everything started, joining channels first where required.
func (m *Miner) processTasks(ctx context.Context) error {
	tasks, err := m.api.GetTasks(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		switch {
		case task.Status == model.TaskNotStarted && task.Type != model.TaskProgressTarget:
			if _, err := m.api.StartTask(ctx, task.ID); err != nil {
				return err
			}
		case task.Status == model.TaskStarted:
			if sub := task.SocialSubscription; sub != nil && sub.OpenInTelegram {
				if err := m.chat.JoinChannel(ctx, sub.URL); err != nil {
					return fmt.Errorf("subscribe for task %s: %w", task.ID, err)
				}
			}
			if _, err := m.api.ClaimTask(ctx, task.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Miner) logBalance(b *model.Balance) {
	m.log.Info().
		Float64("balance", float64(b.Available)).
		Int("game_passes", b.GamePasses).
		Stringer("farming", b.FarmingState()).
		Msg("balance snapshot")
}

// formatDuration renders a duration as "Xh Ym Zs" for the sleep log line.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
