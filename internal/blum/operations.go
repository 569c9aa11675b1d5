package blum

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"blum-bot/internal/model"
	"blum-bot/internal/pkg/wait"
)

// ClaimDailyReward collects the daily reward. Returns false without error
// when the reward was already claimed today.
func (c *Client) ClaimDailyReward(ctx context.Context) (bool, error) {
	var res struct {
		Message string `json:"message"`
	}
	err := c.post(ctx, c.game+"/daily-reward?offset=-180", nil, &res)
	if errors.Is(err, ErrClaimRewardNextDay) {
		c.log.Debug().Msg("daily reward already claimed")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if res.Message == "OK" {
		c.log.Info().Msg("daily reward claimed")
		return true, nil
	}
	return false, nil
}

// ClaimFarming collects an elapsed farming window. When the server reports
// that no window is running, the compensating action is to start one; in
// that case the claim snapshot is nil.
func (c *Client) ClaimFarming(ctx context.Context) (*model.FarmingClaim, error) {
	var res model.FarmingClaim
	err := c.post(ctx, c.game+"/farming/claim", nil, &res)
	if errors.Is(err, ErrNeedToStartFarm) {
		if _, err := c.StartFarming(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.log.Info().Float64("balance", float64(res.Available)).Msg("farming claimed")
	return &res, nil
}

// StartFarming opens a new farming window.
func (c *Client) StartFarming(ctx context.Context) (*model.Farming, error) {
	var res model.Farming
	if err := c.post(ctx, c.game+"/farming/start", nil, &res); err != nil {
		return nil, err
	}
	c.log.Info().Msg("farming started")
	return &res, nil
}

// GetBalance fetches the current account snapshot.
func (c *Client) GetBalance(ctx context.Context) (*model.Balance, error) {
	var res model.Balance
	if err := c.get(ctx, c.game+"/user/balance", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// StartGame begins a mini-game play and returns its session.
func (c *Client) StartGame(ctx context.Context) (*model.GameSession, error) {
	var res model.GameSession
	if err := c.post(ctx, c.game+"/game/play", nil, &res); err != nil {
		return nil, err
	}
	c.log.Debug().Str("game_id", res.GameID).Msg("game started")
	return &res, nil
}

// ClaimGame submits a random point value for a finished game. A non-OK
// response is logged, not escalated: a lost game reward is no reason to stop
// the account.
func (c *Client) ClaimGame(ctx context.Context, game *model.GameSession) error {
	points := c.pointsMin + rand.N(c.pointsMax-c.pointsMin+1)
	payload := map[string]any{"gameId": game.GameID, "points": points}

	var res struct {
		Message string `json:"message"`
	}
	if err := c.post(ctx, c.game+"/game/claim", payload, &res); err != nil {
		return err
	}
	if res.Message == "OK" {
		c.log.Info().Int("points", points).Msg("game finished")
	} else {
		c.log.Error().Str("message", res.Message).Msg("game claim rejected")
	}
	return nil
}

// PlayGame runs one full play cycle: start, dwell for roughly the length of
// a real game, claim.
func (c *Client) PlayGame(ctx context.Context) error {
	game, err := c.StartGame(ctx)
	if err != nil {
		return err
	}
	if err := wait.Between(ctx, c.timings.GameDwellMin, c.timings.GameDwellMax); err != nil {
		return err
	}
	return c.ClaimGame(ctx, game)
}

// GetTasks fetches the ordered task list.
func (c *Client) GetTasks(ctx context.Context) ([]model.Task, error) {
	var res []model.Task
	if err := c.get(ctx, c.game+"/tasks", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// StartTask moves a task into the STARTED state. An already-claimed task is
// not an error; it returns nil.
func (c *Client) StartTask(ctx context.Context, taskID string) (*model.Task, error) {
	var res model.Task
	err := c.post(ctx, c.game+"/tasks/"+taskID+"/start", nil, &res)
	if errors.Is(err, ErrTaskAlreadyClaimed) {
		c.log.Debug().Str("task_id", taskID).Msg("task already claimed, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("start task %s: %w", taskID, err)
	}
	c.log.Debug().Str("task_id", taskID).Str("reward", res.Reward).Msg("task started")
	return &res, nil
}

// ClaimTask collects a started task's reward after a short human-pacing
// delay. An incomplete task is logged and returns nil.
func (c *Client) ClaimTask(ctx context.Context, taskID string) (*model.Task, error) {
	if err := wait.Between(ctx, c.timings.TaskClaimMin, c.timings.TaskClaimMax); err != nil {
		return nil, err
	}
	var res model.Task
	err := c.post(ctx, c.game+"/tasks/"+taskID+"/claim", nil, &res)
	if errors.Is(err, ErrTaskNotComplete) {
		c.log.Error().Str("task_id", taskID).Msg("task is not done yet")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task %s: %w", taskID, err)
	}
	c.log.Info().Str("task_id", taskID).Str("reward", res.Reward).Msg("task completed")
	return &res, nil
}
