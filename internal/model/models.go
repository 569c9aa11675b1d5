// Package model defines the data models exchanged with the Blum API.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Amount is a balance value. The API is inconsistent about whether monetary
// fields arrive as JSON numbers or quoted strings, so both are accepted.
type Amount float64

// UnmarshalJSON decodes either a number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", string(data), err)
	}
	*a = Amount(f)
	return nil
}

// AuthResult holds whatever the auth provider endpoint returned. Every field
// may be empty: a missing access token means the account does not exist yet.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Username     string
}

// UnmarshalJSON accepts both response shapes the gateway uses: the nested
// {"token": {"access": ..., "refresh": ..., "user": ...}} form returned by
// the provider endpoint and the flat {"access": ..., "refresh": ...} form
// returned by the refresh endpoint.
func (r *AuthResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token *struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
			User    *struct {
				ID struct {
					ID string `json:"id"`
				} `json:"id"`
				Username string `json:"username"`
			} `json:"user"`
		} `json:"token"`
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Token != nil {
		r.AccessToken = raw.Token.Access
		r.RefreshToken = raw.Token.Refresh
		if raw.Token.User != nil {
			r.UserID = raw.Token.User.ID.ID
			r.Username = raw.Token.User.Username
		}
		return nil
	}
	r.AccessToken = raw.Access
	r.RefreshToken = raw.Refresh
	return nil
}

// Farming is a server-defined accrual window. End is always >= Start.
type Farming struct {
	Start   int64  `json:"startTime"`
	End     int64  `json:"endTime"`
	Rate    Amount `json:"earningsRate"`
	Balance Amount `json:"balance"`
}

// FarmingState classifies a farming window against a server timestamp.
type FarmingState int

const (
	// FarmingAbsent means no farming window exists and one must be started.
	FarmingAbsent FarmingState = iota
	// FarmingActive means the window is still accruing.
	FarmingActive
	// FarmingReady means the window has elapsed and can be claimed.
	FarmingReady
)

func (s FarmingState) String() string {
	switch s {
	case FarmingActive:
		return "active"
	case FarmingReady:
		return "ready"
	default:
		return "absent"
	}
}

// Balance is the account snapshot returned by GET /user/balance.
// Timestamp is the server clock in milliseconds; all farming-state decisions
// are made against it, never against the local clock.
type Balance struct {
	Available  Amount   `json:"availableBalance"`
	GamePasses int      `json:"playPasses"`
	Timestamp  int64    `json:"timestamp"`
	Farming    *Farming `json:"farming,omitempty"`
}

// FarmingState returns the state of the snapshot's farming window relative
// to the snapshot's own server timestamp.
func (b *Balance) FarmingState() FarmingState {
	switch {
	case b.Farming == nil:
		return FarmingAbsent
	case b.Farming.End < b.Timestamp:
		return FarmingReady
	default:
		return FarmingActive
	}
}

// FarmingClaim is the snapshot returned by POST /farming/claim.
type FarmingClaim struct {
	Available  Amount `json:"availableBalance"`
	GamePasses int    `json:"playPasses"`
	Timestamp  int64  `json:"timestamp"`
}

// GameSession is an in-flight mini-game play. It lives for exactly one
// start/claim cycle and is never persisted.
type GameSession struct {
	GameID string `json:"gameId"`
}

// TaskStatus is the task lifecycle status. Status moves strictly forward and
// every transition is the result of a remote call, never inferred locally.
type TaskStatus string

const (
	TaskNotStarted    TaskStatus = "NOT_STARTED"
	TaskStarted       TaskStatus = "STARTED"
	TaskReadyForClaim TaskStatus = "READY_FOR_CLAIM"
	TaskFinished      TaskStatus = "FINISHED"
)

// TaskType distinguishes how a task is completed.
type TaskType string

const (
	TaskSocialSubscription TaskType = "SOCIAL_SUBSCRIPTION"
	TaskProgressTarget     TaskType = "PROGRESS_TARGET"
	TaskApplicationLaunch  TaskType = "APPLICATION_LAUNCH"
)

// TaskKind distinguishes recurring tasks from one-shot onboarding tasks.
type TaskKind string

const (
	TaskOngoing TaskKind = "ONGOING"
	TaskInitial TaskKind = "INITIAL"
)

// SocialSubscription is the side-effect requirement attached to
// subscription tasks. When OpenInTelegram is set the referenced channel has
// to be joined through the chat platform before the task can be claimed.
type SocialSubscription struct {
	OpenInTelegram bool   `json:"openInTelegram"`
	URL            string `json:"url"`
}

// Task is one entry of the remote task list.
type Task struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Reward             string              `json:"reward"`
	Kind               TaskKind            `json:"kind"`
	Type               TaskType            `json:"type"`
	Status             TaskStatus          `json:"status"`
	SocialSubscription *SocialSubscription `json:"socialSubscription,omitempty"`
}
