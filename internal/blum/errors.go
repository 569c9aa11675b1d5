package blum

import "errors"

// Typed outcomes for the fixed set of error strings the API is known to
// return. Anything outside this set surfaces as *APIError.
var (
	// ErrClaimRewardNextDay means the daily reward was already claimed today.
	ErrClaimRewardNextDay = errors.New("daily reward already claimed")
	// ErrNeedToStartFarm means a claim was attempted with no active farming window.
	ErrNeedToStartFarm = errors.New("farming has not been started")
	// ErrUsernameNotAvailable means the candidate username is taken.
	ErrUsernameNotAvailable = errors.New("username is not available")
	// ErrReferralTokenUnavailable means the referral code hit its usage limit.
	ErrReferralTokenUnavailable = errors.New("referral token limit exceeded")
	// ErrUserNotFound means the session resolves to a guest, not an account.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskAlreadyClaimed means the task reward was already collected.
	ErrTaskAlreadyClaimed = errors.New("task already claimed")
	// ErrTaskNotComplete means the task requirements are not fulfilled yet.
	ErrTaskNotComplete = errors.New("task is not done")
	// ErrAccountNotFound means no account exists and no referral path can
	// create one. Permanent for the affected session.
	ErrAccountNotFound = errors.New("account not found and no valid referral code")
)

// APIError carries a server error message that is not in the fixed table.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "blum api: " + e.Message
}

// messageTable maps the server's ad-hoc error strings to typed outcomes.
// Matching is exact: these strings are API contract, not patterns.
var messageTable = map[string]error{
	"same day":                                ErrClaimRewardNextDay,
	"Need to start farm":                      ErrNeedToStartFarm,
	"Username is not available":               ErrUsernameNotAvailable,
	"referral token limit has been exceeded":  ErrReferralTokenUnavailable,
	"Current user is guest":                   ErrUserNotFound,
	"Task is already claimed":                 ErrTaskAlreadyClaimed,
	"Task is not done":                        ErrTaskNotComplete,
}

// classifyMessage resolves a server message to a typed error. Unrecognized
// messages are never swallowed: they come back as *APIError with the
// original text.
func classifyMessage(message string) error {
	if err, ok := messageTable[message]; ok {
		return err
	}
	return &APIError{Message: message}
}
