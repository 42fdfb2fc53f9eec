/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import "fmt"

// Reason codes carried by ValidationError. Stable strings, so clients can
// map them to localized messages.
const (
	ReasonTooFewPlayers  = "too_few_players"
	ReasonTooManyPlayers = "too_many_players"
	ReasonBlankName      = "blank_player_name"
	ReasonNameTooLong    = "player_name_too_long"
	ReasonDuplicateName  = "duplicate_player_name"
	ReasonInvalidPoints  = "invalid_points"
	ReasonPointsExceed   = "points_exceed_score"
	ReasonInvalidRounds  = "invalid_round_count"
	ReasonNoCategories   = "no_categories"
	ReasonEmptyCategory  = "empty_category"
	ReasonNotPending     = "session_not_pending"
	ReasonNotActive      = "session_not_active"
	ReasonNoPlan         = "no_round_plan"
)

// ValidationError reports malformed input to a transition. The session is
// never partially mutated when one is returned.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(reason, format string, args ...any) *ValidationError {
	return &ValidationError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// InsufficientProfilesError reports a round count that exceeds the profiles
// available across the selected categories.
type InsufficientProfilesError struct {
	Requested int
	Available int
}

func (e *InsufficientProfilesError) Error() string {
	return fmt.Sprintf("requested %d rounds but only %d profiles are available (short by %d)",
		e.Requested, e.Available, e.Shortfall())
}

// Shortfall is how many more profiles would be needed to satisfy the request.
func (e *InsufficientProfilesError) Shortfall() int {
	return e.Requested - e.Available
}

// UnknownPlayerError reports an operation referencing a player ID that is
// not part of the session. Normal UI flow never produces one.
type UnknownPlayerError struct {
	PlayerID string
}

func (e *UnknownPlayerError) Error() string {
	return fmt.Sprintf("player %q is not in this session", e.PlayerID)
}
