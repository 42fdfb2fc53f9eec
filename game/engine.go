/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"strings"

	"github.com/google/uuid"
)

// Catalog is the read-only view of loaded profile data the engine selects
// from. The data-loading layer owns the file format.
type Catalog interface {
	ListCategories() []string
	ProfilesInCategory(category string) ([]Profile, error)
}

// Engine holds the transition functions of the session state machine. Every
// operation computes the full next state before returning it, so callers can
// keep the previous snapshot on failure.
type Engine struct {
	rng Shuffler
}

// NewEngine returns an engine backed by the given randomness source, or a
// crypto-seeded one when rng is nil.
func NewEngine(rng Shuffler) *Engine {
	if rng == nil {
		rng = NewShuffler()
	}

	return &Engine{rng: rng}
}

// NewGame returns a brand-new empty pending session, unrelated to any
// previous one.
func (e *Engine) NewGame() *SessionState {
	return &SessionState{
		ID:     uuid.NewString(),
		Status: StatusPending,
	}
}

// CreateSession builds a pending session from player names. Names must be
// non-blank, at most MaxNameLength characters, and unique ignoring case;
// between MinPlayers and MaxPlayers are required. Name order is turn order.
func (e *Engine) CreateSession(playerNames []string) (*SessionState, error) {
	if len(playerNames) < MinPlayers {
		return nil, validationf(ReasonTooFewPlayers, "at least %d players are required, got %d", MinPlayers, len(playerNames))
	}
	if len(playerNames) > MaxPlayers {
		return nil, validationf(ReasonTooManyPlayers, "at most %d players are allowed, got %d", MaxPlayers, len(playerNames))
	}

	players := make([]Player, 0, len(playerNames))
	seen := make(map[string]bool, len(playerNames))

	for _, name := range playerNames {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, validationf(ReasonBlankName, "player names must not be blank")
		}
		if len([]rune(name)) > MaxNameLength {
			return nil, validationf(ReasonNameTooLong, "player name %q exceeds %d characters", name, MaxNameLength)
		}

		folded := strings.ToLower(name)
		if seen[folded] {
			return nil, validationf(ReasonDuplicateName, "player name %q is already taken", name)
		}
		seen[folded] = true

		players = append(players, Player{
			ID:   uuid.NewString(),
			Name: name,
		})
	}

	session := e.NewGame()
	session.Players = players

	return session, nil
}

// StartGame selects the round plan and activates a pending session. The
// relevant catalog slice is copied into the session so reset and restart
// work without the catalog. Fails with InsufficientProfilesError when the
// selected categories cannot cover numberOfRounds distinct profiles.
func (e *Engine) StartGame(s *SessionState, catalog Catalog, categories []string, numberOfRounds int) (*SessionState, error) {
	if s.Status != StatusPending {
		return nil, validationf(ReasonNotPending, "session %s is %s, only pending sessions can be started", s.ID, s.Status)
	}

	pools := make(map[string][]Profile, len(categories))
	for _, category := range categories {
		profiles, err := catalog.ProfilesInCategory(category)
		if err != nil {
			return nil, err
		}
		pools[category] = profiles
	}

	selection, err := SelectProfiles(pools, categories, numberOfRounds, e.rng)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	next.SelectedCategories = append([]string(nil), categories...)
	next.SelectedProfiles = selection.SelectedProfiles
	next.RoundCategoryMap = selection.RoundCategoryMap
	next.NumberOfRounds = numberOfRounds
	next.Profiles = make(map[string][]Profile, len(pools))
	for category, profiles := range pools {
		next.Profiles[category] = profiles
	}

	beginRound(next, 1, next.Players[0].ID)
	next.Status = StatusActive

	return next, nil
}

// RevealNextClue reveals one more clue of the current profile and records it
// in the display history. At the clue ceiling it is a no-op, not an error;
// the UI is expected to disable the action there.
func (e *Engine) RevealNextClue(s *SessionState) (*SessionState, error) {
	if err := requireActive(s); err != nil {
		return nil, err
	}

	if s.CurrentTurn.CluesRead >= len(s.CurrentProfile.Clues) {
		return s, nil
	}

	next := s.Clone()
	next.RevealedClueHistory = append(next.RevealedClueHistory, next.CurrentProfile.Clues[next.CurrentTurn.CluesRead])
	next.CurrentTurn.CluesRead++

	return next, nil
}

// RevealAnswer marks the current profile's identity as shown. Independent of
// how many clues were read; idempotent.
func (e *Engine) RevealAnswer(s *SessionState) (*SessionState, error) {
	if err := requireActive(s); err != nil {
		return nil, err
	}

	next := s.Clone()
	next.CurrentTurn.Revealed = true

	return next, nil
}

// PassTurn hands the turn to the next player in order, wrapping after the
// last. Clue progress and scores are untouched.
func (e *Engine) PassTurn(s *SessionState) (*SessionState, error) {
	if err := requireActive(s); err != nil {
		return nil, err
	}

	next := s.Clone()
	next.CurrentTurn.ActivePlayerID = next.playerAfter(next.CurrentTurn.ActivePlayerID)

	return next, nil
}

// AwardPoints adds points (≥ 1) to a player's score.
func (e *Engine) AwardPoints(s *SessionState, playerID string, points int) (*SessionState, error) {
	if err := requireActive(s); err != nil {
		return nil, err
	}
	if points < 1 {
		return nil, validationf(ReasonInvalidPoints, "points must be at least 1, got %d", points)
	}

	i := s.playerIndex(playerID)
	if i < 0 {
		return nil, &UnknownPlayerError{PlayerID: playerID}
	}

	next := s.Clone()
	next.Players[i].Score += points

	return next, nil
}

// RemovePoints subtracts points (≥ 1) from a player's score. Removing more
// than the player holds is rejected, never clamped; scores cannot go
// negative.
func (e *Engine) RemovePoints(s *SessionState, playerID string, points int) (*SessionState, error) {
	if err := requireActive(s); err != nil {
		return nil, err
	}
	if points < 1 {
		return nil, validationf(ReasonInvalidPoints, "points must be at least 1, got %d", points)
	}

	i := s.playerIndex(playerID)
	if i < 0 {
		return nil, &UnknownPlayerError{PlayerID: playerID}
	}
	if points > s.Players[i].Score {
		return nil, validationf(ReasonPointsExceed, "cannot remove %d points from %q, current score is %d", points, s.Players[i].Name, s.Players[i].Score)
	}

	next := s.Clone()
	next.Players[i].Score -= points

	return next, nil
}

// NextProfile advances to the next round, or completes the session when the
// last round is done. The starting player keeps rotating across rounds
// instead of resetting to the first player.
func (e *Engine) NextProfile(s *SessionState) (*SessionState, error) {
	if err := requireActive(s); err != nil {
		return nil, err
	}

	next := s.Clone()

	if next.CurrentRound == next.NumberOfRounds {
		next.Status = StatusCompleted
		next.CurrentTurn = nil
		// CurrentProfile stays for the final scoreboard.
		return next, nil
	}

	beginRound(next, next.CurrentRound+1, next.playerAfter(next.CurrentTurn.ActivePlayerID))

	return next, nil
}

// ResetSamePlayers returns the session to pending with the same players and
// player IDs, all scores zeroed and the round plan cleared. The caller picks
// categories and rounds again via StartGame.
func (e *Engine) ResetSamePlayers(s *SessionState) (*SessionState, error) {
	next := s.Clone()
	next.Status = StatusPending
	for i := range next.Players {
		next.Players[i].Score = 0
	}

	next.SelectedCategories = nil
	next.SelectedProfiles = nil
	next.RoundCategoryMap = nil
	next.NumberOfRounds = 0
	next.CurrentRound = 0
	next.CurrentProfile = nil
	next.CurrentTurn = nil
	next.RevealedClueHistory = nil
	next.Profiles = nil

	return next, nil
}

// RestartSamePlan reshuffles a fresh plan over the same categories and round
// count, zeroes scores, and starts again at round 1 with the first player.
// Unlike StartGame, the selection wraps around when the session's pool is
// smaller than the round count, so a restart is always playable.
func (e *Engine) RestartSamePlan(s *SessionState) (*SessionState, error) {
	if len(s.SelectedCategories) == 0 || len(s.Profiles) == 0 {
		return nil, validationf(ReasonNoPlan, "session %s has no round plan to restart", s.ID)
	}

	selection, err := selectWrapping(s.Profiles, s.SelectedCategories, s.NumberOfRounds, e.rng)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	next.SelectedProfiles = selection.SelectedProfiles
	next.RoundCategoryMap = selection.RoundCategoryMap
	for i := range next.Players {
		next.Players[i].Score = 0
	}

	beginRound(next, 1, next.Players[0].ID)
	next.Status = StatusActive

	return next, nil
}

// beginRound points the session at the given round's profile and builds a
// fresh turn for it.
func beginRound(s *SessionState, round int, activePlayerID string) {
	s.CurrentRound = round
	s.CurrentProfile = s.profileByID(s.SelectedProfiles[round-1])
	s.CurrentTurn = &TurnState{
		ProfileID:      s.CurrentProfile.ID,
		ActivePlayerID: activePlayerID,
		CluesRead:      0,
		Revealed:       false,
	}
	s.RevealedClueHistory = nil
}

// playerAfter returns the ID of the player following the given one in turn
// order, wrapping to the first.
func (s *SessionState) playerAfter(playerID string) string {
	i := s.playerIndex(playerID)
	if i < 0 {
		panic("perfil: active player " + playerID + " not in session")
	}

	return s.Players[(i+1)%len(s.Players)].ID
}

func requireActive(s *SessionState) error {
	if s.Status != StatusActive {
		return validationf(ReasonNotActive, "session %s is %s, not active", s.ID, s.Status)
	}

	return nil
}
