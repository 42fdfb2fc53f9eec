/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package game implements the Perfil session state machine: one hidden
// profile per round, players taking turns revealing clues and guessing,
// a scoreboard carried across rounds.
package game

// Session status values.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Player limits enforced by CreateSession.
const (
	MinPlayers    = 2
	MaxPlayers    = 8
	MaxNameLength = 30
)

// Player is one participant on the shared device. Insertion order in
// SessionState.Players is turn order.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Profile is a hidden subject to be guessed, exposed clue by clue.
// Immutable once loaded; sessions reference profiles by ID.
type Profile struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Name     string            `json:"name"`
	Clues    []string          `json:"clues"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TurnState tracks progress within the current round. It is discarded and
// rebuilt whenever the session advances to the next profile.
type TurnState struct {
	ProfileID      string `json:"profileId"`
	ActivePlayerID string `json:"activePlayerId"`
	CluesRead      int    `json:"cluesRead"`
	Revealed       bool   `json:"revealed"`
}

// SessionState is the aggregate root for one play-through. Transitions never
// mutate a state in place; they return a fresh copy, so a failed operation
// leaves the previous state untouched.
type SessionState struct {
	ID                  string               `json:"id"`
	Status              string               `json:"status"`
	Players             []Player             `json:"players"`
	SelectedCategories  []string             `json:"selectedCategories,omitempty"`
	SelectedProfiles    []string             `json:"selectedProfiles,omitempty"`
	RoundCategoryMap    []string             `json:"roundCategoryMap,omitempty"`
	CurrentRound        int                  `json:"currentRound"`
	CurrentProfile      *Profile             `json:"currentProfile,omitempty"`
	CurrentTurn         *TurnState           `json:"currentTurn,omitempty"`
	NumberOfRounds      int                  `json:"numberOfRounds"`
	RevealedClueHistory []string             `json:"revealedClueHistory,omitempty"`
	Profiles            map[string][]Profile `json:"profiles,omitempty"`
}

// Clone returns a deep copy of the session, safe to hand out as a snapshot
// or to mutate into the next state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}

	next := *s

	next.Players = append([]Player(nil), s.Players...)
	next.SelectedCategories = append([]string(nil), s.SelectedCategories...)
	next.SelectedProfiles = append([]string(nil), s.SelectedProfiles...)
	next.RoundCategoryMap = append([]string(nil), s.RoundCategoryMap...)
	next.RevealedClueHistory = append([]string(nil), s.RevealedClueHistory...)
	next.CurrentProfile = s.CurrentProfile.clone()

	if s.CurrentTurn != nil {
		turn := *s.CurrentTurn
		next.CurrentTurn = &turn
	}

	if s.Profiles != nil {
		next.Profiles = make(map[string][]Profile, len(s.Profiles))
		for category, profiles := range s.Profiles {
			copied := make([]Profile, len(profiles))
			for i, p := range profiles {
				copied[i] = *p.clone()
			}
			next.Profiles[category] = copied
		}
	}

	return &next
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}

	next := *p
	next.Clues = append([]string(nil), p.Clues...)

	if p.Metadata != nil {
		next.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			next.Metadata[k] = v
		}
	}

	return &next
}

// playerIndex returns the position of a player ID in turn order, or -1.
func (s *SessionState) playerIndex(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}

	return -1
}

// profileByID looks up a profile in the session-resident catalog slice.
// The plan is always built from that slice, so a miss means the state has
// been corrupted.
func (s *SessionState) profileByID(profileID string) *Profile {
	for _, profiles := range s.Profiles {
		for i := range profiles {
			if profiles[i].ID == profileID {
				return profiles[i].clone()
			}
		}
	}

	panic("perfil: profile " + profileID + " in round plan but not in session catalog")
}
