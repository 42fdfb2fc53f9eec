/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Seednode/perfil/game"
)

func testSession(id string) *game.SessionState {
	return &game.SessionState{
		ID:     id,
		Status: game.StatusActive,
		Players: []game.Player{
			{ID: "player-1", Name: "Ann", Score: 3},
			{ID: "player-2", Name: "Ben", Score: 0},
		},
		SelectedCategories: []string{"people"},
		SelectedProfiles:   []string{"p1", "p2"},
		RoundCategoryMap:   []string{"people", "people"},
		CurrentRound:       2,
		NumberOfRounds:     2,
		CurrentProfile: &game.Profile{
			ID:       "p2",
			Category: "people",
			Name:     "Alan Turing",
			Clues:    []string{"one", "two"},
		},
		CurrentTurn: &game.TurnState{
			ProfileID:      "p2",
			ActivePlayerID: "player-2",
			CluesRead:      1,
		},
		RevealedClueHistory: []string{"one"},
		Profiles: map[string][]game.Profile{
			"people": {
				{ID: "p1", Category: "people", Name: "Ada Lovelace", Clues: []string{"one"}},
				{ID: "p2", Category: "people", Name: "Alan Turing", Clues: []string{"one", "two"}},
			},
		},
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	session := testSession("abc123")

	if err := m.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := m.Load(ctx, "abc123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(session, loaded) {
		t.Errorf("round trip changed the state\nsaved:  %+v\nloaded: %+v", session, loaded)
	}
}

func TestMemoryLoadReturnsIndependentCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Save(ctx, testSession("abc123")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, err := m.Load(ctx, "abc123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first.Players[0].Score = 99

	second, err := m.Load(ctx, "abc123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if second.Players[0].Score == 99 {
		t.Error("loads share state")
	}
}

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load: expected ErrNotFound, got %v", err)
	}
	if err := m.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Save(ctx, testSession("abc123")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Load(ctx, "abc123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryLastWriteWins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := testSession("abc123")
	second := testSession("abc123")
	second.Players[0].Score = 42

	if err := m.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := m.Load(ctx, "abc123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Players[0].Score != 42 {
		t.Errorf("expected the later write to win, got score %d", loaded.Players[0].Score)
	}
}

func TestMemoryNotify(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var changed []string
	m.Notify(func(id string) {
		changed = append(changed, id)
	})

	if err := m.Save(ctx, testSession("abc123")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{"abc123", "abc123"}
	if !reflect.DeepEqual(changed, want) {
		t.Errorf("expected change callbacks %v, got %v", want, changed)
	}

	// A failed delete does not fire the callback.
	_ = m.Delete(ctx, "missing")
	if len(changed) != 2 {
		t.Errorf("expected no callback for a failed delete, got %v", changed)
	}
}
