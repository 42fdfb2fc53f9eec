/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func testRNG(a, b uint64) Shuffler {
	return rand.New(rand.NewPCG(a, b))
}

func testPool(category string, count int) []Profile {
	profiles := make([]Profile, count)
	for i := range profiles {
		profiles[i] = Profile{
			ID:       fmt.Sprintf("%s-%d", category, i+1),
			Category: category,
			Name:     fmt.Sprintf("%s profile %d", category, i+1),
			Clues:    []string{"first clue", "second clue", "third clue", "fourth clue"},
		}
	}
	return profiles
}

func poolIDs(profiles []Profile) map[string]bool {
	ids := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		ids[p.ID] = true
	}
	return ids
}

func TestSelectProfilesRoundRobin(t *testing.T) {
	pools := map[string][]Profile{
		"a": testPool("a", 3),
		"b": testPool("b", 3),
		"c": testPool("c", 3),
	}

	selection, err := SelectProfiles(pools, []string{"a", "b", "c"}, 7, testRNG(1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantMap := []string{"a", "b", "c", "a", "b", "c", "a"}
	if len(selection.RoundCategoryMap) != len(wantMap) {
		t.Fatalf("expected %d rounds, got %d", len(wantMap), len(selection.RoundCategoryMap))
	}
	for i, category := range wantMap {
		if selection.RoundCategoryMap[i] != category {
			t.Errorf("round %d: expected category %q, got %q", i+1, category, selection.RoundCategoryMap[i])
		}
	}

	for i, id := range selection.SelectedProfiles {
		category := selection.RoundCategoryMap[i]
		if !poolIDs(pools[category])[id] {
			t.Errorf("round %d: profile %q not in category %q", i+1, id, category)
		}
	}
}

func TestSelectProfilesNoRepeats(t *testing.T) {
	pools := map[string][]Profile{
		"a": testPool("a", 5),
		"b": testPool("b", 4),
	}

	selection, err := SelectProfiles(pools, []string{"a", "b"}, 9, testRNG(7, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, id := range selection.SelectedProfiles {
		if seen[id] {
			t.Errorf("profile %q selected twice", id)
		}
		seen[id] = true
	}
}

func TestSelectProfilesSingleCategory(t *testing.T) {
	pools := map[string][]Profile{
		"movies": testPool("movies", 3),
	}

	selection, err := SelectProfiles(pools, []string{"movies"}, 3, testRNG(3, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, category := range selection.RoundCategoryMap {
		if category != "movies" {
			t.Errorf("round %d: expected category movies, got %q", i+1, category)
		}
	}
}

func TestSelectProfilesUnevenCategories(t *testing.T) {
	pools := map[string][]Profile{
		"a": testPool("a", 1),
		"b": testPool("b", 5),
	}

	selection, err := SelectProfiles(pools, []string{"a", "b"}, 4, testRNG(5, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Category a is exhausted after round 1, so the remaining rounds fall
	// through to b.
	wantMap := []string{"a", "b", "b", "b"}
	for i, category := range wantMap {
		if selection.RoundCategoryMap[i] != category {
			t.Errorf("round %d: expected category %q, got %q", i+1, category, selection.RoundCategoryMap[i])
		}
	}

	seen := make(map[string]bool)
	for _, id := range selection.SelectedProfiles {
		if seen[id] {
			t.Errorf("profile %q selected twice", id)
		}
		seen[id] = true
	}
}

func TestSelectProfilesInsufficient(t *testing.T) {
	pools := map[string][]Profile{
		"movies": testPool("movies", 3),
	}

	_, err := SelectProfiles(pools, []string{"movies"}, 4, testRNG(1, 2))

	var insufficient *InsufficientProfilesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientProfilesError, got %v", err)
	}
	if insufficient.Shortfall() != 1 {
		t.Errorf("expected shortfall 1, got %d", insufficient.Shortfall())
	}
	if insufficient.Requested != 4 || insufficient.Available != 3 {
		t.Errorf("expected requested=4 available=3, got %+v", insufficient)
	}
}

func TestSelectProfilesValidation(t *testing.T) {
	pools := map[string][]Profile{
		"a": testPool("a", 3),
	}

	tests := []struct {
		name       string
		categories []string
		rounds     int
		reason     string
	}{
		{
			name:       "zero rounds",
			categories: []string{"a"},
			rounds:     0,
			reason:     ReasonInvalidRounds,
		},
		{
			name:       "negative rounds",
			categories: []string{"a"},
			rounds:     -2,
			reason:     ReasonInvalidRounds,
		},
		{
			name:       "no categories",
			categories: nil,
			rounds:     3,
			reason:     ReasonNoCategories,
		},
		{
			name:       "unknown category has no pool",
			categories: []string{"missing"},
			rounds:     1,
			reason:     ReasonEmptyCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectProfiles(pools, tt.categories, tt.rounds, testRNG(1, 2))

			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validation.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, validation.Reason)
			}
		})
	}
}

func TestSelectWrappingReusesPool(t *testing.T) {
	pools := map[string][]Profile{
		"movies": testPool("movies", 3),
	}

	selection, err := selectWrapping(pools, []string{"movies"}, 5, testRNG(9, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selection.SelectedProfiles) != 5 {
		t.Fatalf("expected 5 rounds, got %d", len(selection.SelectedProfiles))
	}

	// The first forward pass is still repeat-free.
	seen := make(map[string]bool)
	for _, id := range selection.SelectedProfiles[:3] {
		if seen[id] {
			t.Errorf("profile %q repeated within forward pass", id)
		}
		seen[id] = true
	}

	for i, id := range selection.SelectedProfiles {
		if !poolIDs(pools["movies"])[id] {
			t.Errorf("round %d: profile %q not in pool", i+1, id)
		}
	}
}

func TestSelectProfilesSameSeedSameOrder(t *testing.T) {
	pools := map[string][]Profile{
		"a": testPool("a", 10),
	}

	first, err := SelectProfiles(pools, []string{"a"}, 10, testRNG(42, 42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := SelectProfiles(pools, []string{"a"}, 10, testRNG(42, 42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.SelectedProfiles {
		if first.SelectedProfiles[i] != second.SelectedProfiles[i] {
			t.Fatalf("same seed diverged at round %d", i+1)
		}
	}
}

func TestSelectProfilesShufflesBetweenRuns(t *testing.T) {
	pools := map[string][]Profile{
		"a": testPool("a", 10),
	}

	const trials = 20
	differing := 0
	total := 0

	for trial := 0; trial < trials; trial++ {
		first, err := SelectProfiles(pools, []string{"a"}, 10, testRNG(uint64(trial), 1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := SelectProfiles(pools, []string{"a"}, 10, testRNG(uint64(trial), 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i := range first.SelectedProfiles {
			total++
			if first.SelectedProfiles[i] != second.SelectedProfiles[i] {
				differing++
			}
		}
	}

	// Independent shuffles of 10 profiles should disagree in ~90% of
	// positions; 40% is the floor we guarantee.
	if float64(differing) < 0.4*float64(total) {
		t.Errorf("expected at least 40%% differing positions, got %d/%d", differing, total)
	}
}
