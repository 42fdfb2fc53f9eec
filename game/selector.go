/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

// Selection is a precomputed round plan: one profile per round, plus the
// category each round drew from. Both slices have length numberOfRounds.
type Selection struct {
	SelectedProfiles []string
	RoundCategoryMap []string
}

// SelectProfiles builds a randomized, no-repeat round plan from the given
// per-category pools. Categories are cycled round-robin in the order given;
// each category's pool is shuffled independently. The plan never assigns the
// same profile twice, so numberOfRounds must not exceed the summed pool size,
// or an InsufficientProfilesError is returned.
func SelectProfiles(pools map[string][]Profile, categories []string, numberOfRounds int, rng Shuffler) (*Selection, error) {
	return selectPlan(pools, categories, numberOfRounds, rng, false)
}

// selectWrapping is the restart variant: once the entire pool has been dealt
// out, all cursors reset and profiles are reused. A restarted game must stay
// playable even when the available pool shrank below the round count.
func selectWrapping(pools map[string][]Profile, categories []string, numberOfRounds int, rng Shuffler) (*Selection, error) {
	return selectPlan(pools, categories, numberOfRounds, rng, true)
}

func selectPlan(pools map[string][]Profile, categories []string, numberOfRounds int, rng Shuffler, wrap bool) (*Selection, error) {
	if numberOfRounds < 1 {
		return nil, validationf(ReasonInvalidRounds, "number of rounds must be at least 1, got %d", numberOfRounds)
	}
	if len(categories) == 0 {
		return nil, validationf(ReasonNoCategories, "at least one category must be selected")
	}

	shuffled := make(map[string][]string, len(categories))
	available := 0

	for _, category := range categories {
		profiles := pools[category]
		if len(profiles) == 0 {
			return nil, validationf(ReasonEmptyCategory, "category %q has no profiles", category)
		}

		ids := make([]string, len(profiles))
		for i, p := range profiles {
			ids[i] = p.ID
		}
		rng.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})

		shuffled[category] = ids
		available += len(ids)
	}

	if !wrap && numberOfRounds > available {
		return nil, &InsufficientProfilesError{
			Requested: numberOfRounds,
			Available: available,
		}
	}

	selection := &Selection{
		SelectedProfiles: make([]string, 0, numberOfRounds),
		RoundCategoryMap: make([]string, 0, numberOfRounds),
	}
	cursors := make(map[string]int, len(categories))
	dealt := 0

	for round := 0; round < numberOfRounds; round++ {
		if wrap && dealt == available {
			// Whole pool consumed; start a wrap pass.
			for category := range cursors {
				cursors[category] = 0
			}
			dealt = 0
		}

		// The designated category for this round; if its pool ran dry
		// (uneven category sizes), fall through to the next category in
		// cycle order that still has profiles.
		var picked string
		for offset := 0; offset < len(categories); offset++ {
			candidate := categories[(round+offset)%len(categories)]
			if cursors[candidate] < len(shuffled[candidate]) {
				picked = candidate
				break
			}
		}
		if picked == "" {
			panic("perfil: selection pool exhausted after validation")
		}

		selection.SelectedProfiles = append(selection.SelectedProfiles, shuffled[picked][cursors[picked]])
		selection.RoundCategoryMap = append(selection.RoundCategoryMap, picked)
		cursors[picked]++
		dealt++
	}

	return selection, nil
}
