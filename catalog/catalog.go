/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package catalog loads the profile data set: a manifest naming, per locale,
// the per-category data files, plus the files themselves. The loaded catalog
// is immutable and scoped to a single locale.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/Seednode/perfil/game"
)

const manifestFile = "manifest.json"

var (
	ErrUnknownLocale   = errors.New("locale not in manifest")
	ErrUnknownCategory = errors.New("category not in catalog")
)

type manifest struct {
	Locales map[string]localeManifest `json:"locales"`
}

type localeManifest struct {
	Categories map[string]categoryEntry `json:"categories"`
}

type categoryEntry struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

type categoryFile struct {
	Category string         `json:"category"`
	Profiles []game.Profile `json:"profiles"`
}

// Catalog is an in-memory, locale-scoped collection of profiles grouped by
// category, deduplicated by profile ID.
type Catalog struct {
	locale     string
	categories []string
	profiles   map[string][]game.Profile
}

// Load reads the manifest and every data file for one locale out of fsys.
// Any unreadable or malformed file fails the whole load; the game must not
// start on a partial catalog.
func Load(fsys fs.FS, locale string) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, manifestFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", manifestFile, err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifestFile, err)
	}

	lm, ok := m.Locales[locale]
	if !ok {
		available := make([]string, 0, len(m.Locales))
		for l := range m.Locales {
			available = append(available, l)
		}
		sort.Strings(available)

		return nil, fmt.Errorf("%w: %q (have: %s)", ErrUnknownLocale, locale, strings.Join(available, ", "))
	}
	if len(lm.Categories) == 0 {
		return nil, fmt.Errorf("locale %q has no categories", locale)
	}

	c := &Catalog{
		locale:   locale,
		profiles: make(map[string][]game.Profile, len(lm.Categories)),
	}

	for category, entry := range lm.Categories {
		profiles, err := loadCategory(fsys, category, entry)
		if err != nil {
			return nil, err
		}

		c.profiles[category] = profiles
		c.categories = append(c.categories, category)
	}
	sort.Strings(c.categories)

	return c, nil
}

func loadCategory(fsys fs.FS, category string, entry categoryEntry) ([]game.Profile, error) {
	raw, err := fs.ReadFile(fsys, entry.File)
	if err != nil {
		return nil, fmt.Errorf("reading category %q: %w", category, err)
	}

	var cf categoryFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parsing category %q: %w", category, err)
	}

	profiles := make([]game.Profile, 0, len(cf.Profiles))
	seen := make(map[string]bool, len(cf.Profiles))

	for _, p := range cf.Profiles {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("category %q: profile %q has no id", category, p.Name)
		case p.Name == "":
			return nil, fmt.Errorf("category %q: profile %q has no name", category, p.ID)
		case len(p.Clues) == 0:
			return nil, fmt.Errorf("category %q: profile %q has no clues", category, p.ID)
		}

		// First occurrence wins on duplicate ids.
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		p.Category = category
		profiles = append(profiles, p)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("category %q has no profiles", category)
	}

	return profiles, nil
}

// Locale returns the locale this catalog was loaded for.
func (c *Catalog) Locale() string {
	return c.locale
}

// ListCategories returns the category names, sorted.
func (c *Catalog) ListCategories() []string {
	return append([]string(nil), c.categories...)
}

// ProfilesInCategory returns the deduplicated profiles of one category.
func (c *Catalog) ProfilesInCategory(category string) ([]game.Profile, error) {
	profiles, ok := c.profiles[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	return append([]game.Profile(nil), profiles...), nil
}

// Counts returns the number of profiles per category, for round-count
// bounds in the UI.
func (c *Catalog) Counts() map[string]int {
	counts := make(map[string]int, len(c.profiles))
	for category, profiles := range c.profiles {
		counts[category] = len(profiles)
	}

	return counts
}
