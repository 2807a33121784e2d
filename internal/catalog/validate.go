// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"github.com/agnivade/levenshtein"

	"github.com/jeranaias/retrohub-setup/internal/errs"
)

// Validation is the result of checking a selection against the required set.
type Validation struct {
	// IsValid is true iff Missing is empty.
	IsValid bool
	// Missing lists required components absent from the selection, in catalog order.
	Missing []string
	// Unknown lists selected names the catalog does not know. They do not affect IsValid.
	Unknown []string
}

// Err returns a MissingDependency error for an invalid selection, nil otherwise.
func (v Validation) Err() error {
	if v.IsValid {
		return nil
	}
	return errs.Missing("selection is missing required components", v.Missing)
}

// Validate checks that every required component is in selected.
func (c *Catalog) Validate(selected []string) Validation {
	set := make(map[string]bool, len(selected))
	var unknown []string
	for _, name := range selected {
		if set[name] {
			continue
		}
		set[name] = true
		if !c.Has(name) {
			unknown = append(unknown, name)
		}
	}

	var missing []string
	for _, name := range c.RequiredNames() {
		if !set[name] {
			missing = append(missing, name)
		}
	}

	return Validation{
		IsValid: len(missing) == 0,
		Missing: missing,
		Unknown: unknown,
	}
}

// Gap records a selected component whose direct dependencies are not selected.
type Gap struct {
	Component string
	Missing   []string
}

// ClosureGaps returns every selected component with dependencies outside the
// selection, in selection order. Unknown names are ignored.
func (c *Catalog) ClosureGaps(selected []string) []Gap {
	set := make(map[string]bool, len(selected))
	for _, name := range selected {
		set[name] = true
	}

	var gaps []Gap
	seen := make(map[string]bool, len(selected))
	for _, name := range selected {
		a, ok := c.byName[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		var missing []string
		for _, dep := range a.Base().Dependencies {
			if !set[dep] {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			gaps = append(gaps, Gap{Component: name, Missing: missing})
		}
	}
	return gaps
}

// Resolve expands the required set plus the requested optional components
// into their dependency closure, ordered dependencies first.
func (c *Catalog) Resolve(optional []string) ([]string, error) {
	want := make(map[string]bool, len(c.order))
	for _, name := range c.RequiredNames() {
		want[name] = true
	}
	for _, name := range optional {
		if !c.Has(name) {
			return nil, c.unknown(name)
		}
		want[name] = true
	}

	roots := make([]string, 0, len(want))
	for name := range want {
		roots = append(roots, name)
	}
	for _, name := range roots {
		deps, _ := c.TransitiveDependenciesOf(name)
		for _, d := range deps {
			want[d] = true
		}
	}

	out := make([]string, 0, len(want))
	for _, name := range c.installOrder {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// Suggest returns the closest component name to name, or "" if nothing is close.
func (c *Catalog) Suggest(name string) string {
	best := ""
	bestDist := -1
	for _, candidate := range c.order {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	limit := len(name) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
