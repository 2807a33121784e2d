// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"strings"

	"github.com/jeranaias/retrohub-setup/internal/errs"
)

// Catalog is an immutable registry of artifacts keyed by name.
// It is safe for concurrent use.
type Catalog struct {
	order  []string
	byName map[string]Artifact
	// installOrder is a dependency-first ordering of every component.
	installOrder []string
}

// New builds a catalog. It rejects empty, duplicate or path-like names,
// negative sizes, dependencies on unknown names and dependency cycles.
func New(artifacts ...Artifact) (*Catalog, error) {
	c := &Catalog{
		order:  make([]string, 0, len(artifacts)),
		byName: make(map[string]Artifact, len(artifacts)),
	}

	for _, a := range artifacts {
		if a == nil {
			return nil, errs.New(errs.KindInvalid, "catalog: nil artifact")
		}
		base := a.Base()
		if err := checkName(base.Name); err != nil {
			return nil, err
		}
		if _, dup := c.byName[base.Name]; dup {
			return nil, errs.Newf(errs.KindInvalid, "catalog: duplicate component %q", base.Name)
		}
		if base.SizeBytes < 0 {
			return nil, errs.Newf(errs.KindInvalid, "catalog: component %q has negative size", base.Name)
		}
		c.byName[base.Name] = a.cloneArtifact()
		c.order = append(c.order, base.Name)
	}

	for _, name := range c.order {
		for _, dep := range c.byName[name].Base().Dependencies {
			if _, ok := c.byName[dep]; !ok {
				return nil, errs.Newf(errs.KindInvalid, "catalog: component %q depends on unknown component %q", name, dep)
			}
		}
	}

	installOrder, cycle := c.topoOrder()
	if cycle != nil {
		return nil, errs.Newf(errs.KindInvalid, "catalog: dependency cycle: %s", strings.Join(cycle, " -> "))
	}
	c.installOrder = installOrder

	return c, nil
}

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errs.New(errs.KindInvalid, "catalog: component name is empty")
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return errs.Newf(errs.KindInvalid, "catalog: component name %q is not a plain file name", name)
	}
	return nil
}

// topoOrder returns a dependency-first order over the declaration order,
// or the first cycle found.
func (c *Catalog) topoOrder() ([]string, []string) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(c.order))
	order := make([]string, 0, len(c.order))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case done:
			return true
		case visiting:
			for i, n := range stack {
				if n == name {
					cycle = append(append([]string(nil), stack[i:]...), name)
					break
				}
			}
			return false
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range c.byName[name].Base().Dependencies {
			if !visit(dep) {
				return false
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, name)
		return true
	}

	for _, name := range c.order {
		if !visit(name) {
			return nil, cycle
		}
	}
	return order, nil
}

// Len returns the number of components.
func (c *Catalog) Len() int { return len(c.order) }

// Get returns the artifact with the given name.
func (c *Catalog) Get(name string) (Artifact, bool) {
	a, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return a.cloneArtifact(), true
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Names returns every component name in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// All returns every artifact in declaration order.
func (c *Catalog) All() []Artifact {
	out := make([]Artifact, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name].cloneArtifact())
	}
	return out
}

// Required returns the required artifacts in declaration order.
func (c *Catalog) Required() []Artifact {
	var out []Artifact
	for _, name := range c.order {
		if a := c.byName[name]; a.Base().Required {
			out = append(out, a.cloneArtifact())
		}
	}
	return out
}

// RequiredNames returns the names of required components in declaration order.
func (c *Catalog) RequiredNames() []string {
	var out []string
	for _, name := range c.order {
		if c.byName[name].Base().Required {
			out = append(out, name)
		}
	}
	return out
}

// DependenciesOf returns the direct dependencies of name.
func (c *Catalog) DependenciesOf(name string) ([]string, error) {
	a, ok := c.byName[name]
	if !ok {
		return nil, c.unknown(name)
	}
	return a.Base().Dependencies, nil
}

// TransitiveDependenciesOf returns the dependency closure of name,
// dependencies first, excluding name itself. A visited set guarantees
// termination even on cyclic edges.
func (c *Catalog) TransitiveDependenciesOf(name string) ([]string, error) {
	if _, ok := c.byName[name]; !ok {
		return nil, c.unknown(name)
	}
	visited := map[string]bool{name: true}
	var out []string

	var walk func(n string)
	walk = func(n string) {
		for _, dep := range c.byName[n].Base().Dependencies {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			walk(dep)
			out = append(out, dep)
		}
	}
	walk(name)
	return out, nil
}

// TotalSize sums the declared sizes of the named components. Unknown names are skipped.
func (c *Catalog) TotalSize(names []string) int64 {
	var total int64
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if a, ok := c.byName[n]; ok {
			total += a.Base().SizeBytes
		}
	}
	return total
}

// Systems returns the distinct system identifiers declared by components, in declaration order.
func (c *Catalog) Systems() []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range c.order {
		sys := c.byName[name].Base().System
		if sys != "" && !seen[sys] {
			seen[sys] = true
			out = append(out, sys)
		}
	}
	return out
}

func (c *Catalog) unknown(name string) error {
	reason := "unknown component " + quote(name)
	if s := c.Suggest(name); s != "" {
		reason += " (did you mean " + quote(s) + "?)"
	}
	return errs.New(errs.KindInvalid, reason)
}

func quote(s string) string { return `"` + s + `"` }
