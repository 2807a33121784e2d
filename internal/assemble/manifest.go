// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assemble

import (
	"path"
	"sort"
	"strings"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
)

// =============================================================================
// MANIFEST TREE
// =============================================================================

// FileKind distinguishes the entries of a package.
type FileKind int

const (
	// FileArtifact is a catalog component payload.
	FileArtifact FileKind = iota
	// FileDescription is the per-directory description file.
	FileDescription
	// FileIndex is the root manifest.json.
	FileIndex
)

// String returns the string representation of the file kind.
func (k FileKind) String() string {
	switch k {
	case FileArtifact:
		return "artifact"
	case FileDescription:
		return "description"
	case FileIndex:
		return "index"
	default:
		return "unknown"
	}
}

// File is a leaf of the manifest.
type File struct {
	Name string
	// Path is slash-separated and relative to the package root.
	Path string
	Size int64
	Kind FileKind
	// Component is the catalog name for artifacts.
	Component string
	// Metadata describes the entry; artifacts carry the catalog metadata plus
	// the payload digest once assembled.
	Metadata map[string]string

	content  []byte
	artifact catalog.Artifact
}

// Dir is a directory of the manifest. The root has an empty Path.
type Dir struct {
	Name  string
	Path  string
	Dirs  []*Dir
	Files []*File
}

// Manifest is the tree of a package.
type Manifest struct {
	Root *Dir

	files map[string]*File
	// taken holds lower-cased paths of every entry so names differing only
	// in case are reported as collisions.
	taken map[string]string
}

func newManifest() *Manifest {
	return &Manifest{
		Root:  &Dir{},
		files: make(map[string]*File),
		taken: make(map[string]string),
	}
}

// Find returns the file at p.
func (m *Manifest) Find(p string) (*File, bool) {
	f, ok := m.files[p]
	return f, ok
}

// Paths returns every file path, sorted.
func (m *Manifest) Paths() []string {
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Dirs returns every directory path except the root, sorted.
func (m *Manifest) Dirs() []string {
	var out []string
	_ = m.Walk(func(d *Dir, f *File) error {
		if f == nil && d.Path != "" {
			out = append(out, d.Path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// PathOf returns the path of component's payload.
func (m *Manifest) PathOf(component string) (string, bool) {
	for p, f := range m.files {
		if f.Kind == FileArtifact && f.Component == component {
			return p, true
		}
	}
	return "", false
}

// TotalSize sums the sizes of every file.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.files {
		total += f.Size
	}
	return total
}

// Walk visits directories before their contents, in name order. For a
// directory fn receives (dir, nil); for a file (parent, file). A non-nil
// error stops the walk.
func (m *Manifest) Walk(fn func(d *Dir, f *File) error) error {
	return walkDir(m.Root, fn)
}

func walkDir(d *Dir, fn func(*Dir, *File) error) error {
	if err := fn(d, nil); err != nil {
		return err
	}
	for _, f := range d.Files {
		if err := fn(d, f); err != nil {
			return err
		}
	}
	for _, sub := range d.Dirs {
		if err := walkDir(sub, fn); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TREE CONSTRUCTION
// =============================================================================

// mkdir returns the directory at p, creating it and its parents.
func (m *Manifest) mkdir(p string) (*Dir, error) {
	d := m.Root
	if p == "" {
		return d, nil
	}
	for _, part := range strings.Split(p, "/") {
		var next *Dir
		for _, sub := range d.Dirs {
			if sub.Name == part {
				next = sub
				break
			}
		}
		if next == nil {
			full := path.Join(d.Path, part)
			if err := m.claim(full); err != nil {
				return nil, err
			}
			next = &Dir{Name: part, Path: full}
			d.Dirs = append(d.Dirs, next)
		}
		d = next
	}
	return d, nil
}

// add places f in the directory at dir.
func (m *Manifest) add(dir string, f *File) error {
	d, err := m.mkdir(dir)
	if err != nil {
		return err
	}
	f.Path = path.Join(dir, f.Name)
	if err := m.claim(f.Path); err != nil {
		return err
	}
	d.Files = append(d.Files, f)
	m.files[f.Path] = f
	return nil
}

func (m *Manifest) claim(p string) error {
	key := strings.ToLower(p)
	if prev, ok := m.taken[key]; ok {
		return &collision{path: p, existing: prev}
	}
	m.taken[key] = p
	return nil
}

// sortTree orders every directory's children by name.
func (m *Manifest) sortTree() {
	_ = m.Walk(func(d *Dir, f *File) error {
		if f != nil {
			return nil
		}
		sort.Slice(d.Dirs, func(i, j int) bool { return d.Dirs[i].Name < d.Dirs[j].Name })
		sort.Slice(d.Files, func(i, j int) bool { return d.Files[i].Name < d.Files[j].Name })
		return nil
	})
}

type collision struct {
	path     string
	existing string
}

func (c *collision) Error() string {
	if c.path == c.existing {
		return "path " + c.path + " is produced twice"
	}
	return "path " + c.path + " collides with " + c.existing
}
