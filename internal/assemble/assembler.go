// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assemble

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/errs"
	"github.com/jeranaias/retrohub-setup/internal/util"
)

const (
	// DefaultDescriptionFile is written into every directory.
	DefaultDescriptionFile = "README.txt"
	// IndexFile is the root listing of every entry.
	IndexFile = "manifest.json"
)

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler mirrors a catalog into a zip package. It holds no per-call
// state and may be used concurrently.
type Assembler struct {
	required    []string
	description string
	rules       []Rule
	filler      Filler
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRequired lists components that must be present, and flagged required,
// in every catalog given to the assembler. By default the catalog's own
// required set is used.
func WithRequired(names ...string) Option {
	return func(a *Assembler) { a.required = append([]string(nil), names...) }
}

// WithDescriptionFile sets the per-directory description file name.
func WithDescriptionFile(name string) Option {
	return func(a *Assembler) { a.description = name }
}

// WithRules replaces the classification rules.
func WithRules(rules []Rule) Option {
	return func(a *Assembler) { a.rules = append([]Rule(nil), rules...) }
}

// WithFiller sets the payload filler.
func WithFiller(f Filler) Option {
	return func(a *Assembler) { a.filler = f }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithClock sets the time source for archive entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// New creates an assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		description: DefaultDescriptionFile,
		rules:       DefaultRules(),
		filler:      ChaCha8Filler{},
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.filler == nil {
		a.filler = ChaCha8Filler{}
	}
	return a
}

func assemblyError(reason string, err error) error {
	if err == nil {
		return errs.New(errs.KindArchiveAssemblyFailed, reason)
	}
	return errs.Wrap(err, errs.KindArchiveAssemblyFailed, reason)
}

// =============================================================================
// PLANNING
// =============================================================================

// Plan builds the manifest for cat without writing anything. The set of
// paths depends only on the catalog contents.
func (a *Assembler) Plan(cat *catalog.Catalog) (*Manifest, error) {
	if cat == nil {
		return nil, assemblyError("no catalog given", nil)
	}
	if err := a.checkRequired(cat); err != nil {
		return nil, err
	}
	if err := a.checkDescriptionName(); err != nil {
		return nil, err
	}

	m := newManifest()
	for _, dir := range Scaffold {
		if _, err := m.mkdir(dir); err != nil {
			return nil, assemblyError("invalid scaffold", err)
		}
	}

	for _, art := range cat.All() {
		b := art.Base()
		dir, rule := Classify(art, a.rules)
		md := art.Metadata()
		if b.Description != "" {
			md["description"] = b.Description
		}
		md["rule"] = rule

		f := &File{
			Name:      b.Name,
			Size:      b.SizeBytes,
			Kind:      FileArtifact,
			Component: b.Name,
			Metadata:  md,
			artifact:  art,
		}
		if err := m.add(dir, f); err != nil {
			return nil, assemblyError("cannot place component "+b.Name, err)
		}
		md["path"] = f.Path
	}

	if err := m.add("", &File{Name: IndexFile, Kind: FileIndex, Metadata: map[string]string{"kind": FileIndex.String()}}); err != nil {
		return nil, assemblyError("cannot place the package index", err)
	}

	m.sortTree()
	// Descriptions go in last so they can list every sibling.
	err := m.Walk(func(d *Dir, f *File) error {
		if f != nil {
			return nil
		}
		content := describe(d, a.description)
		desc := &File{
			Name:     a.description,
			Size:     int64(len(content)),
			Kind:     FileDescription,
			Metadata: map[string]string{"kind": FileDescription.String()},
			content:  content,
		}
		return m.add(d.Path, desc)
	})
	if err != nil {
		return nil, assemblyError("cannot place the description file", err)
	}
	m.sortTree()
	return m, nil
}

// checkRequired fails when a required name is absent from cat or not flagged
// required there.
func (a *Assembler) checkRequired(cat *catalog.Catalog) error {
	var absent, unflagged []string
	for _, name := range a.required {
		art, ok := cat.Get(name)
		switch {
		case !ok:
			absent = append(absent, name)
		case !art.Base().Required:
			unflagged = append(unflagged, name)
		}
	}
	if len(absent) == 0 && len(unflagged) == 0 {
		return nil
	}

	var parts []string
	if len(absent) > 0 {
		parts = append(parts, "missing from the catalog: "+strings.Join(absent, ", "))
	}
	if len(unflagged) > 0 {
		parts = append(parts, "not marked required: "+strings.Join(unflagged, ", "))
	}
	return &errs.Error{
		Kind:    errs.KindArchiveAssemblyFailed,
		Reason:  "required components " + strings.Join(parts, "; "),
		Missing: append(absent, unflagged...),
	}
}

func (a *Assembler) checkDescriptionName() error {
	name := a.description
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return assemblyError(fmt.Sprintf("invalid description file name %q", name), nil)
	}
	return nil
}

// =============================================================================
// WRITING
// =============================================================================

// Assemble plans cat and streams the package to w as a zip archive. Nothing is
// written when planning fails. The returned manifest carries payload digests.
func (a *Assembler) Assemble(ctx context.Context, cat *catalog.Catalog, w io.Writer) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, assemblyError("assembly cancelled", err)
	}
	m, err := a.Plan(cat)
	if err != nil {
		return nil, err
	}
	if err := a.write(ctx, m, w); err != nil {
		return nil, err
	}
	return m, nil
}

// AssembleFile writes the package to path through a temporary file, so a
// failure leaves nothing at path.
func (a *Assembler) AssembleFile(ctx context.Context, cat *catalog.Catalog, path string) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, assemblyError("assembly cancelled", err)
	}
	m, err := a.Plan(cat)
	if err != nil {
		return nil, err
	}
	err = util.AtomicWriteStream(path, 0644, func(w io.Writer) error {
		return a.write(ctx, m, w)
	})
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, assemblyError("cannot write "+path, err)
	}
	a.logger.Info().Str("path", path).Msg("Package written")
	return m, nil
}

func (a *Assembler) write(ctx context.Context, m *Manifest, w io.Writer) error {
	started := time.Now()
	modified := a.now()
	zw := zip.NewWriter(w)

	var index *File
	err := m.Walk(func(d *Dir, f *File) error {
		if err := ctx.Err(); err != nil {
			return assemblyError("assembly cancelled", err)
		}
		if f == nil {
			if d.Path == "" {
				return nil
			}
			_, err := zw.CreateHeader(&zip.FileHeader{Name: d.Path + "/", Method: zip.Store, Modified: modified})
			return err
		}

		switch f.Kind {
		case FileIndex:
			index = f
			return nil
		case FileDescription:
			return writeEntry(zw, f.Path, zip.Deflate, modified, f.content)
		default:
			return a.writeArtifact(zw, f, modified)
		}
	})
	if err != nil {
		return wrapWrite(err)
	}

	if index != nil {
		data, err := indexJSON(m)
		if err != nil {
			return assemblyError("cannot encode the package index", err)
		}
		index.Size = int64(len(data))
		index.content = data
		if err := writeEntry(zw, index.Path, zip.Deflate, modified, data); err != nil {
			return wrapWrite(err)
		}
	}

	if err := zw.Close(); err != nil {
		return wrapWrite(err)
	}

	a.logger.Info().
		Int("files", len(m.files)).
		Int64("bytes", m.TotalSize()).
		Dur("elapsed", time.Since(started)).
		Msg("Package assembled")
	return nil
}

func wrapWrite(err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return assemblyError("cannot write archive", err)
}

func writeEntry(zw *zip.Writer, name string, method uint16, modified time.Time, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// writeArtifact streams a payload. Filler bytes do not compress, so payloads are stored.
func (a *Assembler) writeArtifact(zw *zip.Writer, f *File, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Path, Method: zip.Store, Modified: modified})
	if err != nil {
		return err
	}
	digest, err := writePayload(w, payloadHeader(f.Metadata), f.Size, a.filler.Reader(f.artifact))
	if err != nil {
		return assemblyError("cannot write payload for "+f.Component, err)
	}
	f.Metadata["blake2b"] = digest
	return nil
}

// =============================================================================
// INDEX
// =============================================================================

type indexEntry struct {
	Path      string            `json:"path"`
	Kind      string            `json:"kind"`
	Size      int64             `json:"size"`
	Component string            `json:"component,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type indexDoc struct {
	Format      int          `json:"format"`
	Directories []string     `json:"directories"`
	Files       []indexEntry `json:"files"`
	TotalSize   int64        `json:"total_size"`
}

// indexJSON lists every entry except the index itself.
func indexJSON(m *Manifest) ([]byte, error) {
	doc := indexDoc{Format: 1, Directories: m.Dirs()}
	for _, p := range m.Paths() {
		f := m.files[p]
		if f.Kind == FileIndex {
			continue
		}
		entry := indexEntry{Path: f.Path, Kind: f.Kind.String(), Size: f.Size, Component: f.Component}
		if f.Kind == FileArtifact {
			entry.Metadata = f.Metadata
		}
		doc.Files = append(doc.Files, entry)
		doc.TotalSize += f.Size
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Summary renders a Markdown overview of m, for display.
func Summary(m *Manifest) string {
	var b strings.Builder
	b.WriteString("# RetroHub package\n\n")
	b.WriteString("| Path | Kind | Size |\n|---|---|---|\n")
	for _, p := range m.Paths() {
		f := m.files[p]
		if f.Kind != FileArtifact {
			continue
		}
		b.WriteString("| `" + p + "` | " + f.Metadata["kind"] + " | " + util.FormatBytes(f.Size) + " |\n")
	}
	b.WriteString("\n" + strconv.Itoa(len(m.files)) + " files in " + strconv.Itoa(len(m.Dirs())) +
		" folders, " + util.FormatBytes(m.TotalSize()) + " total.\n")
	return b.String()
}
