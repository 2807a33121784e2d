// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assemble

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
)

// =============================================================================
// FILLERS
// =============================================================================

// Filler supplies the synthetic bytes that pad a payload to its declared size.
// Reader is called once per artifact and must be safe for concurrent use.
type Filler interface {
	Reader(a catalog.Artifact) io.Reader
}

// FillerFunc adapts a function to Filler.
type FillerFunc func(a catalog.Artifact) io.Reader

// Reader calls f.
func (f FillerFunc) Reader(a catalog.Artifact) io.Reader { return f(a) }

// ChaCha8Filler streams pseudo-random bytes seeded from the component name
// and version, so a given catalog always yields the same payloads.
type ChaCha8Filler struct{}

// Reader implements Filler.
func (ChaCha8Filler) Reader(a catalog.Artifact) io.Reader {
	b := a.Base()
	seed := blake2b.Sum256([]byte(b.Name + "\x00" + b.Version))
	return rand.NewChaCha8(seed)
}

// ZeroFiller pads with zero bytes.
type ZeroFiller struct{}

// Reader implements Filler.
func (ZeroFiller) Reader(catalog.Artifact) io.Reader { return zeroReader{} }

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// =============================================================================
// PAYLOADS
// =============================================================================

// payloadMagic opens every payload header.
const payloadMagic = "RETROHUB PLACEHOLDER ARTIFACT"

// payloadHeader renders the text header written at the start of a payload.
func payloadHeader(md map[string]string) []byte {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(payloadMagic + "\n")
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\n", k, md[k])
	}
	buf.WriteString("--\n")
	return buf.Bytes()
}

// writePayload writes exactly size bytes: the header, truncated if needed,
// then filler. It returns the hex blake2b-256 digest of what was written.
func writePayload(w io.Writer, header []byte, size int64, filler io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	mw := io.MultiWriter(w, h)

	if int64(len(header)) > size {
		header = header[:size]
	}
	if _, err := mw.Write(header); err != nil {
		return "", err
	}
	if rest := size - int64(len(header)); rest > 0 {
		n, err := io.CopyN(mw, filler, rest)
		if err != nil {
			return "", fmt.Errorf("filler stopped after %d of %d bytes: %w", n, rest, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
