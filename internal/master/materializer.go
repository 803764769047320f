package master

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parth-2005/os-project/pkg/types"
)

// artifactSuffixes maps non-binary job kinds to the filename suffix of the
// JSON artifact they produce.
var artifactSuffixes = map[types.JobKind]string{
	types.JobKindText:      "_analysis.json",
	types.JobKindEmbedding: "_embedding.json",
	types.JobKindOCR:       "_ocr.json",
	types.JobKindAudio:     "_audio_analysis.json",
	types.JobKindDocument:  "_document_analysis.json",
}

// Materializer decodes worker-supplied payloads and persists them under a
// job-kind-scoped directory tree.
type Materializer struct {
	outputDir string
}

// NewMaterializer creates a materializer rooted at outputDir.
func NewMaterializer(outputDir string) *Materializer {
	return &Materializer{outputDir: outputDir}
}

// NewSession opens a per-submission session. Collision tracking is scoped
// to a single submission, and sessions are safe for the concurrent writes
// the dispatch fan-out produces.
func (m *Materializer) NewSession(kind types.JobKind) *MaterializeSession {
	return &MaterializeSession{
		kind: kind,
		dir:  filepath.Join(m.outputDir, string(kind)),
		used: make(map[string]bool),
	}
}

// MaterializeSession persists the artifacts of one submission.
type MaterializeSession struct {
	kind types.JobKind
	dir  string
	used map[string]bool
	mu   sync.Mutex
}

// Store decodes one base64 payload and writes the artifact, returning its
// path. A base64 failure is reported as ErrDecode, a write failure as
// ErrPersist; either downgrades only this file, never the submission.
func (s *MaterializeSession) Store(index int, filename, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecode, filename, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}

	path := filepath.Join(s.dir, s.claimName(index, filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPersist, filename, err)
	}
	return path, nil
}

// claimName derives the artifact name from the original filename and
// reserves it, appending the global index when two files in the same
// submission would otherwise collide.
func (s *MaterializeSession) claimName(index int, filename string) string {
	name := artifactName(s.kind, filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used[name] {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), index, ext)
	}
	s.used[name] = true
	return name
}

// artifactName maps an input filename to its artifact name: binary kinds
// keep the original name under a processed_ prefix, the rest swap the
// extension for the kind's JSON suffix.
func artifactName(kind types.JobKind, filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "unnamed"
	}

	if kind.Binary() {
		return "processed_" + base
	}

	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + artifactSuffixes[kind]
}
