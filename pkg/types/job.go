package types

import "fmt"

// JobKind is the closed enumeration of processing categories a submission
// can request. Each kind is bound at definition time to the multipart field
// name its files arrive under and to the key its encoded results come back
// under, so unknown kinds are rejected at the boundary instead of being
// routed dynamically.
type JobKind string

const (
	// JobKindImage converts images to grayscale.
	JobKindImage JobKind = "image"
	// JobKindText runs sentiment analysis over text files.
	JobKindText JobKind = "text"
	// JobKindEmbedding generates TF-IDF embeddings for text files.
	JobKindEmbedding JobKind = "embedding"
	// JobKindOCR extracts text from images.
	JobKindOCR JobKind = "ocr"
	// JobKindAudio extracts audio features.
	JobKindAudio JobKind = "audio"
	// JobKindDocument parses documents.
	JobKindDocument JobKind = "document"
)

// jobKindSpec binds a kind to its wire-level names.
type jobKindSpec struct {
	fileField string // multipart field carrying the input files
	dataKey   string // result entry key carrying the base64 payload
	binary    bool   // artifact is raw bytes rather than JSON text
}

var jobKinds = map[JobKind]jobKindSpec{
	JobKindImage:     {fileField: "images", dataKey: "image_data", binary: true},
	JobKindText:      {fileField: "texts", dataKey: "analysis_data"},
	JobKindEmbedding: {fileField: "texts", dataKey: "embedding_data"},
	JobKindOCR:       {fileField: "images", dataKey: "ocr_data"},
	JobKindAudio:     {fileField: "audio_files", dataKey: "audio_data"},
	JobKindDocument:  {fileField: "documents", dataKey: "document_data"},
}

// ParseJobKind validates a task type string received at the boundary.
func ParseJobKind(s string) (JobKind, error) {
	kind := JobKind(s)
	if _, ok := jobKinds[kind]; !ok {
		return "", fmt.Errorf("unknown job kind: %q", s)
	}
	return kind, nil
}

// AllJobKinds returns every known kind, in a fixed order.
func AllJobKinds() []JobKind {
	return []JobKind{
		JobKindImage, JobKindText, JobKindEmbedding,
		JobKindOCR, JobKindAudio, JobKindDocument,
	}
}

// FileField returns the multipart field name input files travel under.
func (k JobKind) FileField() string {
	return jobKinds[k].fileField
}

// DataKey returns the result entry key the worker stores the encoded
// payload under.
func (k JobKind) DataKey() string {
	return jobKinds[k].dataKey
}

// Binary reports whether the decoded artifact is raw bytes (written as-is)
// as opposed to JSON text.
func (k JobKind) Binary() bool {
	return jobKinds[k].binary
}

// Valid reports whether the kind is part of the enumeration.
func (k JobKind) Valid() bool {
	_, ok := jobKinds[k]
	return ok
}

// IncomingFile is one named input file of a submission, immutable once
// accepted.
type IncomingFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TaskResponse is the worker's reply to POST /get_task. Each entry maps the
// original filename plus the kind's data key to a base64 payload; the loose
// shape is fixed by the worker-facing wire contract, so entries are decoded
// individually and a malformed entry only affects its own file.
type TaskResponse struct {
	Results []map[string]string `json:"results"`
}
