package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Report captures the outcome of one validation pass.
type Report struct {
	// ID uniquely identifies the report in a ReportStore.
	ID string `json:"id"`

	// Schema is the catalog name of the schema the data was validated against.
	Schema string `json:"schema"`

	// Valid is true iff Messages is empty.
	Valid bool `json:"valid"`

	// Messages maps a field name or nested path to its error code.
	Messages map[string]string `json:"messages"`

	// Fields lists the fields addressed by the pass. It is a subset of the
	// schema fields for partial validations.
	Fields []string `json:"fields,omitempty"`

	// Document is a snapshot of the validated data. Stores may redact it.
	Document map[string]any `json:"document,omitempty"`

	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
}

// NewReport creates an empty, valid report with a fresh ID.
func NewReport(schemaName string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Schema:    schemaName,
		Valid:     true,
		Messages:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
}

// Issue is a single message of a report.
type Issue struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

// Issues returns the messages sorted by path.
func (r *Report) Issues() []Issue {
	issues := make([]Issue, 0, len(r.Messages))
	for path, code := range r.Messages {
		issues = append(issues, Issue{Path: path, Code: code})
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues
}

// Clone returns a copy that shares no maps or slices with r. Document values
// are copied one level deep.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = make(map[string]string, len(r.Messages))
	for k, v := range r.Messages {
		out.Messages[k] = v
	}
	if r.Fields != nil {
		out.Fields = append([]string(nil), r.Fields...)
	}
	if r.Document != nil {
		out.Document = make(map[string]any, len(r.Document))
		for k, v := range r.Document {
			out.Document[k] = v
		}
	}
	return &out
}
