package domain

import "sort"

// ReportDiff describes how the messages of a schema changed between two
// validation passes.
// It is designed to be serialized to JSON for clients that re-validate as the
// user edits.
type ReportDiff struct {
	// Schema is always present to identify the target.
	Schema string `json:"schema"`

	// Added holds paths that failed in the new report only.
	Added map[string]string `json:"added,omitempty"`

	// Changed holds paths whose code differs, with the new code.
	Changed map[string]string `json:"changed,omitempty"`

	// Resolved lists paths that no longer fail.
	Resolved []string `json:"resolved,omitempty"`

	// Valid changed?
	Valid *bool `json:"valid,omitempty"`
}

// Diff calculates the difference between oldReport and newReport.
// If oldReport is nil, every message of newReport counts as added.
// It returns nil when nothing changed.
func Diff(oldReport, newReport *Report) *ReportDiff {
	if newReport == nil {
		return nil
	}

	diff := &ReportDiff{Schema: newReport.Schema}

	var old map[string]string
	if oldReport != nil {
		old = oldReport.Messages
	}
	for path, code := range newReport.Messages {
		prev, ok := old[path]
		switch {
		case !ok:
			if diff.Added == nil {
				diff.Added = make(map[string]string)
			}
			diff.Added[path] = code
		case prev != code:
			if diff.Changed == nil {
				diff.Changed = make(map[string]string)
			}
			diff.Changed[path] = code
		}
	}
	for path := range old {
		if _, ok := newReport.Messages[path]; !ok {
			diff.Resolved = append(diff.Resolved, path)
		}
	}
	sort.Strings(diff.Resolved)

	if oldReport == nil || oldReport.Valid != newReport.Valid {
		valid := newReport.Valid
		diff.Valid = &valid
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ReportDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Changed) == 0 &&
		len(d.Resolved) == 0 &&
		d.Valid == nil
}
