// ============================================================================
// backend/internal/upload/summary.go
// Batch summary: counters, capped detail samples, result message
// ============================================================================

package upload

import (
	"fmt"
	"strings"
)

// Message list caps: detail lists longer than these are elided with an
// ellipsis. The stored sample lists are capped separately (Summary.sampleLimit).
const (
	messageListLimit = 5
	errorListLimit   = 3
)

// Summary accumulates the outcome of one upload batch. Every input row lands
// in exactly one counter; counters always reflect true totals while the
// detail lists retain at most sampleLimit entries each.
type Summary struct {
	SuccessCount        int
	DuplicateCount      int
	MissingCount        int
	InvalidGradeCount   int
	UnknownStudentCount int
	MismatchCount       int
	ErrorCount          int

	DuplicateDetails      []string
	InvalidGradeDetails   []string
	InvalidStudentDetails []string
	ErrorDetails          []string

	sampleLimit int
}

// NewSummary creates an empty summary retaining at most sampleLimit detail
// entries per category.
func NewSummary(sampleLimit int) *Summary {
	if sampleLimit <= 0 {
		sampleLimit = 10
	}
	return &Summary{sampleLimit: sampleLimit}
}

// InvalidStudentCount is the combined count of unknown-student and
// enrollment-mismatch rows; the two categories share one wire counter.
func (s *Summary) InvalidStudentCount() int {
	return s.UnknownStudentCount + s.MismatchCount
}

// TotalProcessed returns the number of rows the batch accounted for.
func (s *Summary) TotalProcessed() int {
	return s.SuccessCount + s.DuplicateCount + s.MissingCount +
		s.InvalidGradeCount + s.InvalidStudentCount() + s.ErrorCount
}

// Failed reports whether the batch as a whole should be presented as a
// failure: true exactly when not a single row persisted.
func (s *Summary) Failed() bool {
	return s.SuccessCount == 0
}

// Record tallies one row failure into the matching counter and sample list.
func (s *Summary) Record(f RowFailure) {
	switch f.Kind {
	case KindMissingIdentifier:
		s.MissingCount++
	case KindInvalidGrade:
		s.InvalidGradeCount++
		s.sample(&s.InvalidGradeDetails, f.Detail)
	case KindUnknownStudent:
		s.UnknownStudentCount++
		s.sample(&s.InvalidStudentDetails, f.Detail)
	case KindEnrollmentMismatch:
		s.MismatchCount++
		s.sample(&s.InvalidStudentDetails, f.Detail)
	case KindDuplicate:
		s.DuplicateCount++
		s.sample(&s.DuplicateDetails, f.LRN)
	case KindPersistence:
		s.ErrorCount++
		s.sample(&s.ErrorDetails, f.Detail)
	}
}

// RecordSuccess tallies one persisted row.
func (s *Summary) RecordSuccess() {
	s.SuccessCount++
}

func (s *Summary) sample(list *[]string, detail string) {
	if len(*list) < s.sampleLimit {
		*list = append(*list, detail)
	}
}

// Message renders the deterministic human-readable outcome, one sentence per
// non-zero category, in fixed order. Identical batch outcomes always produce
// identical messages.
func (s *Summary) Message() string {
	var parts []string

	if s.SuccessCount > 0 {
		parts = append(parts, fmt.Sprintf("%d grade record%s %s uploaded successfully.",
			s.SuccessCount, plural(s.SuccessCount), wasWere(s.SuccessCount)))
	}
	if s.DuplicateCount > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate record%s %s skipped (%s).",
			s.DuplicateCount, plural(s.DuplicateCount), wasWere(s.DuplicateCount),
			elideList(s.DuplicateDetails, messageListLimit, ", ")))
	}
	if s.MissingCount > 0 {
		parts = append(parts, fmt.Sprintf("%d row%s %s skipped for missing LRN.",
			s.MissingCount, plural(s.MissingCount), wasWere(s.MissingCount)))
	}
	if s.InvalidGradeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d row%s had invalid grades (%s).",
			s.InvalidGradeCount, plural(s.InvalidGradeCount),
			elideList(s.InvalidGradeDetails, messageListLimit, ", ")))
	}
	if n := s.InvalidStudentCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d row%s skipped (%s).",
			n, plural(n),
			elideList(s.InvalidStudentDetails, messageListLimit, "; ")))
	}
	if s.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d row%s encountered an error (%s).",
			s.ErrorCount, plural(s.ErrorCount),
			elideList(s.ErrorDetails, errorListLimit, "; ")))
	}

	if len(parts) == 0 {
		return "No grades were saved."
	}
	return strings.Join(parts, " ")
}

// Payload is the wire shape of a batch summary.
type Payload struct {
	Message             string   `json:"message"`
	SuccessCount        int      `json:"successCount"`
	DuplicateCount      int      `json:"duplicateCount"`
	MissingCount        int      `json:"missingCount"`
	InvalidGradeCount   int      `json:"invalidGradeCount"`
	InvalidStudentCount int      `json:"invalidStudentCount"`
	ErrorCount          int      `json:"errorCount"`
	DuplicateDetails    []string `json:"duplicateDetails,omitempty"`
	InvalidGradeDetails []string `json:"invalidGradeDetails,omitempty"`
	InvalidStudents     []string `json:"invalidStudentDetails,omitempty"`
	ErrorDetails        []string `json:"errorDetails,omitempty"`
}

// ToPayload converts the summary to its wire shape.
func (s *Summary) ToPayload() Payload {
	return Payload{
		Message:             s.Message(),
		SuccessCount:        s.SuccessCount,
		DuplicateCount:      s.DuplicateCount,
		MissingCount:        s.MissingCount,
		InvalidGradeCount:   s.InvalidGradeCount,
		InvalidStudentCount: s.InvalidStudentCount(),
		ErrorCount:          s.ErrorCount,
		DuplicateDetails:    s.DuplicateDetails,
		InvalidGradeDetails: s.InvalidGradeDetails,
		InvalidStudents:     s.InvalidStudentDetails,
		ErrorDetails:        s.ErrorDetails,
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

// elideList joins up to limit entries and appends an ellipsis marker when the
// list was longer.
func elideList(details []string, limit int, sep string) string {
	if len(details) <= limit {
		return strings.Join(details, sep)
	}
	return strings.Join(details[:limit], sep) + sep + "…"
}
