// ============================================================================
// backend/internal/upload/validator.go
// Row validation: identifier, grade range, enrollment, section match
// ============================================================================

package upload

import (
	"context"
	"fmt"

	"sgms_backend/backend/internal/shared"
)

// FailureKind classifies why a row was rejected. Each rejected row carries
// exactly one kind: the checks run in a fixed order and the first failure
// wins.
type FailureKind int

const (
	KindMissingIdentifier FailureKind = iota
	KindInvalidGrade
	KindUnknownStudent
	KindEnrollmentMismatch
	KindDuplicate
	KindPersistence
)

func (k FailureKind) String() string {
	switch k {
	case KindMissingIdentifier:
		return "missing_identifier"
	case KindInvalidGrade:
		return "invalid_grade"
	case KindUnknownStudent:
		return "unknown_student"
	case KindEnrollmentMismatch:
		return "enrollment_mismatch"
	case KindDuplicate:
		return "duplicate"
	case KindPersistence:
		return "persistence_error"
	}
	return "unknown"
}

// RowFailure records one rejected row with a human-readable detail string.
type RowFailure struct {
	Kind   FailureKind
	LRN    string
	Detail string
}

// Directory resolves enrollment records for a batch of LRNs. Absent LRNs are
// simply missing from the returned map, never an error.
type Directory interface {
	FindByLRNs(ctx context.Context, lrns []string) (map[string]shared.EnrollmentRecord, error)
}

// CollectLRNs returns the unique non-blank LRNs across rows, in first-seen
// order, for one batched directory lookup.
func CollectLRNs(rows []Row) []string {
	seen := make(map[string]struct{}, len(rows))
	lrns := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.LRN == "" {
			continue
		}
		if _, ok := seen[row.LRN]; ok {
			continue
		}
		seen[row.LRN] = struct{}{}
		lrns = append(lrns, row.LRN)
	}
	return lrns
}

// ValidateRows runs every row through the validation pipeline and partitions
// the batch into persistence candidates and failures. Checks run in a fixed
// order per row and short-circuit on the first failure:
//
//  1. identifier presence
//  2. grade well-formedness (integer within range)
//  3. enrollment existence
//  4. grade level and section match against the assignment
//
// Rows are independent: one bad row never affects its neighbors.
func ValidateRows(rows []Row, students map[string]shared.EnrollmentRecord, assignment shared.SubjectAssignment) ([]Row, []RowFailure) {
	candidates := make([]Row, 0, len(rows))
	var failures []RowFailure

	for _, row := range rows {
		if row.LRN == "" {
			failures = append(failures, RowFailure{Kind: KindMissingIdentifier})
			continue
		}

		if row.Grade == nil || !shared.IsValidGradeValue(*row.Grade) {
			failures = append(failures, RowFailure{
				Kind:   KindInvalidGrade,
				LRN:    row.LRN,
				Detail: fmt.Sprintf("%s (invalid grade value: %s)", row.LRN, row.RawGrade),
			})
			continue
		}

		student, enrolled := students[row.LRN]
		if !enrolled {
			failures = append(failures, RowFailure{
				Kind:   KindUnknownStudent,
				LRN:    row.LRN,
				Detail: fmt.Sprintf("Student with LRN %s is not enrolled", row.LRN),
			})
			continue
		}

		if student.GradeLevel != assignment.GradeLevel {
			failures = append(failures, RowFailure{
				Kind: KindEnrollmentMismatch,
				LRN:  row.LRN,
				Detail: fmt.Sprintf("Student with LRN %s is in grade %s, not grade %s",
					row.LRN, student.GradeLevel, assignment.GradeLevel),
			})
			continue
		}
		if student.SectionID != assignment.SectionID {
			failures = append(failures, RowFailure{
				Kind: KindEnrollmentMismatch,
				LRN:  row.LRN,
				Detail: fmt.Sprintf("Student with LRN %s is enrolled in section %s, not section %s",
					row.LRN, student.SectionName, assignment.SectionName),
			})
			continue
		}

		candidates = append(candidates, row)
	}

	return candidates, failures
}
