// ============================================================================
// backend/internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"errors"
	"fmt"
	"time"
)

// ============================================================================
// Quarter
// ============================================================================

// Quarter is one of the four fixed grading periods within a school year.
type Quarter string

const (
	QuarterQ1 Quarter = "Q1"
	QuarterQ2 Quarter = "Q2"
	QuarterQ3 Quarter = "Q3"
	QuarterQ4 Quarter = "Q4"

	// QuarterCombined is the synthetic fifth view averaging whichever real
	// quarters have data. It is never persisted on a GradeRecord.
	QuarterCombined Quarter = "Combined"
)

// Quarters returns the four real grading periods in order.
func Quarters() []Quarter {
	return []Quarter{QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4}
}

// ParseQuarter validates a quarter received from a client. Combined is
// accepted only where allowCombined is set (consolidation views, not uploads).
func ParseQuarter(s string, allowCombined bool) (Quarter, error) {
	switch Quarter(s) {
	case QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4:
		return Quarter(s), nil
	case QuarterCombined:
		if allowCombined {
			return QuarterCombined, nil
		}
	}
	return "", fmt.Errorf("invalid quarter: %q", s)
}

// Label returns the display label for a quarter (e.g. "1st Quarter").
func (q Quarter) Label() string {
	switch q {
	case QuarterQ1:
		return "1st Quarter"
	case QuarterQ2:
		return "2nd Quarter"
	case QuarterQ3:
		return "3rd Quarter"
	case QuarterQ4:
		return "4th Quarter"
	case QuarterCombined:
		return "Combined Average"
	}
	return string(q)
}

// ============================================================================
// Grade Models
// ============================================================================

// Grade bounds for the upload format.
const (
	GradeMin = 0
	GradeMax = 100
)

// IsValidGradeValue reports whether g lies in the accepted closed range.
func IsValidGradeValue(g int) bool {
	return g >= GradeMin && g <= GradeMax
}

// GradeIdentity is the uniqueness tuple of the grade ledger: at most one
// GradeRecord may exist per identity. Enforced by a unique compound index.
type GradeIdentity struct {
	LRN          string
	SubjectID    string
	Quarter      Quarter
	SchoolYearID string
}

func (id GradeIdentity) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", id.LRN, id.SubjectID, id.Quarter, id.SchoolYearID)
}

// GradeRecord is one row of the grade ledger. Records are append-only:
// corrections are performed by deleting and re-uploading, never by update.
type GradeRecord struct {
	ID           string    `bson:"_id" json:"grade_id"`
	LRN          string    `bson:"lrn" json:"lrn"`
	SubjectID    string    `bson:"subject_id" json:"subject_id"`
	TeacherID    string    `bson:"teacher_id" json:"teacher_id"`
	SchoolYearID string    `bson:"school_year_id" json:"school_year_id"`
	Quarter      Quarter   `bson:"quarter" json:"quarter"`
	Grade        int       `bson:"grade" json:"grade"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Identity returns the record's uniqueness tuple.
func (g GradeRecord) Identity() GradeIdentity {
	return GradeIdentity{
		LRN:          g.LRN,
		SubjectID:    g.SubjectID,
		Quarter:      g.Quarter,
		SchoolYearID: g.SchoolYearID,
	}
}

// UploadedGrade is the teacher-facing view of one uploaded ledger row, with
// display fields denormalized for the upload history table.
type UploadedGrade struct {
	ID           string    `json:"id"`
	LRN          string    `json:"lrn"`
	StudentName  string    `json:"student_name"`
	Subject      string    `json:"subject"`
	GradeSection string    `json:"grade_section"`
	SchoolYear   string    `json:"school_year"`
	Quarter      string    `json:"quarter"`
	Grade        int       `json:"grade"`
	UploadedDate time.Time `json:"uploaded_date"`
}

// ============================================================================
// Directory Models (read-only to the engine)
// ============================================================================

// EnrollmentRecord holds a student's current enrollment. Grade level and
// section are explicit fields keyed by section_id; identity is never derived
// by parsing a combined display string.
type EnrollmentRecord struct {
	LRN         string `bson:"_id" json:"lrn"`
	Name        string `bson:"name" json:"name"`
	Sex         string `bson:"sex" json:"sex"`
	GradeLevel  string `bson:"grade_level" json:"grade_level"`
	SectionID   string `bson:"section_id" json:"section_id"`
	SectionName string `bson:"section_name" json:"section_name"`
	Status      string `bson:"status" json:"status"`
}

// SubjectAssignment binds a subject to a grade level, section, and the
// teacher permitted to grade it. It is the authority for whether a student
// belongs to the section a subject is taught in.
type SubjectAssignment struct {
	ID          string `bson:"_id" json:"assignment_id"`
	SubjectID   string `bson:"subject_id" json:"subject_id"`
	SubjectName string `bson:"subject_name" json:"subject_name"`
	TeacherID   string `bson:"teacher_id" json:"teacher_id"`
	GradeLevel  string `bson:"grade_level" json:"grade_level"`
	SectionID   string `bson:"section_id" json:"section_id"`
	SectionName string `bson:"section_name" json:"section_name"`
}

// SchoolYear represents one school year (e.g. "2024-2025").
type SchoolYear struct {
	ID     string `bson:"_id" json:"school_year_id"`
	Name   string `bson:"name" json:"name"`
	Status string `bson:"status" json:"status"`
}

// ============================================================================
// Audit Log Models
// ============================================================================

// AuditLog represents an audit log entry. Writes are fire-and-forget side
// effects of uploads and deletions; the engine never reads them back.
type AuditLog struct {
	ID        string    `bson:"_id" json:"id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Action    string    `bson:"action" json:"action"`
	Remarks   string    `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// ============================================================================
// Constants
// ============================================================================

const (
	// User roles
	RoleTeacher = "Teacher"
	RoleAdviser = "Adviser"
	RoleAdmin   = "Admin"

	// Sex values, used only for display ordering of consolidated students
	SexMale   = "Male"
	SexFemale = "Female"

	// School year statuses
	SchoolYearActive   = "Active"
	SchoolYearInactive = "Inactive"

	// Student enrollment statuses
	StudentEnrolled  = "Enrolled"
	StudentWithdrawn = "Withdrawn"
)

// ============================================================================
// Sentinel Errors
// ============================================================================

var (
	// ErrDuplicateGrade signals that a GradeRecord already exists for the
	// identity tuple. The storage layer's unique index is the authoritative
	// source of this error; the pre-check only avoids wasted write attempts.
	ErrDuplicateGrade = errors.New("grade record already exists for this student, subject, quarter and school year")

	// ErrNotAssigned signals that the uploading teacher is not assigned to
	// the subject being graded.
	ErrNotAssigned = errors.New("teacher is not assigned to this subject")

	// ErrSubjectNotFound signals that no assignment record exists for the
	// subject being uploaded.
	ErrSubjectNotFound = errors.New("subject assignment not found")

	// ErrNoActiveSchoolYear signals that uploads cannot proceed because no
	// school year is marked Active.
	ErrNoActiveSchoolYear = errors.New("no active school year found")
)
