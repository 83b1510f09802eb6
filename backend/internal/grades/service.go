// ============================================================================
// backend/internal/grades/service.go
// Grade service: upload preconditions, history, deletion, consolidation
// ============================================================================

package grades

import (
	"context"
	"fmt"
	"io"
	"log"

	"sgms_backend/backend/internal/consolidation"
	"sgms_backend/backend/internal/shared"
	"sgms_backend/backend/internal/upload"
)

// Audit action names recorded against grade operations.
const (
	ActionGradeUpload = "GRADE_UPLOAD"
	ActionGradeDelete = "GRADE_DELETE"
)

// StudentDirectory resolves enrollment records.
type StudentDirectory interface {
	upload.Directory
	FindByLRNsAnyStatus(ctx context.Context, lrns []string) (map[string]shared.EnrollmentRecord, error)
	FindEnrolled(ctx context.Context) ([]shared.EnrollmentRecord, error)
}

// AssignmentReader resolves subject assignments.
type AssignmentReader interface {
	FindByID(ctx context.Context, id string) (shared.SubjectAssignment, error)
	FindByTeacher(ctx context.Context, teacherID string) ([]shared.SubjectAssignment, error)
	FindAll(ctx context.Context) ([]shared.SubjectAssignment, error)
}

// SchoolYearReader resolves school years.
type SchoolYearReader interface {
	Active(ctx context.Context) (shared.SchoolYear, error)
}

// GradeLedger is the full grade ledger surface the service needs.
type GradeLedger interface {
	upload.Ledger
	FindByTeacher(ctx context.Context, teacherID, schoolYearID string) ([]shared.GradeRecord, error)
	FindBySchoolYear(ctx context.Context, schoolYearID string) ([]shared.GradeRecord, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteByLRNs(ctx context.Context, lrns []string, schoolYearID string) (int64, error)
}

// AuditRecorder appends audit entries.
type AuditRecorder interface {
	Record(userID, action, remarks string)
}

// Service implements the grade operations behind the HTTP handlers.
type Service struct {
	students    StudentDirectory
	assignments AssignmentReader
	schoolYears SchoolYearReader
	ledger      GradeLedger
	audit       AuditRecorder
	sampleLimit int
}

// NewService creates the grade service.
func NewService(students StudentDirectory, assignments AssignmentReader, schoolYears SchoolYearReader, ledger GradeLedger, audit AuditRecorder, sampleLimit int) *Service {
	return &Service{
		students:    students,
		assignments: assignments,
		schoolYears: schoolYears,
		ledger:      ledger,
		audit:       audit,
		sampleLimit: sampleLimit,
	}
}

// ============================================================================
// Upload
// ============================================================================

// UploadParams carries one upload request as received from the gateway.
type UploadParams struct {
	File         io.Reader
	Filename     string
	TeacherID    string
	Role         string
	AssignmentID string
	Quarter      string
}

// UploadGrades checks the upload preconditions and runs the batch through the
// pipeline. Preconditions are checked in order: valid quarter, an active
// school year, an existing assignment, and the uploader actually holding that
// assignment (admins may upload on any assignment).
func (s *Service) UploadGrades(ctx context.Context, p UploadParams) (*upload.Summary, error) {
	quarter, err := shared.ParseQuarter(p.Quarter, false)
	if err != nil {
		return nil, err
	}

	year, err := s.schoolYears.Active(ctx)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignments.FindByID(ctx, p.AssignmentID)
	if err != nil {
		return nil, err
	}
	if p.Role != shared.RoleAdmin && assignment.TeacherID != p.TeacherID {
		return nil, shared.ErrNotAssigned
	}

	orchestrator := upload.NewOrchestrator(s.students, s.ledger, s.sampleLimit)
	summary, err := orchestrator.Run(ctx, upload.Request{
		File:         p.File,
		Filename:     p.Filename,
		TeacherID:    p.TeacherID,
		SchoolYearID: year.ID,
		Quarter:      quarter,
		Assignment:   assignment,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(p.TeacherID, ActionGradeUpload,
		fmt.Sprintf("%s / %s / %s: %s", assignment.SubjectName, quarter.Label(), year.Name, summary.Message()))

	return summary, nil
}

// ============================================================================
// Upload History
// ============================================================================

// UploadedGrades returns a teacher's uploads for the active school year with
// display fields resolved, newest first.
func (s *Service) UploadedGrades(ctx context.Context, teacherID string) ([]shared.UploadedGrade, error) {
	year, err := s.schoolYears.Active(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.FindByTeacher(ctx, teacherID, year.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []shared.UploadedGrade{}, nil
	}

	lrns := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.LRN]; ok {
			continue
		}
		seen[r.LRN] = struct{}{}
		lrns = append(lrns, r.LRN)
	}

	students, err := s.students.FindByLRNs(ctx, lrns)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.FindByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	bySubject := make(map[string]shared.SubjectAssignment, len(assignments))
	for _, a := range assignments {
		if _, ok := bySubject[a.SubjectID]; !ok {
			bySubject[a.SubjectID] = a
		}
	}

	uploads := make([]shared.UploadedGrade, 0, len(records))
	for _, r := range records {
		row := shared.UploadedGrade{
			ID:           r.ID,
			LRN:          r.LRN,
			Subject:      r.SubjectID,
			SchoolYear:   year.Name,
			Quarter:      r.Quarter.Label(),
			Grade:        r.Grade,
			UploadedDate: r.CreatedAt,
		}
		if student, ok := students[r.LRN]; ok {
			row.StudentName = student.Name
		}
		if a, ok := bySubject[r.SubjectID]; ok {
			row.Subject = a.SubjectName
			row.GradeSection = fmt.Sprintf("%s - %s", a.GradeLevel, a.SectionName)
		}
		uploads = append(uploads, row)
	}

	return uploads, nil
}

// ============================================================================
// Deletion (admin)
// ============================================================================

// DeleteGrades removes the identified ledger rows and audits the deletion.
func (s *Service) DeleteGrades(ctx context.Context, actorID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("no grade ids provided")
	}

	deleted, err := s.ledger.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	log.Printf("Deleted %d grade record(s) by id (requested: %d, actor: %s)", deleted, len(ids), actorID)
	s.audit.Record(actorID, ActionGradeDelete,
		fmt.Sprintf("Deleted %d grade record(s) by id", deleted))

	return deleted, nil
}

// DeleteStudentGrades removes every ledger row of the given students within
// the active school year.
func (s *Service) DeleteStudentGrades(ctx context.Context, actorID string, lrns []string) (int64, error) {
	if len(lrns) == 0 {
		return 0, fmt.Errorf("no LRNs provided")
	}

	year, err := s.schoolYears.Active(ctx)
	if err != nil {
		return 0, err
	}

	deleted, err := s.ledger.DeleteByLRNs(ctx, lrns, year.ID)
	if err != nil {
		return 0, err
	}

	log.Printf("Deleted %d grade record(s) for %d student(s) (actor: %s)", deleted, len(lrns), actorID)
	s.audit.Record(actorID, ActionGradeDelete,
		fmt.Sprintf("Deleted %d grade record(s) for %d student(s)", deleted, len(lrns)))

	return deleted, nil
}

// ============================================================================
// Consolidation
// ============================================================================

// ConsolidatedResult is the full consolidated view for a set of sections.
type ConsolidatedResult struct {
	SchoolYear shared.SchoolYear                   `json:"school_year"`
	Quarter    shared.Quarter                      `json:"quarter"`
	Students   []consolidation.ConsolidatedStudent `json:"students"`
	Report     *consolidation.Report               `json:"report"`
}

// ConsolidatedGrades builds the consolidated grids and class aggregates
// within the active school year. An empty section list is the unrestricted
// administrative view; the reads are always global and the section scope is
// applied after grouping, so subject-set derivation sees full context either
// way. An empty quarter selects the combined view.
func (s *Service) ConsolidatedGrades(ctx context.Context, sectionIDs []string, quarter string) (*ConsolidatedResult, error) {
	if quarter == "" {
		quarter = string(shared.QuarterCombined)
	}
	q, err := shared.ParseQuarter(quarter, true)
	if err != nil {
		return nil, err
	}

	year, err := s.schoolYears.Active(ctx)
	if err != nil {
		return nil, err
	}

	students, err := s.students.FindEnrolled(ctx)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.FindBySchoolYear(ctx, year.ID)
	if err != nil {
		return nil, err
	}

	// The view is ledger-driven: a student graded this year but no longer
	// enrolled (withdrawn, transferred) keeps their history visible.
	known := make(map[string]struct{}, len(students))
	for _, student := range students {
		known[student.LRN] = struct{}{}
	}
	var missing []string
	for _, r := range records {
		if _, ok := known[r.LRN]; ok {
			continue
		}
		known[r.LRN] = struct{}{}
		missing = append(missing, r.LRN)
	}
	if len(missing) > 0 {
		extra, err := s.students.FindByLRNsAnyStatus(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, lrn := range missing {
			if student, ok := extra[lrn]; ok {
				students = append(students, student)
			}
		}
	}

	consolidated := consolidation.Build(students, records, assignments, sectionIDs)

	return &ConsolidatedResult{
		SchoolYear: year,
		Quarter:    q,
		Students:   consolidated,
		Report:     consolidation.BuildReport(consolidated, q),
	}, nil
}
