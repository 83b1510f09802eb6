package grades

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sgms_backend/backend/internal/shared"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeStudents struct {
	records map[string]shared.EnrollmentRecord
}

func (f *fakeStudents) FindByLRNs(_ context.Context, lrns []string) (map[string]shared.EnrollmentRecord, error) {
	found := make(map[string]shared.EnrollmentRecord)
	for _, lrn := range lrns {
		if s, ok := f.records[lrn]; ok && s.Status == shared.StudentEnrolled {
			found[lrn] = s
		}
	}
	return found, nil
}

func (f *fakeStudents) FindByLRNsAnyStatus(_ context.Context, lrns []string) (map[string]shared.EnrollmentRecord, error) {
	found := make(map[string]shared.EnrollmentRecord)
	for _, lrn := range lrns {
		if s, ok := f.records[lrn]; ok {
			found[lrn] = s
		}
	}
	return found, nil
}

func (f *fakeStudents) FindEnrolled(_ context.Context) ([]shared.EnrollmentRecord, error) {
	var students []shared.EnrollmentRecord
	for _, s := range f.records {
		if s.Status == shared.StudentEnrolled {
			students = append(students, s)
		}
	}
	return students, nil
}

type fakeAssignments struct {
	byID map[string]shared.SubjectAssignment
}

func (f *fakeAssignments) FindByID(_ context.Context, id string) (shared.SubjectAssignment, error) {
	a, ok := f.byID[id]
	if !ok {
		return shared.SubjectAssignment{}, shared.ErrSubjectNotFound
	}
	return a, nil
}

func (f *fakeAssignments) FindByTeacher(_ context.Context, teacherID string) ([]shared.SubjectAssignment, error) {
	var assignments []shared.SubjectAssignment
	for _, a := range f.byID {
		if a.TeacherID == teacherID {
			assignments = append(assignments, a)
		}
	}
	return assignments, nil
}

func (f *fakeAssignments) FindAll(_ context.Context) ([]shared.SubjectAssignment, error) {
	var assignments []shared.SubjectAssignment
	for _, a := range f.byID {
		assignments = append(assignments, a)
	}
	return assignments, nil
}

type fakeSchoolYears struct {
	active shared.SchoolYear
	err    error
}

func (f *fakeSchoolYears) Active(_ context.Context) (shared.SchoolYear, error) {
	if f.err != nil {
		return shared.SchoolYear{}, f.err
	}
	return f.active, nil
}

type fakeLedger struct {
	records map[string]shared.GradeRecord
	deleted []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]shared.GradeRecord)}
}

func (f *fakeLedger) Exists(_ context.Context, id shared.GradeIdentity) (bool, error) {
	_, ok := f.records[id.String()]
	return ok, nil
}

func (f *fakeLedger) Insert(_ context.Context, record shared.GradeRecord) error {
	key := record.Identity().String()
	if _, ok := f.records[key]; ok {
		return shared.ErrDuplicateGrade
	}
	f.records[key] = record
	return nil
}

func (f *fakeLedger) FindByTeacher(_ context.Context, teacherID, schoolYearID string) ([]shared.GradeRecord, error) {
	var records []shared.GradeRecord
	for _, r := range f.records {
		if r.TeacherID == teacherID && r.SchoolYearID == schoolYearID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (f *fakeLedger) FindBySchoolYear(_ context.Context, schoolYearID string) ([]shared.GradeRecord, error) {
	var records []shared.GradeRecord
	for _, r := range f.records {
		if r.SchoolYearID == schoolYearID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (f *fakeLedger) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	var deleted int64
	for _, id := range ids {
		for key, r := range f.records {
			if r.ID == id {
				delete(f.records, key)
				f.deleted = append(f.deleted, id)
				deleted++
			}
		}
	}
	return deleted, nil
}

func (f *fakeLedger) DeleteByLRNs(_ context.Context, lrns []string, schoolYearID string) (int64, error) {
	var deleted int64
	for key, r := range f.records {
		if r.SchoolYearID != schoolYearID {
			continue
		}
		for _, lrn := range lrns {
			if r.LRN == lrn {
				delete(f.records, key)
				deleted++
			}
		}
	}
	return deleted, nil
}

type fakeAudit struct {
	entries []string
}

func (f *fakeAudit) Record(userID, action, remarks string) {
	f.entries = append(f.entries, userID+"/"+action)
}

// ============================================================================
// Fixtures
// ============================================================================

func enrolled(lrn, name, sex string) shared.EnrollmentRecord {
	return shared.EnrollmentRecord{
		LRN:         lrn,
		Name:        name,
		Sex:         sex,
		GradeLevel:  "5",
		SectionID:   "sec-1",
		SectionName: "Matayaga",
		Status:      shared.StudentEnrolled,
	}
}

func newTestService() (*Service, *fakeLedger, *fakeAudit) {
	students := &fakeStudents{
		records: map[string]shared.EnrollmentRecord{
			"001": enrolled("001", "Juan Cruz", shared.SexMale),
			"002": enrolled("002", "Maria Santos", shared.SexFemale),
		},
	}
	assignments := &fakeAssignments{byID: map[string]shared.SubjectAssignment{
		"assign-1": {
			ID:          "assign-1",
			SubjectID:   "subj-math",
			SubjectName: "Mathematics",
			TeacherID:   "teacher-1",
			GradeLevel:  "5",
			SectionID:   "sec-1",
			SectionName: "Matayaga",
		},
	}}
	years := &fakeSchoolYears{active: shared.SchoolYear{
		ID:     "sy-2025",
		Name:   "2025-2026",
		Status: shared.SchoolYearActive,
	}}
	ledger := newFakeLedger()
	audit := &fakeAudit{}

	return NewService(students, assignments, years, ledger, audit, 10), ledger, audit
}

func uploadParams(csv string) UploadParams {
	return UploadParams{
		File:         strings.NewReader(csv),
		Filename:     "grades.csv",
		TeacherID:    "teacher-1",
		Role:         shared.RoleTeacher,
		AssignmentID: "assign-1",
		Quarter:      "Q1",
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestUploadGrades(t *testing.T) {
	t.Run("persists valid rows and audits the upload", func(t *testing.T) {
		service, ledger, audit := newTestService()

		summary, err := service.UploadGrades(context.Background(),
			uploadParams("LRN,Grade\n001,95\n002,88\n"))
		if err != nil {
			t.Fatalf("UploadGrades returned error: %v", err)
		}
		if summary.SuccessCount != 2 {
			t.Fatalf("Expected 2 successes, got %d", summary.SuccessCount)
		}
		if len(ledger.records) != 2 {
			t.Errorf("Expected 2 persisted records, got %d", len(ledger.records))
		}
		if len(audit.entries) != 1 || audit.entries[0] != "teacher-1/"+ActionGradeUpload {
			t.Errorf("Expected one upload audit entry, got %v", audit.entries)
		}
	})

	t.Run("rejects an invalid quarter", func(t *testing.T) {
		service, _, _ := newTestService()
		p := uploadParams("LRN,Grade\n001,95\n")
		p.Quarter = "Q5"

		if _, err := service.UploadGrades(context.Background(), p); err == nil {
			t.Fatal("Expected error for invalid quarter")
		}
	})

	t.Run("rejects the combined pseudo-quarter", func(t *testing.T) {
		service, _, _ := newTestService()
		p := uploadParams("LRN,Grade\n001,95\n")
		p.Quarter = "Combined"

		if _, err := service.UploadGrades(context.Background(), p); err == nil {
			t.Fatal("Expected error for combined quarter on upload")
		}
	})

	t.Run("requires an active school year", func(t *testing.T) {
		service, _, _ := newTestService()
		service.schoolYears = &fakeSchoolYears{err: shared.ErrNoActiveSchoolYear}

		_, err := service.UploadGrades(context.Background(), uploadParams("LRN,Grade\n001,95\n"))
		if !errors.Is(err, shared.ErrNoActiveSchoolYear) {
			t.Fatalf("Expected ErrNoActiveSchoolYear, got %v", err)
		}
	})

	t.Run("rejects uploads on another teacher's assignment", func(t *testing.T) {
		service, _, _ := newTestService()
		p := uploadParams("LRN,Grade\n001,95\n")
		p.TeacherID = "teacher-2"

		_, err := service.UploadGrades(context.Background(), p)
		if !errors.Is(err, shared.ErrNotAssigned) {
			t.Fatalf("Expected ErrNotAssigned, got %v", err)
		}
	})

	t.Run("admins may upload on any assignment", func(t *testing.T) {
		service, _, _ := newTestService()
		p := uploadParams("LRN,Grade\n001,95\n")
		p.TeacherID = "admin-1"
		p.Role = shared.RoleAdmin

		summary, err := service.UploadGrades(context.Background(), p)
		if err != nil {
			t.Fatalf("UploadGrades returned error: %v", err)
		}
		if summary.SuccessCount != 1 {
			t.Errorf("Expected 1 success, got %d", summary.SuccessCount)
		}
	})

	t.Run("rejects an unknown assignment", func(t *testing.T) {
		service, _, _ := newTestService()
		p := uploadParams("LRN,Grade\n001,95\n")
		p.AssignmentID = "assign-404"

		_, err := service.UploadGrades(context.Background(), p)
		if !errors.Is(err, shared.ErrSubjectNotFound) {
			t.Fatalf("Expected ErrSubjectNotFound, got %v", err)
		}
	})
}

func TestUploadedGrades(t *testing.T) {
	service, ledger, _ := newTestService()
	ledger.records["001/subj-math/Q1/sy-2025"] = shared.GradeRecord{
		ID:           "g1",
		LRN:          "001",
		SubjectID:    "subj-math",
		TeacherID:    "teacher-1",
		SchoolYearID: "sy-2025",
		Quarter:      shared.QuarterQ1,
		Grade:        95,
		CreatedAt:    time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}

	uploads, err := service.UploadedGrades(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("UploadedGrades returned error: %v", err)
	}
	if len(uploads) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(uploads))
	}

	row := uploads[0]
	if row.StudentName != "Juan Cruz" {
		t.Errorf("Expected resolved student name, got %q", row.StudentName)
	}
	if row.Subject != "Mathematics" || row.GradeSection != "5 - Matayaga" {
		t.Errorf("Expected resolved subject and section, got %q / %q", row.Subject, row.GradeSection)
	}
	if row.Quarter != "1st Quarter" || row.SchoolYear != "2025-2026" {
		t.Errorf("Expected display labels, got %q / %q", row.Quarter, row.SchoolYear)
	}
}

func TestDeleteGrades(t *testing.T) {
	t.Run("deletes by id and audits", func(t *testing.T) {
		service, ledger, audit := newTestService()
		ledger.records["001/subj-math/Q1/sy-2025"] = shared.GradeRecord{
			ID: "g1", LRN: "001", SubjectID: "subj-math", SchoolYearID: "sy-2025", Quarter: shared.QuarterQ1,
		}

		deleted, err := service.DeleteGrades(context.Background(), "admin-1", []string{"g1", "g-missing"})
		if err != nil {
			t.Fatalf("DeleteGrades returned error: %v", err)
		}
		if deleted != 1 {
			t.Errorf("Expected 1 deletion, got %d", deleted)
		}
		if len(audit.entries) != 1 || audit.entries[0] != "admin-1/"+ActionGradeDelete {
			t.Errorf("Expected one delete audit entry, got %v", audit.entries)
		}
	})

	t.Run("rejects an empty id list", func(t *testing.T) {
		service, _, _ := newTestService()
		if _, err := service.DeleteGrades(context.Background(), "admin-1", nil); err == nil {
			t.Fatal("Expected error for empty id list")
		}
	})

	t.Run("deletes student grades within the active year only", func(t *testing.T) {
		service, ledger, _ := newTestService()
		ledger.records["001/subj-math/Q1/sy-2025"] = shared.GradeRecord{
			ID: "g1", LRN: "001", SubjectID: "subj-math", SchoolYearID: "sy-2025", Quarter: shared.QuarterQ1,
		}
		ledger.records["001/subj-math/Q1/sy-2024"] = shared.GradeRecord{
			ID: "g0", LRN: "001", SubjectID: "subj-math", SchoolYearID: "sy-2024", Quarter: shared.QuarterQ1,
		}

		deleted, err := service.DeleteStudentGrades(context.Background(), "admin-1", []string{"001"})
		if err != nil {
			t.Fatalf("DeleteStudentGrades returned error: %v", err)
		}
		if deleted != 1 {
			t.Errorf("Expected only the active-year record deleted, got %d", deleted)
		}
		if _, ok := ledger.records["001/subj-math/Q1/sy-2024"]; !ok {
			t.Error("Prior-year record must survive")
		}
	})
}

func TestConsolidatedGrades(t *testing.T) {
	t.Run("builds grids and report for the active year", func(t *testing.T) {
		service, ledger, _ := newTestService()
		ledger.records["001/subj-math/Q1/sy-2025"] = shared.GradeRecord{
			ID: "g1", LRN: "001", SubjectID: "subj-math", TeacherID: "teacher-1",
			SchoolYearID: "sy-2025", Quarter: shared.QuarterQ1, Grade: 80,
		}
		ledger.records["001/subj-math/Q3/sy-2025"] = shared.GradeRecord{
			ID: "g2", LRN: "001", SubjectID: "subj-math", TeacherID: "teacher-1",
			SchoolYearID: "sy-2025", Quarter: shared.QuarterQ3, Grade: 90,
		}

		result, err := service.ConsolidatedGrades(context.Background(), []string{"sec-1"}, "")
		if err != nil {
			t.Fatalf("ConsolidatedGrades returned error: %v", err)
		}
		if result.Quarter != shared.QuarterCombined {
			t.Errorf("Expected combined view by default, got %s", result.Quarter)
		}
		if len(result.Students) != 2 {
			t.Fatalf("Expected 2 students, got %d", len(result.Students))
		}
		// Male before female.
		if result.Students[0].LRN != "001" || result.Students[1].LRN != "002" {
			t.Errorf("Unexpected student order: %s, %s", result.Students[0].LRN, result.Students[1].LRN)
		}
		if result.Report == nil || len(result.Report.SubjectAverages) != 1 {
			t.Fatalf("Expected a report with one subject, got %+v", result.Report)
		}
		if avg := result.Report.SubjectAverages[0].Average; avg != 85.0 {
			t.Errorf("Expected combined math average 85.0, got %v", avg)
		}
	})

	t.Run("empty scope is the unrestricted administrative view", func(t *testing.T) {
		service, ledger, _ := newTestService()
		ledger.records["001/subj-math/Q1/sy-2025"] = shared.GradeRecord{
			ID: "g1", LRN: "001", SubjectID: "subj-math", TeacherID: "teacher-1",
			SchoolYearID: "sy-2025", Quarter: shared.QuarterQ1, Grade: 80,
		}

		result, err := service.ConsolidatedGrades(context.Background(), nil, "Q1")
		if err != nil {
			t.Fatalf("ConsolidatedGrades returned error: %v", err)
		}
		if len(result.Students) != 2 {
			t.Fatalf("Expected every enrolled student, got %d", len(result.Students))
		}
	})

	t.Run("section scope filters after grouping", func(t *testing.T) {
		service, _, _ := newTestService()
		outside := enrolled("005", "Carlos Diaz", shared.SexMale)
		outside.SectionID = "sec-2"
		outside.SectionName = "Sampaguita"
		service.students.(*fakeStudents).records["005"] = outside

		result, err := service.ConsolidatedGrades(context.Background(), []string{"sec-1"}, "Q1")
		if err != nil {
			t.Fatalf("ConsolidatedGrades returned error: %v", err)
		}
		for _, student := range result.Students {
			if student.SectionID != "sec-1" {
				t.Errorf("Out-of-scope student leaked into the view: %+v", student)
			}
		}
		if len(result.Students) != 2 {
			t.Errorf("Expected 2 in-scope students, got %d", len(result.Students))
		}
	})

	t.Run("withdrawn students keep their ledger history", func(t *testing.T) {
		service, ledger, _ := newTestService()
		withdrawn := enrolled("009", "Luis Ramos", shared.SexMale)
		withdrawn.Status = shared.StudentWithdrawn
		service.students.(*fakeStudents).records["009"] = withdrawn
		ledger.records["009/subj-math/Q1/sy-2025"] = shared.GradeRecord{
			ID: "g9", LRN: "009", SubjectID: "subj-math", TeacherID: "teacher-1",
			SchoolYearID: "sy-2025", Quarter: shared.QuarterQ1, Grade: 77,
		}

		result, err := service.ConsolidatedGrades(context.Background(), []string{"sec-1"}, "Q1")
		if err != nil {
			t.Fatalf("ConsolidatedGrades returned error: %v", err)
		}

		var found bool
		for _, student := range result.Students {
			if student.LRN == "009" {
				found = true
				if g := student.Grades[shared.QuarterQ1]["Mathematics"]; g == nil || *g != 77 {
					t.Errorf("Expected Q1 grade 77 for the withdrawn student, got %v", g)
				}
			}
		}
		if !found {
			t.Fatal("Withdrawn student with a ledger row must appear in the view")
		}
	})

	t.Run("rejects an invalid quarter", func(t *testing.T) {
		service, _, _ := newTestService()
		if _, err := service.ConsolidatedGrades(context.Background(), []string{"sec-1"}, "Q9"); err == nil {
			t.Fatal("Expected error for invalid quarter")
		}
	})
}
