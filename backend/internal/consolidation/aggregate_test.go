package consolidation

import (
	"math"
	"testing"

	"sgms_backend/backend/internal/shared"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCombinedGrades(t *testing.T) {
	t.Run("averages only the graded quarters", func(t *testing.T) {
		students := []shared.EnrollmentRecord{sectionStudent("001", "Juan Cruz", shared.SexMale, "sec-1")}
		grades := []shared.GradeRecord{
			gradeRow("001", "subj-math", shared.QuarterQ1, 80),
			gradeRow("001", "subj-math", shared.QuarterQ3, 90),
		}

		consolidated := Build(students, grades, []shared.SubjectAssignment{mathAssignment("sec-1")}, nil)
		combined := CombinedGrades(consolidated[0])

		got := combined["Mathematics"]
		if got == nil || !almostEqual(*got, 85.0) {
			t.Fatalf("Expected combined 85.0 from Q1=80 and Q3=90, got %v", got)
		}
	})

	t.Run("subject with no grades stays nil", func(t *testing.T) {
		students := []shared.EnrollmentRecord{sectionStudent("001", "Juan Cruz", shared.SexMale, "sec-1")}
		assignments := []shared.SubjectAssignment{mathAssignment("sec-1")}

		consolidated := Build(students, nil, assignments, nil)
		combined := CombinedGrades(consolidated[0])

		if combined["Mathematics"] != nil {
			t.Errorf("Expected nil combined grade, got %v", *combined["Mathematics"])
		}
	})
}

func TestBuildReport(t *testing.T) {
	buildClass := func() []ConsolidatedStudent {
		students := []shared.EnrollmentRecord{
			sectionStudent("001", "Juan Cruz", shared.SexMale, "sec-1"),
			sectionStudent("002", "Ana Lopez", shared.SexFemale, "sec-1"),
		}
		grades := []shared.GradeRecord{
			gradeRow("001", "subj-math", shared.QuarterQ1, 80),
			gradeRow("002", "subj-math", shared.QuarterQ1, 90),
			gradeRow("001", "subj-sci", shared.QuarterQ1, 70),
		}
		assignments := []shared.SubjectAssignment{mathAssignment("sec-1"), scienceAssignment("sec-1")}
		return Build(students, grades, assignments, nil)
	}

	t.Run("subject averages skip missing grades", func(t *testing.T) {
		report := BuildReport(buildClass(), shared.QuarterQ1)

		if len(report.SubjectAverages) != 2 {
			t.Fatalf("Expected 2 subject averages, got %+v", report.SubjectAverages)
		}
		mathAvg := report.SubjectAverages[0]
		if mathAvg.Subject != "Mathematics" || !almostEqual(mathAvg.Average, 85.0) || mathAvg.Count != 2 {
			t.Errorf("Unexpected math average: %+v", mathAvg)
		}
		sci := report.SubjectAverages[1]
		if sci.Subject != "Science" || !almostEqual(sci.Average, 70.0) || sci.Count != 1 {
			t.Errorf("Unexpected science average: %+v", sci)
		}
	})

	t.Run("overall average weighs subjects equally", func(t *testing.T) {
		report := BuildReport(buildClass(), shared.QuarterQ1)

		// Mean of subject averages (85 and 70), not of the raw grades.
		if report.OverallAverage == nil || !almostEqual(*report.OverallAverage, 77.5) {
			t.Fatalf("Expected overall 77.5, got %v", report.OverallAverage)
		}
	})

	t.Run("student averages skip missing grades", func(t *testing.T) {
		report := BuildReport(buildClass(), shared.QuarterQ1)

		juan := report.StudentAverages["001"]
		if juan == nil || !almostEqual(*juan, 75.0) {
			t.Errorf("Expected 75.0 for 001, got %v", juan)
		}
		ana := report.StudentAverages["002"]
		if ana == nil || !almostEqual(*ana, 90.0) {
			t.Errorf("Expected 90.0 for 002 despite the missing science grade, got %v", ana)
		}
	})

	t.Run("extremes with lexical tie-break", func(t *testing.T) {
		report := BuildReport(buildClass(), shared.QuarterQ1)
		if report.HighestSubject == nil || report.HighestSubject.Subject != "Mathematics" {
			t.Errorf("Unexpected highest subject: %+v", report.HighestSubject)
		}
		if report.LowestSubject == nil || report.LowestSubject.Subject != "Science" {
			t.Errorf("Unexpected lowest subject: %+v", report.LowestSubject)
		}

		// Tie on every subject: the lexically smallest name wins both ends.
		students := []shared.EnrollmentRecord{sectionStudent("001", "Juan Cruz", shared.SexMale, "sec-1")}
		grades := []shared.GradeRecord{
			gradeRow("001", "subj-math", shared.QuarterQ1, 85),
			gradeRow("001", "subj-sci", shared.QuarterQ1, 85),
		}
		assignments := []shared.SubjectAssignment{mathAssignment("sec-1"), scienceAssignment("sec-1")}
		tied := BuildReport(Build(students, grades, assignments, nil), shared.QuarterQ1)

		if tied.HighestSubject.Subject != "Mathematics" || tied.LowestSubject.Subject != "Mathematics" {
			t.Errorf("Expected Mathematics on both ends of the tie, got %+v / %+v",
				tied.HighestSubject, tied.LowestSubject)
		}
	})

	t.Run("combined view feeds the report", func(t *testing.T) {
		students := []shared.EnrollmentRecord{sectionStudent("001", "Juan Cruz", shared.SexMale, "sec-1")}
		grades := []shared.GradeRecord{
			gradeRow("001", "subj-math", shared.QuarterQ1, 80),
			gradeRow("001", "subj-math", shared.QuarterQ3, 90),
		}
		assignments := []shared.SubjectAssignment{mathAssignment("sec-1")}

		report := BuildReport(Build(students, grades, assignments, nil), shared.QuarterCombined)
		if len(report.SubjectAverages) != 1 || !almostEqual(report.SubjectAverages[0].Average, 85.0) {
			t.Fatalf("Expected combined math average 85.0, got %+v", report.SubjectAverages)
		}
	})

	t.Run("empty class yields nil aggregates", func(t *testing.T) {
		report := BuildReport(nil, shared.QuarterQ1)
		if report.OverallAverage != nil {
			t.Errorf("Expected nil overall average, got %v", *report.OverallAverage)
		}
		if report.HighestSubject != nil || report.LowestSubject != nil {
			t.Errorf("Expected no extremes, got %+v / %+v", report.HighestSubject, report.LowestSubject)
		}
		if report.StudentCount != 0 {
			t.Errorf("Expected 0 students, got %d", report.StudentCount)
		}
	})

	t.Run("ungraded students average to nil not zero", func(t *testing.T) {
		students := []shared.EnrollmentRecord{sectionStudent("003", "Pedro Reyes", shared.SexMale, "sec-1")}
		assignments := []shared.SubjectAssignment{mathAssignment("sec-1")}

		report := BuildReport(Build(students, nil, assignments, nil), shared.QuarterQ1)
		if avg, ok := report.StudentAverages["003"]; !ok {
			t.Fatal("Expected an entry for 003")
		} else if avg != nil {
			t.Errorf("Expected nil average for ungraded student, got %v", *avg)
		}
	})
}
