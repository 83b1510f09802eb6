// ============================================================================
// backend/internal/consolidation/aggregate.go
// Aggregation engine: combined view, student/subject/class averages, extremes
// ============================================================================

package consolidation

import (
	"sort"

	"github.com/montanaflynn/stats"

	"sgms_backend/backend/internal/shared"
)

// CombinedGrades computes the synthetic combined view for one student: per
// subject, the mean of whichever real quarters carry a grade. A subject with
// no grades in any quarter stays nil rather than collapsing to zero.
func CombinedGrades(student ConsolidatedStudent) map[string]*float64 {
	combined := make(map[string]*float64, len(student.Grades[shared.QuarterQ1]))
	for _, subject := range student.Subjects() {
		var values []float64
		for _, q := range shared.Quarters() {
			if g := student.Grades[q][subject]; g != nil {
				values = append(values, float64(*g))
			}
		}
		combined[subject] = meanOf(values)
	}
	return combined
}

// SubjectAverage is one subject's class-wide average over the students that
// have a grade for it.
type SubjectAverage struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Report is the class-level aggregate for one quarter view.
type Report struct {
	Quarter         shared.Quarter      `json:"quarter"`
	StudentCount    int                 `json:"student_count"`
	StudentAverages map[string]*float64 `json:"student_averages"` // keyed by LRN
	SubjectAverages []SubjectAverage    `json:"subject_averages"` // sorted by subject
	OverallAverage  *float64            `json:"overall_average"`
	HighestSubject  *SubjectAverage     `json:"highest_subject"`
	LowestSubject   *SubjectAverage     `json:"lowest_subject"`
}

// BuildReport aggregates consolidated students for one quarter view. Passing
// QuarterCombined aggregates over the per-student combined grades.
//
// Averages skip missing grades rather than counting them as zero: a student
// average is the mean of the subject grades they actually have, a subject
// average is the mean over the students graded in it, and the overall average
// is the mean of the subject averages, so every subject weighs equally
// regardless of how many grades it has.
func BuildReport(students []ConsolidatedStudent, quarter shared.Quarter) *Report {
	report := &Report{
		Quarter:         quarter,
		StudentCount:    len(students),
		StudentAverages: make(map[string]*float64, len(students)),
	}

	subjectValues := make(map[string][]float64)
	for _, student := range students {
		grades := quarterView(student, quarter)

		var studentValues []float64
		for subject, grade := range grades {
			if grade == nil {
				continue
			}
			studentValues = append(studentValues, *grade)
			subjectValues[subject] = append(subjectValues[subject], *grade)
		}
		report.StudentAverages[student.LRN] = meanOf(studentValues)
	}

	subjects := make([]string, 0, len(subjectValues))
	for subject := range subjectValues {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	var classValues []float64
	for _, subject := range subjects {
		values := subjectValues[subject]
		avg := meanOf(values)
		if avg == nil {
			continue
		}
		entry := SubjectAverage{Subject: subject, Average: *avg, Count: len(values)}
		report.SubjectAverages = append(report.SubjectAverages, entry)
		classValues = append(classValues, *avg)
	}
	report.OverallAverage = meanOf(classValues)

	// Subjects are walked in sorted order, so strict comparisons keep the
	// lexically smallest subject on a tied average.
	for i := range report.SubjectAverages {
		entry := report.SubjectAverages[i]
		if report.HighestSubject == nil || entry.Average > report.HighestSubject.Average {
			report.HighestSubject = &report.SubjectAverages[i]
		}
		if report.LowestSubject == nil || entry.Average < report.LowestSubject.Average {
			report.LowestSubject = &report.SubjectAverages[i]
		}
	}

	return report
}

// quarterView resolves one student's grades for the requested view as
// floats, with nil preserved for missing grades.
func quarterView(student ConsolidatedStudent, quarter shared.Quarter) map[string]*float64 {
	if quarter == shared.QuarterCombined {
		return CombinedGrades(student)
	}

	view := make(map[string]*float64, len(student.Grades[quarter]))
	for subject, grade := range student.Grades[quarter] {
		if grade == nil {
			view[subject] = nil
			continue
		}
		f := float64(*grade)
		view[subject] = &f
	}
	return view
}

// meanOf averages values, returning nil for an empty slice so callers never
// divide by zero or mistake "no data" for 0.
func meanOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	return &mean
}
