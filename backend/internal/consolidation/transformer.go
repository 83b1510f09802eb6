// ============================================================================
// backend/internal/consolidation/transformer.go
// Consolidation transformer: ledger rows -> per-student quarter grids
// ============================================================================

package consolidation

import (
	"sort"

	"sgms_backend/backend/internal/shared"
)

// ConsolidatedStudent is one student's complete grade grid: every quarter is
// present and every subject in scope for the student appears under every
// quarter, with nil marking the absence of a grade. Consumers can render the
// grid without existence checks.
type ConsolidatedStudent struct {
	LRN         string                             `json:"lrn"`
	Name        string                             `json:"name"`
	Sex         string                             `json:"sex"`
	GradeLevel  string                             `json:"grade_level"`
	SectionID   string                             `json:"section_id"`
	SectionName string                             `json:"section_name"`
	Grades      map[shared.Quarter]map[string]*int `json:"grades"`
}

// Subjects returns the student's subject names in sorted order. Every quarter
// carries the same subject set, so Q1 is as good as any.
func (c ConsolidatedStudent) Subjects() []string {
	subjects := make([]string, 0, len(c.Grades[shared.QuarterQ1]))
	for subject := range c.Grades[shared.QuarterQ1] {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// Build transforms flat ledger rows into consolidated per-student grids.
//
// A student's subject set is the union of the subjects assigned to their
// section and the subjects they actually have grades for; the assignment
// list is the authority, the ledger fills in anything it missed. Subject IDs
// without a known assignment fall back to the raw ID as the display name.
//
// Output ordering is deterministic: males before females, then by name, then
// by LRN. When sectionScope is non-empty, students outside the named sections
// are dropped after grouping.
func Build(students []shared.EnrollmentRecord, grades []shared.GradeRecord, assignments []shared.SubjectAssignment, sectionScope []string) []ConsolidatedStudent {
	subjectNames := make(map[string]string, len(assignments))
	sectionSubjects := make(map[string]map[string]struct{})
	for _, a := range assignments {
		if _, ok := subjectNames[a.SubjectID]; !ok {
			subjectNames[a.SubjectID] = a.SubjectName
		}
		set, ok := sectionSubjects[a.SectionID]
		if !ok {
			set = make(map[string]struct{})
			sectionSubjects[a.SectionID] = set
		}
		set[a.SubjectID] = struct{}{}
	}

	// lrn -> subject id -> quarter -> grade
	byStudent := make(map[string]map[string]map[shared.Quarter]int)
	for _, g := range grades {
		subjects, ok := byStudent[g.LRN]
		if !ok {
			subjects = make(map[string]map[shared.Quarter]int)
			byStudent[g.LRN] = subjects
		}
		quarters, ok := subjects[g.SubjectID]
		if !ok {
			quarters = make(map[shared.Quarter]int)
			subjects[g.SubjectID] = quarters
		}
		quarters[g.Quarter] = g.Grade
	}

	consolidated := make([]ConsolidatedStudent, 0, len(students))
	for _, student := range students {
		subjectIDs := make(map[string]struct{}, len(sectionSubjects[student.SectionID]))
		for sid := range sectionSubjects[student.SectionID] {
			subjectIDs[sid] = struct{}{}
		}
		for sid := range byStudent[student.LRN] {
			subjectIDs[sid] = struct{}{}
		}

		grid := make(map[shared.Quarter]map[string]*int, len(shared.Quarters()))
		for _, q := range shared.Quarters() {
			row := make(map[string]*int, len(subjectIDs))
			for sid := range subjectIDs {
				row[displayName(subjectNames, sid)] = nil
			}
			grid[q] = row
		}
		for sid, quarters := range byStudent[student.LRN] {
			name := displayName(subjectNames, sid)
			for q, grade := range quarters {
				g := grade
				grid[q][name] = &g
			}
		}

		consolidated = append(consolidated, ConsolidatedStudent{
			LRN:         student.LRN,
			Name:        student.Name,
			Sex:         student.Sex,
			GradeLevel:  student.GradeLevel,
			SectionID:   student.SectionID,
			SectionName: student.SectionName,
			Grades:      grid,
		})
	}

	sort.SliceStable(consolidated, func(i, j int) bool {
		a, b := consolidated[i], consolidated[j]
		if a.Sex != b.Sex {
			return sexRank(a.Sex) < sexRank(b.Sex)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.LRN < b.LRN
	})

	if len(sectionScope) > 0 {
		inScope := make(map[string]struct{}, len(sectionScope))
		for _, id := range sectionScope {
			inScope[id] = struct{}{}
		}
		filtered := consolidated[:0]
		for _, c := range consolidated {
			if _, ok := inScope[c.SectionID]; ok {
				filtered = append(filtered, c)
			}
		}
		consolidated = filtered
	}

	return consolidated
}

func displayName(subjectNames map[string]string, subjectID string) string {
	if name, ok := subjectNames[subjectID]; ok && name != "" {
		return name
	}
	return subjectID
}

func sexRank(sex string) int {
	switch sex {
	case shared.SexMale:
		return 0
	case shared.SexFemale:
		return 1
	}
	return 2
}
