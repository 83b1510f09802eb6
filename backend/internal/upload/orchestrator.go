// ============================================================================
// backend/internal/upload/orchestrator.go
// Upload pipeline: parse -> validate -> duplicate check -> persist -> summarize
// ============================================================================

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"sgms_backend/backend/internal/shared"
)

// Stage identifies where the pipeline currently is. Stages run strictly in
// order; each consumes the surviving row set of the previous one.
type Stage int

const (
	StageParsing Stage = iota
	StageValidating
	StageDuplicateChecking
	StagePersisting
	StageSummarizing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageParsing:
		return "parsing"
	case StageValidating:
		return "validating"
	case StageDuplicateChecking:
		return "duplicate_checking"
	case StagePersisting:
		return "persisting"
	case StageSummarizing:
		return "summarizing"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// ErrNoRows signals an upload file whose data section is empty.
var ErrNoRows = errors.New("no grade rows detected in the uploaded file")

// Ledger is the persistence boundary of the pipeline. Insert must return
// shared.ErrDuplicateGrade when the record's identity tuple already exists,
// regardless of any pre-check: the ledger's uniqueness guarantee is the
// authoritative one.
type Ledger interface {
	Exists(ctx context.Context, id shared.GradeIdentity) (bool, error)
	Insert(ctx context.Context, record shared.GradeRecord) error
}

// Request carries everything one upload batch needs. The assignment has
// already been resolved and authorized by the caller.
type Request struct {
	File         io.Reader
	Filename     string
	TeacherID    string
	SchoolYearID string
	Quarter      shared.Quarter
	Assignment   shared.SubjectAssignment
}

// Orchestrator drives one upload batch end to end through the fixed stage
// sequence. A batch is all-rows-or-nothing only at the parse stage; from
// validation onward rows succeed and fail independently.
type Orchestrator struct {
	directory   Directory
	ledger      Ledger
	sampleLimit int

	// Injection points for tests.
	now   func() time.Time
	newID func() string
}

// NewOrchestrator creates an orchestrator over the given directory and ledger.
func NewOrchestrator(directory Directory, ledger Ledger, sampleLimit int) *Orchestrator {
	return &Orchestrator{
		directory:   directory,
		ledger:      ledger,
		sampleLimit: sampleLimit,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Run executes the pipeline for one request. A returned error means the
// whole batch was rejected before any row-level processing (unreadable file,
// missing columns, empty file, directory lookup failure); row-level outcomes
// are reported through the summary instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	log.Printf("Upload batch started (file: %s, subject: %s, quarter: %s, stage: %s)",
		req.Filename, req.Assignment.SubjectID, req.Quarter, StageParsing)

	rows, err := ParseFile(req.File, req.Filename)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	students, err := o.directory.FindByLRNs(ctx, CollectLRNs(rows))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch student data: %w", err)
	}

	summary := NewSummary(o.sampleLimit)
	candidates, failures := ValidateRows(rows, students, req.Assignment)
	for _, f := range failures {
		summary.Record(f)
	}

	toInsert := make([]Row, 0, len(candidates))
	for _, row := range candidates {
		identity := shared.GradeIdentity{
			LRN:          row.LRN,
			SubjectID:    req.Assignment.SubjectID,
			Quarter:      req.Quarter,
			SchoolYearID: req.SchoolYearID,
		}
		exists, err := o.ledger.Exists(ctx, identity)
		if err != nil {
			summary.Record(RowFailure{
				Kind:   KindPersistence,
				LRN:    row.LRN,
				Detail: fmt.Sprintf("%s (error checking duplicate: %s)", row.LRN, err),
			})
			continue
		}
		if exists {
			summary.Record(RowFailure{Kind: KindDuplicate, LRN: row.LRN})
			continue
		}
		toInsert = append(toInsert, row)
	}

	for _, row := range toInsert {
		record := shared.GradeRecord{
			ID:           o.newID(),
			LRN:          row.LRN,
			SubjectID:    req.Assignment.SubjectID,
			TeacherID:    req.TeacherID,
			SchoolYearID: req.SchoolYearID,
			Quarter:      req.Quarter,
			Grade:        *row.Grade,
			CreatedAt:    o.now(),
		}

		if err := o.ledger.Insert(ctx, record); err != nil {
			// The unique index catches races the pre-check missed; that
			// outcome is a duplicate, not an error.
			if errors.Is(err, shared.ErrDuplicateGrade) {
				summary.Record(RowFailure{Kind: KindDuplicate, LRN: row.LRN})
				continue
			}
			summary.Record(RowFailure{
				Kind:   KindPersistence,
				LRN:    row.LRN,
				Detail: fmt.Sprintf("%s (%s)", row.LRN, err),
			})
			continue
		}
		summary.RecordSuccess()
	}

	log.Printf("Upload batch finished (file: %s, processed: %d, saved: %d, duplicates: %d, stage: %s)",
		req.Filename, summary.TotalProcessed(), summary.SuccessCount, summary.DuplicateCount, StageDone)

	return summary, nil
}
