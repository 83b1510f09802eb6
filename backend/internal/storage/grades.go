// ============================================================================
// backend/internal/storage/grades.go
// Grade ledger store backed by MongoDB
// ============================================================================

package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sgms_backend/backend/internal/shared"
)

// GradeStore persists and queries grade ledger rows. It satisfies
// upload.Ledger.
type GradeStore struct {
	col *mongo.Collection
}

// NewGradeStore creates a grade store over the grades collection.
func NewGradeStore(db *mongo.Database) *GradeStore {
	return &GradeStore{col: db.Collection(shared.CollectionGrades)}
}

// Exists reports whether a ledger row already holds the identity tuple. This
// is a fast-path pre-check only; Insert remains the authority.
func (s *GradeStore) Exists(ctx context.Context, id shared.GradeIdentity) (bool, error) {
	count, err := shared.CountWithTimeout(ctx, s.col, bson.M{
		"lrn":            id.LRN,
		"subject_id":     id.SubjectID,
		"quarter":        id.Quarter,
		"school_year_id": id.SchoolYearID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check existing grade %s: %w", id, err)
	}
	return count > 0, nil
}

// Insert appends one ledger row. A write that collides with the unique
// identity index surfaces as shared.ErrDuplicateGrade so callers can count
// the row as a duplicate instead of a failure.
func (s *GradeStore) Insert(ctx context.Context, record shared.GradeRecord) error {
	insertCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	if _, err := s.col.InsertOne(insertCtx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ErrDuplicateGrade
		}
		return fmt.Errorf("failed to insert grade for %s: %w", record.LRN, err)
	}
	return nil
}

// FindByTeacher returns the rows a teacher uploaded within a school year,
// newest first, for the upload history view.
func (s *GradeStore) FindByTeacher(ctx context.Context, teacherID, schoolYearID string) ([]shared.GradeRecord, error) {
	return s.find(ctx, bson.M{
		"teacher_id":     teacherID,
		"school_year_id": schoolYearID,
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// FindBySchoolYear returns every ledger row of a school year, feeding the
// consolidation transformer.
func (s *GradeStore) FindBySchoolYear(ctx context.Context, schoolYearID string) ([]shared.GradeRecord, error) {
	return s.find(ctx, bson.M{"school_year_id": schoolYearID}, nil)
}

// DeleteByIDs removes the identified ledger rows and returns how many were
// actually deleted. Corrections are delete-and-reupload; there is no update.
func (s *GradeStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleteCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	result, err := s.col.DeleteMany(deleteCtx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete grades by id: %w", err)
	}
	return result.DeletedCount, nil
}

// DeleteByLRNs removes every ledger row belonging to the given students
// within a school year, typically ahead of an un-enrollment.
func (s *GradeStore) DeleteByLRNs(ctx context.Context, lrns []string, schoolYearID string) (int64, error) {
	if len(lrns) == 0 {
		return 0, nil
	}

	deleteCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	result, err := s.col.DeleteMany(deleteCtx, bson.M{
		"lrn":            bson.M{"$in": lrns},
		"school_year_id": schoolYearID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete grades by lrn: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *GradeStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]shared.GradeRecord, error) {
	queryCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = s.col.Find(queryCtx, filter, opts)
	} else {
		cursor, err = s.col.Find(queryCtx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grades: %w", err)
	}
	defer cursor.Close(queryCtx)

	var records []shared.GradeRecord
	if err := cursor.All(queryCtx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode grades: %w", err)
	}
	return records, nil
}
