// ============================================================================
// backend/internal/storage/students.go
// Student directory store backed by MongoDB
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

// StudentStore is the read-only enrollment directory. It satisfies
// upload.Directory.
type StudentStore struct {
	col *mongo.Collection
}

// NewStudentStore creates a student store over the students collection.
func NewStudentStore(db *mongo.Database) *StudentStore {
	return &StudentStore{col: db.Collection(shared.CollectionStudents)}
}

// FindByLRNs resolves currently enrolled students for a batch of LRNs in one
// round trip. LRNs without a matching enrolled student are simply absent from
// the result; that absence is the validator's signal, not an error.
func (s *StudentStore) FindByLRNs(ctx context.Context, lrns []string) (map[string]shared.EnrollmentRecord, error) {
	if len(lrns) == 0 {
		return map[string]shared.EnrollmentRecord{}, nil
	}

	queryCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(queryCtx, bson.M{
		"_id":    bson.M{"$in": lrns},
		"status": shared.StudentEnrolled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer cursor.Close(queryCtx)

	students := make(map[string]shared.EnrollmentRecord, len(lrns))
	for cursor.Next(queryCtx) {
		var record shared.EnrollmentRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode student: %w", err)
		}
		students[record.LRN] = record
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}

	return students, nil
}

// FindByLRNsAnyStatus resolves students for a batch of LRNs regardless of
// enrollment status. Consolidation uses it so a student withdrawn after
// grading keeps their ledger history visible.
func (s *StudentStore) FindByLRNsAnyStatus(ctx context.Context, lrns []string) (map[string]shared.EnrollmentRecord, error) {
	if len(lrns) == 0 {
		return map[string]shared.EnrollmentRecord{}, nil
	}

	queryCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(queryCtx, bson.M{"_id": bson.M{"$in": lrns}})
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer cursor.Close(queryCtx)

	students := make(map[string]shared.EnrollmentRecord, len(lrns))
	for cursor.Next(queryCtx) {
		var record shared.EnrollmentRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode student: %w", err)
		}
		students[record.LRN] = record
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}

	return students, nil
}

// FindEnrolled returns every currently enrolled student, sorted by name, for
// consolidation views.
func (s *StudentStore) FindEnrolled(ctx context.Context) ([]shared.EnrollmentRecord, error) {
	queryCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(queryCtx, bson.M{"status": shared.StudentEnrolled},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query enrolled students: %w", err)
	}
	defer cursor.Close(queryCtx)

	var students []shared.EnrollmentRecord
	if err := cursor.All(queryCtx, &students); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return students, nil
}
