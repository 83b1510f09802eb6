// ============================================================================
// backend/internal/storage/assignments.go
// Subject assignment store backed by MongoDB
// ============================================================================

package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"sgms_backend/backend/internal/shared"
)

// AssignmentStore reads subject assignments. Assignments are maintained by
// the admin side of the system; this service only consumes them.
type AssignmentStore struct {
	col *mongo.Collection
}

// NewAssignmentStore creates an assignment store over the subject_assignments
// collection.
func NewAssignmentStore(db *mongo.Database) *AssignmentStore {
	return &AssignmentStore{col: db.Collection(shared.CollectionAssignments)}
}

// FindByID fetches one assignment, returning shared.ErrSubjectNotFound when
// it does not exist.
func (s *AssignmentStore) FindByID(ctx context.Context, id string) (shared.SubjectAssignment, error) {
	var assignment shared.SubjectAssignment
	err := shared.FindOneWithTimeout(ctx, s.col, bson.M{"_id": id}, &assignment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return shared.SubjectAssignment{}, shared.ErrSubjectNotFound
	}
	if err != nil {
		return shared.SubjectAssignment{}, fmt.Errorf("failed to fetch assignment %s: %w", id, err)
	}
	return assignment, nil
}

// FindByTeacher returns every assignment held by a teacher.
func (s *AssignmentStore) FindByTeacher(ctx context.Context, teacherID string) ([]shared.SubjectAssignment, error) {
	return s.find(ctx, bson.M{"teacher_id": teacherID})
}

// FindAll returns every assignment. Consolidation derives section subject
// sets from the full list so the grouping sees global context before any
// section scope is applied.
func (s *AssignmentStore) FindAll(ctx context.Context) ([]shared.SubjectAssignment, error) {
	return s.find(ctx, bson.M{})
}

func (s *AssignmentStore) find(ctx context.Context, filter bson.M) ([]shared.SubjectAssignment, error) {
	queryCtx, cancel := shared.WithQueryTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(queryCtx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer cursor.Close(queryCtx)

	var assignments []shared.SubjectAssignment
	if err := cursor.All(queryCtx, &assignments); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	return assignments, nil
}
