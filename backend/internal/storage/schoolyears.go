// ============================================================================
// backend/internal/storage/schoolyears.go
// School year store backed by MongoDB
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

// SchoolYearStore reads school years. At most one is Active at a time; the
// active year scopes every upload and consolidation read.
type SchoolYearStore struct {
	col *mongo.Collection
}

// NewSchoolYearStore creates a school year store over the school_years
// collection.
func NewSchoolYearStore(db *mongo.Database) *SchoolYearStore {
	return &SchoolYearStore{col: db.Collection(shared.CollectionSchoolYears)}
}

// Active returns the currently active school year, or
// shared.ErrNoActiveSchoolYear when none is marked Active.
func (s *SchoolYearStore) Active(ctx context.Context) (shared.SchoolYear, error) {
	var year shared.SchoolYear
	err := shared.FindOneWithTimeout(ctx, s.col, bson.M{"status": shared.SchoolYearActive}, &year)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return shared.SchoolYear{}, shared.ErrNoActiveSchoolYear
	}
	if err != nil {
		return shared.SchoolYear{}, fmt.Errorf("failed to fetch active school year: %w", err)
	}
	return year, nil
}

// FindByID fetches one school year by its id.
func (s *SchoolYearStore) FindByID(ctx context.Context, id string) (shared.SchoolYear, error) {
	var year shared.SchoolYear
	err := shared.FindOneWithTimeout(ctx, s.col, bson.M{"_id": id}, &year)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return shared.SchoolYear{}, fmt.Errorf("school year %s not found", id)
	}
	if err != nil {
		return shared.SchoolYear{}, fmt.Errorf("failed to fetch school year %s: %w", id, err)
	}
	return year, nil
}
