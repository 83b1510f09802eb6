// ============================================================================
// backend/internal/shared/database.go
// MongoDB connection, index bootstrap, and query helpers
// ============================================================================

package shared

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used across the service.
const (
	CollectionGrades      = "grades"
	CollectionStudents    = "students"
	CollectionAssignments = "subject_assignments"
	CollectionSchoolYears = "school_years"
	CollectionAuditLogs   = "audit_logs"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
	MaxIdleTime    time.Duration
}

// DefaultMongoConfig returns default MongoDB configuration.
func DefaultMongoConfig(uri, database string) *MongoConfig {
	return &MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 20 * time.Second,
		MaxPoolSize:    50,
		MinPoolSize:    10,
		MaxIdleTime:    30 * time.Second,
	}
}

// ConnectMongoDB establishes a connection to MongoDB Atlas/Local with proper
// configuration.
func ConnectMongoDB(config *MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("mongo config cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(config.MaxIdleTime).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(config.ConnectTimeout).
		SetSocketTimeout(30 * time.Second).
		SetHeartbeatInterval(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Successfully connected to MongoDB (Database: %s)", config.Database)

	db := client.Database(config.Database)
	return client, db, nil
}

// DisconnectMongoDB gracefully closes the MongoDB connection.
func DisconnectMongoDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Println("Successfully disconnected from MongoDB")
	return nil
}

// ============================================================================
// Index Bootstrap
// ============================================================================

// EnsureIndexes creates the indexes the engine relies on. The unique compound
// index on the grade identity tuple is the hard backstop behind the duplicate
// pre-check: two concurrent uploads racing on the same tuple cannot both land.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	gradeIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "lrn", Value: 1},
				{Key: "subject_id", Value: 1},
				{Key: "quarter", Value: 1},
				{Key: "school_year_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_grade_identity"),
		},
		{
			Keys: bson.D{
				{Key: "teacher_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("teacher_uploads"),
		},
		{
			Keys:    bson.D{{Key: "school_year_id", Value: 1}},
			Options: options.Index().SetName("grades_school_year"),
		},
	}
	if _, err := db.Collection(CollectionGrades).Indexes().CreateMany(indexCtx, gradeIndexes); err != nil {
		return fmt.Errorf("failed to create grade indexes: %w", err)
	}

	assignmentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}},
			Options: options.Index().SetName("assignment_subject"),
		},
		{
			Keys:    bson.D{{Key: "teacher_id", Value: 1}},
			Options: options.Index().SetName("assignment_teacher"),
		},
	}
	if _, err := db.Collection(CollectionAssignments).Indexes().CreateMany(indexCtx, assignmentIndexes); err != nil {
		return fmt.Errorf("failed to create assignment indexes: %w", err)
	}

	log.Println("MongoDB indexes ensured")
	return nil
}

// ============================================================================
// Query Helpers
// ============================================================================

// queryTimeout is the per-round-trip budget for storage calls.
const queryTimeout = 10 * time.Second

// WithQueryTimeout derives a context bounded by the standard query budget.
func WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// FindOneWithTimeout finds a single document under the standard query budget.
func FindOneWithTimeout(ctx context.Context, col *mongo.Collection, filter bson.M, result interface{}) error {
	queryCtx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	return col.FindOne(queryCtx, filter).Decode(result)
}

// CountWithTimeout counts documents under the standard query budget.
func CountWithTimeout(ctx context.Context, col *mongo.Collection, filter bson.M) (int64, error) {
	queryCtx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	count, err := col.CountDocuments(queryCtx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}
