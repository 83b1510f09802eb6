// ============================================================================
// backend/internal/storage/audit.go
// Audit log store backed by MongoDB (fire-and-forget writes)
// ============================================================================

package storage

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"sgms_backend/backend/internal/shared"
)

// AuditStore appends audit log entries. Writes are best-effort side effects:
// a failed audit write is logged and never fails the operation it describes.
type AuditStore struct {
	col *mongo.Collection
}

// NewAuditStore creates an audit store over the audit_logs collection.
func NewAuditStore(db *mongo.Database) *AuditStore {
	return &AuditStore{col: db.Collection(shared.CollectionAuditLogs)}
}

// Record appends one audit entry asynchronously. The write detaches from the
// caller's context so a finished request cannot cancel it.
func (s *AuditStore) Record(userID, action, remarks string) {
	entry := shared.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    action,
		Remarks:   remarks,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := s.col.InsertOne(ctx, entry); err != nil {
			log.Printf("Warning: failed to write audit log (action: %s, user: %s): %v",
				action, userID, err)
		}
	}()
}
