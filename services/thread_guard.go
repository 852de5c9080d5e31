package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"gorm.io/gorm"
)

// ThreadGuard is the single authorization check for thread reads and writes.
type ThreadGuard struct {
	db *gorm.DB
}

func NewThreadGuard(db *gorm.DB) *ThreadGuard {
	return &ThreadGuard{db: db}
}

// AssertParticipant loads the thread identity and fails with ErrThreadNotFound
// or ErrNotThreadMember. Only id, owner_id and participant_id are populated.
func (g *ThreadGuard) AssertParticipant(ctx context.Context, threadID, userID uuid.UUID) (*models.Thread, error) {
	var thread models.Thread
	err := g.db.WithContext(ctx).
		Select("id", "owner_id", "participant_id").
		Where("id = ?", threadID).
		First(&thread).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("load thread: %w", err)
	}

	if !thread.HasMember(userID) {
		return nil, ErrNotThreadMember
	}
	return &thread, nil
}
