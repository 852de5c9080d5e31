package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/metrics"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxMessageBodyLength = 5000
	DefaultMessageLimit  = 20
	MaxMessageLimit      = 50
)

// MessageService appends messages to threads and pages through them newest first.
type MessageService struct {
	db     *gorm.DB
	guard  *ThreadGuard
	cache  cache.Service
	events EventPublisher
	log    *zap.Logger
}

func NewMessageService(db *gorm.DB, guard *ThreadGuard, c cache.Service, events EventPublisher, log *zap.Logger) *MessageService {
	if guard == nil {
		guard = NewThreadGuard(db)
	}
	if c == nil {
		c = cache.NewService(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{db: db, guard: guard, cache: c, events: publisherOrNoop(events), log: log}
}

type CreateMessageInput struct {
	Body          string
	AttachmentURL *string
}

type ListMessagesInput struct {
	Limit  int
	Before *uuid.UUID
}

// MessagePage is one page of a thread, newest first. NextBefore is the id of
// the last returned message when older messages remain.
type MessagePage struct {
	Messages   []models.Message
	NextBefore *uuid.UUID
	HasMore    bool
}

func (s *MessageService) CreateMessage(ctx context.Context, threadID, senderID uuid.UUID, in CreateMessageInput) (*models.Message, error) {
	thread, err := s.guard.AssertParticipant(ctx, threadID, senderID)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, ErrMessageBodyRequired
	}
	if utf8.RuneCountInString(body) > MaxMessageBodyLength {
		return nil, ErrMessageBodyTooLong
	}

	var attachment *string
	if in.AttachmentURL != nil {
		if a := strings.TrimSpace(*in.AttachmentURL); a != "" {
			attachment = &a
		}
	}

	db := s.db.WithContext(ctx)
	msg := &models.Message{
		ThreadID:      threadID,
		SenderID:      senderID,
		Body:          body,
		AttachmentURL: attachment,
		CreatedAt:     db.NowFunc(),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Thread{}).Where("id = ?", threadID).UpdateColumn("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	metrics.MessagesTotal.Inc()
	recipient := thread.CounterpartyID(senderID)
	invalidateUnread(ctx, s.cache, s.log, recipient)
	s.events.PublishToUser(recipient, Event{Type: EventMessage, Data: msg})
	return msg, nil
}

// ListMessages orders by (created_at DESC, id DESC). The before cursor is
// resolved once into a fixed boundary, so rows inserted while a client pages
// never shift or repeat already returned rows.
func (s *MessageService) ListMessages(ctx context.Context, threadID, userID uuid.UUID, in ListMessagesInput) (*MessagePage, error) {
	if _, err := s.guard.AssertParticipant(ctx, threadID, userID); err != nil {
		return nil, err
	}

	limit := utils.ClampInt(in.Limit, DefaultMessageLimit, 1, MaxMessageLimit)
	db := s.db.WithContext(ctx)

	query := db.Where("thread_id = ?", threadID)
	if in.Before != nil {
		var boundary models.Message
		err := db.Select("id", "thread_id", "created_at").Where("id = ?", *in.Before).First(&boundary).Error
		if err != nil {
			if database.IsNotFound(err) {
				return nil, ErrBeforeNotFound
			}
			return nil, fmt.Errorf("load boundary message: %w", err)
		}
		if boundary.ThreadID != threadID {
			return nil, ErrBeforeForeignThread
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			boundary.CreatedAt, boundary.CreatedAt, boundary.ID)
	}

	var rows []models.Message
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &MessagePage{Messages: rows}
	if len(rows) > limit {
		page.Messages = rows[:limit]
		page.HasMore = true
		last := page.Messages[limit-1].ID
		page.NextBefore = &last
	}
	return page, nil
}
