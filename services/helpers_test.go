package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.Config())
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and shared.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, first string) *models.User {
	t.Helper()
	user := &models.User{
		Email:     fmt.Sprintf("%s-%s@example.com", first, uuid.NewString()[:8]),
		Password:  "hash",
		FirstName: first,
		LastName:  "Tester",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

func createItem(t *testing.T, db *gorm.DB, owner *models.User) *models.Item {
	t.Helper()
	category := &models.Category{}
	if err := db.First(category, "name = ?", "Keys").Error; err != nil {
		category = createCategory(t, db, "Keys")
	}
	item := &models.Item{
		OwnerID:    owner.ID,
		CategoryID: category.ID,
		Title:      "Blue backpack",
		Status:     models.ItemStatusLost,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func createThread(t *testing.T, db *gorm.DB, item *models.Item, participant *models.User) *models.Thread {
	t.Helper()
	thread := &models.Thread{ItemID: item.ID, OwnerID: item.OwnerID, ParticipantID: participant.ID}
	require.NoError(t, db.Create(thread).Error)
	return thread
}

// insertMessageAt writes a message with a fixed timestamp, bypassing the
// service so tests can create same-instant bursts.
func insertMessageAt(t *testing.T, db *gorm.DB, threadID, senderID uuid.UUID, body string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{ThreadID: threadID, SenderID: senderID, Body: body, CreatedAt: at}
	require.NoError(t, db.Create(msg).Error)
	return msg
}

type staticOwners map[uuid.UUID]uuid.UUID

func (s staticOwners) OwnerOf(_ context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	owner, ok := s[itemID]
	if !ok {
		return uuid.Nil, ErrItemNotFound
	}
	return owner, nil
}

type recordedEvent struct {
	UserID uuid.UUID
	Event  Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishToUser(userID uuid.UUID, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{UserID: userID, Event: event})
}

func (p *recordingPublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type sentMail struct {
	ToEmail string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, _, toEmail, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{ToEmail: toEmail, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func ptr[T any](v T) *T { return &v }
