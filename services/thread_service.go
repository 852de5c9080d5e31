package services

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/metrics"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemOwnerLookup resolves the current owner of an item. It returns
// ErrItemNotFound for unknown items.
type ItemOwnerLookup interface {
	OwnerOf(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
}

type ThreadService struct {
	db     *gorm.DB
	guard  *ThreadGuard
	items  ItemOwnerLookup
	cache  cache.Service
	events EventPublisher
	mailer Mailer
	log    *zap.Logger
}

type ThreadDeps struct {
	Guard  *ThreadGuard
	Items  ItemOwnerLookup
	Cache  cache.Service
	Events EventPublisher
	Mailer Mailer
	Log    *zap.Logger
}

func NewThreadService(db *gorm.DB, deps ThreadDeps) *ThreadService {
	if deps.Guard == nil {
		deps.Guard = NewThreadGuard(db)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewService(nil)
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &ThreadService{
		db:     db,
		guard:  deps.Guard,
		items:  deps.Items,
		cache:  deps.Cache,
		events: publisherOrNoop(deps.Events),
		mailer: deps.Mailer,
		log:    deps.Log,
	}
}

// ThreadView is a thread as seen by one of its members. OtherUser, Item and
// UnreadCount are derived per response and never stored.
type ThreadView struct {
	models.Thread
	OtherUser   *models.UserSummary `json:"otherUser"`
	Item        *models.ItemSummary `json:"item"`
	UnreadCount int64               `json:"unreadCount"`
}

// NewThreadView builds the requester-relative view of t. Relations that were
// not preloaded are left nil.
func NewThreadView(t *models.Thread, viewerID uuid.UUID) ThreadView {
	view := ThreadView{Thread: *t}
	if t.IsOwner(viewerID) {
		view.OtherUser = t.Participant.Summary()
	} else {
		view.OtherUser = t.Owner.Summary()
	}
	view.Item = t.Item.Summary()
	return view
}

type ThreadFilter struct {
	ItemID *uuid.UUID
	Page   int
	Size   int
}

type ThreadPage struct {
	Threads []ThreadView
	Total   int64
	Page    int
	Size    int
}

// GetOrCreateThread returns the single thread for (itemID, participantID),
// inserting it when absent. A concurrent insert that wins the unique index is
// returned as the existing thread.
func (s *ThreadService) GetOrCreateThread(ctx context.Context, itemID, ownerID, participantID uuid.UUID) (*models.Thread, bool, error) {
	if participantID == ownerID {
		return nil, false, ErrSelfThread
	}

	existing, err := s.findByPair(ctx, itemID, participantID)
	if err == nil {
		return existing, false, nil
	}
	if !database.IsNotFound(err) {
		return nil, false, fmt.Errorf("find thread: %w", err)
	}

	thread := &models.Thread{ItemID: itemID, OwnerID: ownerID, ParticipantID: participantID}
	if err := s.db.WithContext(ctx).Create(thread).Error; err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("create thread: %w", err)
		}

		metrics.ThreadCreateRaces.Inc()
		winner, err := s.findByPair(ctx, itemID, participantID)
		if err != nil {
			return nil, false, fmt.Errorf("refetch thread after conflict: %w", err)
		}
		return winner, false, nil
	}
	return thread, true, nil
}

func (s *ThreadService) findByPair(ctx context.Context, itemID, participantID uuid.UUID) (*models.Thread, error) {
	var thread models.Thread
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND participant_id = ?", itemID, participantID).
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// StartThread is the request-level flow: resolve the item owner, default the
// participant to the caller, and only let the owner or the participant open it.
func (s *ThreadService) StartThread(ctx context.Context, callerID, itemID uuid.UUID, participantID *uuid.UUID) (*ThreadView, bool, error) {
	ownerID, err := s.items.OwnerOf(ctx, itemID)
	if err != nil {
		return nil, false, err
	}

	participant := callerID
	if participantID != nil && *participantID != uuid.Nil {
		participant = *participantID
	}
	if participant == ownerID {
		return nil, false, ErrSelfThread
	}
	if callerID != ownerID && callerID != participant {
		return nil, false, ErrThreadCreateForbidden
	}
	if participant != callerID {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", participant).Count(&exists).Error; err != nil {
			return nil, false, fmt.Errorf("load participant: %w", err)
		}
		if exists == 0 {
			return nil, false, ErrParticipantNotFound
		}
	}

	thread, created, err := s.GetOrCreateThread(ctx, itemID, ownerID, participant)
	if err != nil {
		return nil, false, err
	}

	outcome := "existing"
	if created {
		outcome = "created"
	}
	metrics.ThreadsTotal.WithLabelValues(outcome).Inc()

	var full models.Thread
	if err := s.withRelations(s.db.WithContext(ctx)).First(&full, "id = ?", thread.ID).Error; err != nil {
		return nil, false, fmt.Errorf("load thread: %w", err)
	}
	view := NewThreadView(&full, callerID)

	if created {
		s.log.Info("thread created",
			zap.String("thread_id", full.ID.String()),
			zap.String("item_id", itemID.String()))
		counterparty := full.CounterpartyID(callerID)
		s.events.PublishToUser(counterparty, Event{Type: EventThread, Data: NewThreadView(&full, counterparty)})
		s.notifyOwner(&full)
	}
	return &view, created, nil
}

func (s *ThreadService) notifyOwner(t *models.Thread) {
	if s.mailer == nil || t.Owner == nil || t.Participant == nil || t.Item == nil {
		return
	}
	owner, participant, title := *t.Owner, *t.Participant, t.Item.Title
	go func() {
		body := fmt.Sprintf("<p>%s %s wants to talk about your item <b>%s</b>.</p>",
			html.EscapeString(participant.FirstName), html.EscapeString(participant.LastName), html.EscapeString(title))
		if err := s.mailer.Send(context.Background(), owner.FirstName, owner.Email, "New message thread on your item", body); err != nil {
			s.log.Warn("thread notification failed", zap.Error(err), zap.String("thread_id", t.ID.String()))
		}
	}()
}

func (s *ThreadService) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Participant").
		Preload("Item").
		Preload("Item.Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

// ListThreadsForUser returns the user's threads, most recently active first.
func (s *ThreadService) ListThreadsForUser(ctx context.Context, userID uuid.UUID, filter ThreadFilter) (*ThreadPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := utils.ClampInt(filter.Size, utils.DefaultPageSize, 1, utils.MaxPageSize)

	if filter.ItemID != nil {
		if err := s.assertItemMembership(ctx, *filter.ItemID, userID); err != nil {
			return nil, err
		}
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("(owner_id = ? OR participant_id = ?)", userID, userID)
		if filter.ItemID != nil {
			db = db.Where("item_id = ?", *filter.ItemID)
		}
		return db
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Thread{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count threads: %w", err)
	}

	var threads []models.Thread
	err := s.withRelations(db).
		Scopes(scope).
		Order("updated_at DESC").
		Order("id DESC").
		Offset(utils.Offset(page, size)).
		Limit(size).
		Find(&threads).Error
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	ids := make([]uuid.UUID, len(threads))
	for i := range threads {
		ids[i] = threads[i].ID
	}
	unread, err := s.unreadByThread(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ThreadView, len(threads))
	for i := range threads {
		views[i] = NewThreadView(&threads[i], userID)
		views[i].UnreadCount = unread[threads[i].ID]
	}
	return &ThreadPage{Threads: views, Total: total, Page: page, Size: size}, nil
}

func (s *ThreadService) assertItemMembership(ctx context.Context, itemID, userID uuid.UUID) error {
	ownerID, err := s.items.OwnerOf(ctx, itemID)
	if err != nil {
		return err
	}
	if ownerID == userID {
		return nil
	}

	var membership int64
	err = s.db.WithContext(ctx).Model(&models.Thread{}).
		Where("item_id = ? AND participant_id = ?", itemID, userID).
		Count(&membership).Error
	if err != nil {
		return fmt.Errorf("check thread membership: %w", err)
	}
	if membership == 0 {
		return ErrItemThreadsForbidden
	}
	return nil
}

// MarkThreadAsRead moves the caller's read pointer to messageID. Only the
// caller's own column pair is written, and no monotonicity check is made.
func (s *ThreadService) MarkThreadAsRead(ctx context.Context, threadID, userID, messageID uuid.UUID) (*models.Thread, error) {
	identity, err := s.guard.AssertParticipant(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var inThread int64
	if err := db.Model(&models.Message{}).Where("id = ? AND thread_id = ?", messageID, threadID).Count(&inThread).Error; err != nil {
		return nil, fmt.Errorf("check read message: %w", err)
	}
	if inThread == 0 {
		return nil, ErrReadMessageNotInThread
	}

	now := db.NowFunc()
	columns := map[string]any{
		"participant_last_read_message_id": messageID,
		"participant_last_read_at":         now,
	}
	if identity.IsOwner(userID) {
		columns = map[string]any{
			"owner_last_read_message_id": messageID,
			"owner_last_read_at":         now,
		}
	}

	// UpdateColumns leaves updated_at alone so reading does not reorder the inbox.
	if err := db.Model(&models.Thread{}).Where("id = ?", threadID).UpdateColumns(columns).Error; err != nil {
		return nil, fmt.Errorf("update read state: %w", err)
	}

	var updated models.Thread
	if err := db.First(&updated, "id = ?", threadID).Error; err != nil {
		return nil, fmt.Errorf("reload thread: %w", err)
	}

	invalidateUnread(ctx, s.cache, s.log, userID)
	s.events.PublishToUser(identity.CounterpartyID(userID), Event{Type: EventRead, Data: &updated})
	return &updated, nil
}

// unreadCondition selects messages the user has not read yet: newer than the
// user's own read timestamp (a null timestamp reads as the epoch) and not
// written by the user.
const unreadCondition = `m.sender_id <> ? AND (
	(t.owner_id = ? AND (t.owner_last_read_at IS NULL OR m.created_at > t.owner_last_read_at)) OR
	(t.participant_id = ? AND (t.participant_last_read_at IS NULL OR m.created_at > t.participant_last_read_at))
)`

// CountUnreadForUser scans every thread of the user and sums unread messages.
func (s *ThreadService) CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("messages AS m").
		Joins("JOIN threads AS t ON t.id = m.thread_id").
		Where(unreadCondition, userID, userID, userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (s *ThreadService) unreadByThread(ctx context.Context, userID uuid.UUID, threadIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(threadIDs))
	if len(threadIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ThreadID uuid.UUID
		Unread   int64
	}
	err := s.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.thread_id AS thread_id, COUNT(*) AS unread").
		Joins("JOIN threads AS t ON t.id = m.thread_id").
		Where(unreadCondition, userID, userID, userID).
		Where("m.thread_id IN ?", threadIDs).
		Group("m.thread_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count unread per thread: %w", err)
	}
	for _, r := range rows {
		out[r.ThreadID] = r.Unread
	}
	return out, nil
}
