package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type threadFixture struct {
	db       *gorm.DB
	threads  *ThreadService
	messages *MessageService
	events   *recordingPublisher
	mailer   *recordingMailer
	owner    *models.User
	other    *models.User
	item     *models.Item
}

func newThreadFixture(t *testing.T) *threadFixture {
	t.Helper()
	db := setupTestDB(t)
	events := &recordingPublisher{}
	mailer := &recordingMailer{}
	items := NewItemService(db, ItemDeps{})

	f := &threadFixture{db: db, events: events, mailer: mailer}
	f.threads = NewThreadService(db, ThreadDeps{Items: items, Events: events, Mailer: mailer})
	f.messages = NewMessageService(db, NewThreadGuard(db), nil, events, nil)
	f.owner = createUser(t, db, "alice")
	f.other = createUser(t, db, "bob")
	f.item = createItem(t, db, f.owner)
	return f
}

func countThreads(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Thread{}).Count(&n).Error)
	return n
}

func TestGetOrCreateThreadReturnsExisting(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()

	first, created, err := f.threads.GetOrCreateThread(ctx, f.item.ID, f.owner.ID, f.other.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.threads.GetOrCreateThread(ctx, f.item.ID, f.owner.ID, f.other.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, countThreads(t, f.db))
}

func TestGetOrCreateThreadRejectsSelfThread(t *testing.T) {
	f := newThreadFixture(t)

	_, _, err := f.threads.GetOrCreateThread(context.Background(), f.item.ID, f.owner.ID, f.owner.ID)
	assert.ErrorIs(t, err, ErrSelfThread)
	assert.EqualValues(t, 0, countThreads(t, f.db))
}

func TestGetOrCreateThreadConcurrentCallersShareOneThread(t *testing.T) {
	f := newThreadFixture(t)
	const callers = 16

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, callers)
	createdFlags := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			thread, created, err := f.threads.GetOrCreateThread(context.Background(), f.item.ID, f.owner.ID, f.other.ID)
			errs[i] = err
			createdFlags[i] = created
			if thread != nil {
				ids[i] = thread.ID
			}
		}(i)
	}
	wg.Wait()

	createdCount := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		if createdFlags[i] {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)
	assert.EqualValues(t, 1, countThreads(t, f.db))
}

func TestGetOrCreateThreadRecoversFromLostInsertRace(t *testing.T) {
	f := newThreadFixture(t)

	// Simulate a competitor committing the same pair between our lookup and insert.
	var once sync.Once
	competitor := uuid.New()
	err := f.db.Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		if tx.Statement.Table != "threads" {
			return
		}
		once.Do(func() {
			now := time.Now().UTC()
			require.NoError(t, f.db.Exec(
				"INSERT INTO threads (id, item_id, owner_id, participant_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
				competitor, f.item.ID, f.owner.ID, f.other.ID, now, now).Error)
		})
	})
	require.NoError(t, err)

	thread, created, err := f.threads.GetOrCreateThread(context.Background(), f.item.ID, f.owner.ID, f.other.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, competitor, thread.ID)
	assert.EqualValues(t, 1, countThreads(t, f.db))
}

func TestStartThreadDefaultsParticipantToCaller(t *testing.T) {
	f := newThreadFixture(t)

	view, created, err := f.threads.StartThread(context.Background(), f.other.ID, f.item.ID, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, f.other.ID, view.ParticipantID)
	assert.Equal(t, f.owner.ID, view.OwnerID)
	require.NotNil(t, view.OtherUser)
	assert.Equal(t, f.owner.ID, view.OtherUser.ID)
	require.NotNil(t, view.Item)
	assert.Equal(t, f.item.Title, view.Item.Title)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, f.owner.ID, events[0].UserID)
	assert.Equal(t, EventThread, events[0].Event.Type)

	assert.Eventually(t, func() bool { return len(f.mailer.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, f.owner.Email, f.mailer.Sent()[0].ToEmail)
}

func TestStartThreadSecondCallReturnsExisting(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()

	first, _, err := f.threads.StartThread(ctx, f.other.ID, f.item.ID, nil)
	require.NoError(t, err)

	second, created, err := f.threads.StartThread(ctx, f.other.ID, f.item.ID, &f.other.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.events.Events(), 1)
}

func TestStartThreadOwnerMayOpenWithParticipant(t *testing.T) {
	f := newThreadFixture(t)

	view, created, err := f.threads.StartThread(context.Background(), f.owner.ID, f.item.ID, &f.other.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, f.other.ID, view.OtherUser.ID)
}

func TestStartThreadErrors(t *testing.T) {
	f := newThreadFixture(t)
	outsider := createUser(t, f.db, "carol")
	ctx := context.Background()

	_, _, err := f.threads.StartThread(ctx, f.other.ID, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, _, err = f.threads.StartThread(ctx, f.owner.ID, f.item.ID, nil)
	assert.ErrorIs(t, err, ErrSelfThread)

	_, _, err = f.threads.StartThread(ctx, outsider.ID, f.item.ID, &f.other.ID)
	assert.ErrorIs(t, err, ErrThreadCreateForbidden)

	ghost := uuid.New()
	_, _, err = f.threads.StartThread(ctx, f.owner.ID, f.item.ID, &ghost)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
	assert.True(t, utils.HasCode(err, "PARTICIPANT_NOT_FOUND"))

	assert.EqualValues(t, 0, countThreads(t, f.db))
}

func TestListThreadsForUserOrdersAndEnriches(t *testing.T) {
	f := newThreadFixture(t)
	carol := createUser(t, f.db, "carol")
	ctx := context.Background()

	withBob := createThread(t, f.db, f.item, f.other)
	withCarol := createThread(t, f.db, f.item, carol)

	// Bob's thread becomes the most recently active one.
	_, err := f.messages.CreateMessage(ctx, withBob.ID, f.other.ID, CreateMessageInput{Body: "is it still there?"})
	require.NoError(t, err)

	page, err := f.threads.ListThreadsForUser(ctx, f.owner.ID, ThreadFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, utils.DefaultPageSize, page.Size)
	require.Len(t, page.Threads, 2)
	assert.Equal(t, withBob.ID, page.Threads[0].ID)
	assert.Equal(t, withCarol.ID, page.Threads[1].ID)
	assert.Equal(t, f.other.ID, page.Threads[0].OtherUser.ID)
	assert.Equal(t, carol.ID, page.Threads[1].OtherUser.ID)
	assert.EqualValues(t, 1, page.Threads[0].UnreadCount)
	assert.EqualValues(t, 0, page.Threads[1].UnreadCount)

	bobPage, err := f.threads.ListThreadsForUser(ctx, f.other.ID, ThreadFilter{})
	require.NoError(t, err)
	require.Len(t, bobPage.Threads, 1)
	assert.Equal(t, f.owner.ID, bobPage.Threads[0].OtherUser.ID)
	assert.EqualValues(t, 0, bobPage.Threads[0].UnreadCount)
}

func TestListThreadsForUserPaginates(t *testing.T) {
	f := newThreadFixture(t)
	for i := 0; i < 3; i++ {
		createThread(t, f.db, f.item, createUser(t, f.db, "user"))
	}

	page, err := f.threads.ListThreadsForUser(context.Background(), f.owner.ID, ThreadFilter{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Threads, 1)

	meta := utils.NewPageMeta(page.Page, page.Size, page.Total)
	assert.EqualValues(t, 2, meta.Pages)
}

func TestListThreadsForUserItemFilter(t *testing.T) {
	f := newThreadFixture(t)
	outsider := createUser(t, f.db, "carol")
	otherItem := createItem(t, f.db, f.owner)
	createThread(t, f.db, f.item, f.other)
	createThread(t, f.db, otherItem, outsider)
	ctx := context.Background()

	page, err := f.threads.ListThreadsForUser(ctx, f.owner.ID, ThreadFilter{ItemID: &f.item.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.threads.ListThreadsForUser(ctx, f.other.ID, ThreadFilter{ItemID: &f.item.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = f.threads.ListThreadsForUser(ctx, outsider.ID, ThreadFilter{ItemID: &f.item.ID})
	assert.ErrorIs(t, err, ErrItemThreadsForbidden)

	missing := uuid.New()
	_, err = f.threads.ListThreadsForUser(ctx, f.owner.ID, ThreadFilter{ItemID: &missing})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMarkThreadAsReadTouchesOnlyCallerColumns(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()
	thread := createThread(t, f.db, f.item, f.other)

	msg, err := f.messages.CreateMessage(ctx, thread.ID, f.owner.ID, CreateMessageInput{Body: "hello"})
	require.NoError(t, err)

	var before models.Thread
	require.NoError(t, f.db.First(&before, "id = ?", thread.ID).Error)

	updated, err := f.threads.MarkThreadAsRead(ctx, thread.ID, f.other.ID, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ParticipantLastReadMessageID)
	assert.Equal(t, msg.ID, *updated.ParticipantLastReadMessageID)
	assert.NotNil(t, updated.ParticipantLastReadAt)
	assert.Nil(t, updated.OwnerLastReadMessageID)
	assert.Nil(t, updated.OwnerLastReadAt)
	assert.True(t, before.UpdatedAt.Equal(updated.UpdatedAt))

	events := f.events.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventRead, last.Event.Type)
	assert.Equal(t, f.owner.ID, last.UserID)
}

func TestMarkThreadAsReadAllowsOlderPointer(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()
	thread := createThread(t, f.db, f.item, f.other)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	older := insertMessageAt(t, f.db, thread.ID, f.owner.ID, "one", base)
	newer := insertMessageAt(t, f.db, thread.ID, f.owner.ID, "two", base.Add(time.Second))

	_, err := f.threads.MarkThreadAsRead(ctx, thread.ID, f.other.ID, newer.ID)
	require.NoError(t, err)
	updated, err := f.threads.MarkThreadAsRead(ctx, thread.ID, f.other.ID, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, *updated.ParticipantLastReadMessageID)
}

func TestMarkThreadAsReadErrors(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()
	outsider := createUser(t, f.db, "carol")
	thread := createThread(t, f.db, f.item, f.other)
	otherThread := createThread(t, f.db, f.item, outsider)
	foreign := insertMessageAt(t, f.db, otherThread.ID, outsider.ID, "hi", time.Now().UTC())

	_, err := f.threads.MarkThreadAsRead(ctx, uuid.New(), f.other.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = f.threads.MarkThreadAsRead(ctx, thread.ID, outsider.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrNotThreadMember)

	_, err = f.threads.MarkThreadAsRead(ctx, thread.ID, f.other.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrReadMessageNotInThread)
}

func TestCountUnreadForUser(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()
	carol := createUser(t, f.db, "carol")
	withBob := createThread(t, f.db, f.item, f.other)
	withCarol := createThread(t, f.db, f.item, carol)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	insertMessageAt(t, f.db, withBob.ID, f.other.ID, "b1", base)
	readUpTo := insertMessageAt(t, f.db, withBob.ID, f.other.ID, "b2", base.Add(time.Second))
	insertMessageAt(t, f.db, withCarol.ID, carol.ID, "c1", base.Add(2*time.Second))
	insertMessageAt(t, f.db, withCarol.ID, f.owner.ID, "mine", base.Add(3*time.Second))

	count, err := f.threads.CountUnreadForUser(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	_, err = f.threads.MarkThreadAsRead(ctx, withBob.ID, f.owner.ID, readUpTo.ID)
	require.NoError(t, err)
	count, err = f.threads.CountUnreadForUser(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// The owner's read state never affects the participant's count.
	count, err = f.threads.CountUnreadForUser(ctx, carol.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	count, err = f.threads.CountUnreadForUser(ctx, f.other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestThreadScenario(t *testing.T) {
	f := newThreadFixture(t)
	ctx := context.Background()
	a, b := f.owner, f.other

	thread, created, err := f.threads.StartThread(ctx, b.ID, f.item.ID, nil)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.threads.StartThread(ctx, b.ID, f.item.ID, &b.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, thread.ID, again.ID)
	assert.EqualValues(t, 1, countThreads(t, f.db))

	hello, err := f.messages.CreateMessage(ctx, thread.ID, a.ID, CreateMessageInput{Body: "hello"})
	require.NoError(t, err)

	page, err := f.messages.ListMessages(ctx, thread.ID, b.ID, ListMessagesInput{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hello", page.Messages[0].Body)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextBefore)

	unread, err := f.threads.CountUnreadForUser(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	updated, err := f.threads.MarkThreadAsRead(ctx, thread.ID, b.ID, hello.ID)
	require.NoError(t, err)
	assert.Equal(t, hello.ID, *updated.ParticipantLastReadMessageID)

	unread, err = f.threads.CountUnreadForUser(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)
}
