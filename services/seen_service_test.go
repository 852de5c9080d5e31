package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenServiceMarkOnce(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	viewer := createUser(t, db, "bob")
	item := createItem(t, db, owner)
	svc := NewSeenService(db, NewItemService(db, ItemDeps{}))
	ctx := context.Background()

	mark, err := svc.Mark(ctx, item.ID, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, viewer.ID, mark.UserID)
	require.NotNil(t, mark.User)
	assert.Equal(t, "bob", mark.User.FirstName)

	_, err = svc.Mark(ctx, item.ID, viewer.ID)
	assert.ErrorIs(t, err, ErrAlreadySeen)

	_, err = svc.Mark(ctx, uuid.New(), viewer.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	got, err := svc.Get(ctx, item.ID, mark.ID)
	require.NoError(t, err)
	assert.Equal(t, mark.ID, got.ID)

	other := createItem(t, db, owner)
	_, err = svc.Get(ctx, other.ID, mark.ID)
	assert.ErrorIs(t, err, ErrSeenMarkNotFound)
}

func TestSeenServiceListSorting(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	item := createItem(t, db, owner)
	svc := NewSeenService(db, NewItemService(db, ItemDeps{}))
	ctx := context.Background()

	var viewers []uuid.UUID
	for i := 0; i < 3; i++ {
		u := createUser(t, db, "viewer")
		_, err := svc.Mark(ctx, item.ID, u.ID)
		require.NoError(t, err)
		viewers = append(viewers, u.ID)
	}

	marks, total, err := svc.List(ctx, item.ID, SeenQuery{SortOrder: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, marks, 3)
	assert.Equal(t, viewers[0], marks[0].UserID)

	marks, _, err = svc.List(ctx, item.ID, SeenQuery{Limit: 1, Offset: 0})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, viewers[2], marks[0].UserID)

	// Unknown sort keys fall back to creation time.
	marks, _, err = svc.List(ctx, item.ID, SeenQuery{SortBy: "password; DROP TABLE users"})
	require.NoError(t, err)
	assert.Len(t, marks, 3)
}

func TestSeenServiceDeletePermissions(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	viewer := createUser(t, db, "bob")
	stranger := createUser(t, db, "mallory")
	item := createItem(t, db, owner)
	svc := NewSeenService(db, NewItemService(db, ItemDeps{}))
	ctx := context.Background()

	first, err := svc.Mark(ctx, item.ID, viewer.ID)
	require.NoError(t, err)
	second, err := svc.Mark(ctx, item.ID, stranger.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, item.ID, first.ID, stranger.ID), ErrSeenMarkForbidden)
	require.NoError(t, svc.Delete(ctx, item.ID, first.ID, viewer.ID))
	require.NoError(t, svc.Delete(ctx, item.ID, second.ID, owner.ID))
	assert.ErrorIs(t, svc.Delete(ctx, item.ID, second.ID, owner.ID), ErrSeenMarkNotFound)
}
