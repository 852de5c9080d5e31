package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentServiceCreateSanitizes(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	author := createUser(t, db, "bob")
	item := createItem(t, db, owner)
	svc := NewCommentService(db, NewItemService(db, ItemDeps{}), nil)
	ctx := context.Background()

	view, err := svc.Create(ctx, item.ID, author.ID, "  <b>Saw it</b> near the park ")
	require.NoError(t, err)
	assert.Equal(t, "Saw it near the park", view.Body)
	require.NotNil(t, view.Author)
	assert.Equal(t, author.ID, view.Author.ID)

	_, err = svc.Create(ctx, item.ID, author.ID, "<script>alert(1)</script>")
	assert.ErrorIs(t, err, ErrCommentEmpty)

	_, err = svc.Create(ctx, item.ID, author.ID, "   ")
	assert.ErrorIs(t, err, ErrCommentEmpty)

	_, err = svc.Create(ctx, item.ID, author.ID, strings.Repeat("a", MaxCommentLength+1))
	assert.ErrorIs(t, err, ErrCommentTooLong)

	_, err = svc.Create(ctx, uuid.New(), author.ID, "hello")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCommentServiceListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	item := createItem(t, db, owner)
	svc := NewCommentService(db, NewItemService(db, ItemDeps{}), nil)
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, item.ID, owner.ID, body)
		require.NoError(t, err)
	}

	views, total, err := svc.List(ctx, item.ID, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, views, 2)
	assert.Equal(t, "third", views[0].Body)
	assert.Equal(t, "second", views[1].Body)

	views, _, err = svc.List(ctx, item.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "first", views[0].Body)
}

func TestCommentServiceDeleteAuthorOnly(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	author := createUser(t, db, "bob")
	item := createItem(t, db, owner)
	svc := NewCommentService(db, NewItemService(db, ItemDeps{}), nil)
	ctx := context.Background()

	view, err := svc.Create(ctx, item.ID, author.ID, "mine")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, view.ID, owner.ID), ErrNotCommentAuthor)
	require.NoError(t, svc.Delete(ctx, view.ID, author.ID))
	assert.ErrorIs(t, svc.Delete(ctx, view.ID, author.ID), ErrCommentNotFound)
}
