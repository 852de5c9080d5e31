package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosterRenderHTMLEscapesContent(t *testing.T) {
	db := setupTestDB(t)
	items := NewItemService(db, ItemDeps{})
	owner := createUser(t, db, "alice")
	item := createItem(t, db, owner)
	require.NoError(t, db.Model(item).Updates(map[string]any{
		"title":       "Grey <cat>",
		"description": "Answers to Mochi",
		"zip_code":    "10001",
	}).Error)
	_, err := items.AddPhotos(context.Background(), item.ID, owner.ID, []PhotoInput{{URL: "https://cdn.example.com/cat.jpg"}})
	require.NoError(t, err)

	loaded, err := items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)

	svc := NewPosterService(items, nil, false, "https://retrieve.example.com", nil)
	page, err := svc.RenderHTML(loaded)
	require.NoError(t, err)
	assert.Contains(t, page, "LOST")
	assert.Contains(t, page, "Grey &lt;cat&gt;")
	assert.Contains(t, page, "Answers to Mochi")
	assert.Contains(t, page, "https://cdn.example.com/cat.jpg")
	assert.Contains(t, page, "https://retrieve.example.com/items/"+item.ID.String())
	assert.Contains(t, page, "Keys")
	assert.Contains(t, page, "10001")
}

func TestPosterGenerateDisabled(t *testing.T) {
	db := setupTestDB(t)
	items := NewItemService(db, ItemDeps{})
	owner := createUser(t, db, "alice")
	item := createItem(t, db, owner)
	svc := NewPosterService(items, &fakeImageStore{}, false, "", nil)

	_, err := svc.Generate(context.Background(), item.ID)
	assert.ErrorIs(t, err, ErrPostersDisabled)

	_, err = svc.Publish(context.Background(), item.ID, owner.ID)
	assert.ErrorIs(t, err, ErrPostersDisabled)

	stranger := createUser(t, db, "mallory")
	_, err = svc.Publish(context.Background(), item.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotItemOwner)
}
