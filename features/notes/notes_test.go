package notes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tabrecall/backend/features/notes"
)

func newService(t *testing.T) *notes.Service {
	t.Helper()
	repo, err := notes.NewFileRepo(t.TempDir())
	assert.NoError(t, err)
	return notes.NewService(repo)
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Note With Generated ID", func(t *testing.T) {
		svc := newService(t)

		saved, err := svc.Save(ctx, "tab1", notes.Note{Content: "remember this"})

		assert.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "tab1", saved.TabID)
		assert.Equal(t, "remember this", saved.Content)
		assert.NotEmpty(t, saved.Timestamp)
		assert.NotEmpty(t, saved.LastUpdated)
	})

	t.Run("Updates Existing Note In Place", func(t *testing.T) {
		svc := newService(t)

		first, err := svc.Save(ctx, "tab1", notes.Note{Content: "v1"})
		assert.NoError(t, err)

		updated, err := svc.Save(ctx, "tab1", notes.Note{ID: first.ID, Content: "v2"})
		assert.NoError(t, err)
		assert.Equal(t, first.ID, updated.ID)

		list, err := svc.ListForTab(ctx, "tab1")
		assert.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, "v2", list[0].Content)
	})

	t.Run("Rejects Empty Tab ID", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.Save(ctx, "", notes.Note{Content: "x"})
		assert.ErrorIs(t, err, notes.ErrTabIDRequired)
	})
}

func TestService_ListForTab(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Save(ctx, "tab1", notes.Note{Content: "a"})
	assert.NoError(t, err)
	_, err = svc.Save(ctx, "tab1", notes.Note{Content: "b"})
	assert.NoError(t, err)
	_, err = svc.Save(ctx, "tab2", notes.Note{Content: "c"})
	assert.NoError(t, err)

	list, err := svc.ListForTab(ctx, "tab1")
	assert.NoError(t, err)
	assert.Len(t, list, 2)

	empty, err := svc.ListForTab(ctx, "tab3")
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	saved, err := svc.Save(ctx, "tab1", notes.Note{Content: "bye"})
	assert.NoError(t, err)

	found, err := svc.Delete(ctx, "tab1", saved.ID)
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = svc.Delete(ctx, "tab1", saved.ID)
	assert.NoError(t, err)
	assert.False(t, found)

	_, err = svc.Delete(ctx, "tab1", "")
	assert.ErrorIs(t, err, notes.ErrTabIDRequired)
}

func TestFileRepo_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo1, err := notes.NewFileRepo(dir)
	assert.NoError(t, err)
	_, err = repo1.Save(ctx, notes.Note{ID: "n1", TabID: "tab1", Content: "persisted"})
	assert.NoError(t, err)

	repo2, err := notes.NewFileRepo(dir)
	assert.NoError(t, err)
	list, err := repo2.ListForTab(ctx, "tab1")
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "persisted", list[0].Content)
}
