package noteadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewcsillag/notecove-sub008/common"
	"github.com/drewcsillag/notecove-sub008/registry"
)

func newTestAdapter(t *testing.T) (*Adapter, *registry.Registry) {
	t.Helper()
	reg := registry.New(common.NewSessionID())
	return New(reg), reg
}

func TestInitializeNoteFillsDefaults(t *testing.T) {
	a, _ := newTestAdapter(t)

	require.NoError(t, a.InitializeNote("note-1", Metadata{Title: "My Note"}))

	md := a.GetMetadata("note-1")
	assert.Equal(t, "My Note", md.Title)
	assert.NotEmpty(t, md.Created)
	assert.NotEmpty(t, md.Modified)
	assert.Equal(t, []string{}, md.Tags)
	assert.Nil(t, md.Folder)
	assert.False(t, md.Deleted)
}

func TestInitializeNoteDoesNotOverwriteExisting(t *testing.T) {
	a, _ := newTestAdapter(t)

	require.NoError(t, a.InitializeNote("note-1", Metadata{Title: "Original"}))
	first := a.GetMetadata("note-1")

	// A second call (e.g. reopening the note) must not clobber the title
	// or the original created timestamp.
	require.NoError(t, a.InitializeNote("note-1", Metadata{Title: "Should Not Apply"}))
	second := a.GetMetadata("note-1")

	assert.Equal(t, "Original", second.Title)
	assert.Equal(t, first.Created, second.Created)
}

func TestUpdateMetadataSetsFieldsAndRefreshesModified(t *testing.T) {
	a, _ := newTestAdapter(t)
	require.NoError(t, a.InitializeNote("note-1", Metadata{Title: "Original"}))
	before := a.GetMetadata("note-1")

	folder := "Work"
	require.NoError(t, a.UpdateMetadata("note-1", MetadataPatch{
		Title:  strPtr("Renamed"),
		Tags:   []string{"a", "b"},
		Folder: &folder,
	}))

	after := a.GetMetadata("note-1")
	assert.Equal(t, "Renamed", after.Title)
	assert.Equal(t, []string{"a", "b"}, after.Tags)
	require.NotNil(t, after.Folder)
	assert.Equal(t, "Work", *after.Folder)
	assert.GreaterOrEqual(t, after.Modified, before.Modified)
}

func TestMarkDeletedAndRestored(t *testing.T) {
	a, _ := newTestAdapter(t)
	require.NoError(t, a.InitializeNote("note-1", Metadata{Title: "Original"}))

	require.NoError(t, a.MarkDeleted("note-1"))
	assert.True(t, a.GetMetadata("note-1").Deleted)

	require.NoError(t, a.MarkRestored("note-1"))
	assert.False(t, a.GetMetadata("note-1").Deleted)
}

func TestIsDocEmpty(t *testing.T) {
	a, _ := newTestAdapter(t)

	// A never-initialized note reads as empty.
	assert.True(t, a.IsDocEmpty("note-1"))

	require.NoError(t, a.InitializeNote("note-1", Metadata{}))
	assert.True(t, a.IsDocEmpty("note-1"))

	require.NoError(t, a.UpdateMetadata("note-1", MetadataPatch{Title: strPtr("Now has a title")}))
	assert.False(t, a.IsDocEmpty("note-1"))
}

func strPtr(s string) *string { return &s }
