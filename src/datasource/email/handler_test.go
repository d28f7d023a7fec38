package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSavesAndPromotesAttachment(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	datasetPath := filepath.Join(dir, "live.xlsx")

	h := NewDatasetAttachmentHandler("delivery dataset", dataDir, datasetPath)

	require.NoError(t, h.Handle(&Email{
		UID:     1,
		Subject: "weekly delivery dataset refresh",
		Attachments: []*Attachment{
			{Filename: "orders.xlsx", Content: []byte("workbook-bytes")},
			{Filename: "notes.txt", Content: []byte("ignore me")},
		},
	}))

	archived, err := os.ReadFile(filepath.Join(dataDir, "orders.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook-bytes"), archived)

	live, err := os.ReadFile(datasetPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook-bytes"), live)

	_, err = os.Stat(filepath.Join(dataDir, "notes.txt"))
	assert.True(t, os.IsNotExist(err), "non-xlsx attachments are not saved")
}

func TestHandleSkipsProcessedUID(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "live.xlsx")
	h := NewDatasetAttachmentHandler("dataset", filepath.Join(dir, "data"), datasetPath)

	mail := &Email{
		UID:         7,
		Subject:     "dataset update",
		Attachments: []*Attachment{{Filename: "v1.xlsx", Content: []byte("v1")}},
	}
	require.NoError(t, h.Handle(mail))

	mail.Attachments[0].Content = []byte("v2")
	require.NoError(t, h.Handle(mail))

	live, err := os.ReadFile(datasetPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), live, "a processed UID is never re-applied")
}

func TestHandleSkipsOffSubjectMail(t *testing.T) {
	dir := t.TempDir()
	h := NewDatasetAttachmentHandler("dataset", filepath.Join(dir, "data"), "")

	require.NoError(t, h.Handle(&Email{
		UID:         2,
		Subject:     "lunch menu",
		Attachments: []*Attachment{{Filename: "menu.xlsx", Content: []byte("x")}},
	}))

	_, err := os.Stat(filepath.Join(dir, "data"))
	assert.True(t, os.IsNotExist(err), "off-subject mail creates nothing")
}

func TestHandlePromotesOnlyFirstAttachment(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "live.xlsx")
	h := NewDatasetAttachmentHandler("dataset", filepath.Join(dir, "data"), datasetPath)

	require.NoError(t, h.Handle(&Email{
		UID:     3,
		Subject: "dataset",
		Attachments: []*Attachment{
			{Filename: "first.xlsx", Content: []byte("first")},
			{Filename: "second.xlsx", Content: []byte("second")},
		},
	}))

	live, err := os.ReadFile(datasetPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), live)

	second, err := os.ReadFile(filepath.Join(dir, "data", "second.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), second, "later attachments are still archived")
}
