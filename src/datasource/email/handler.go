package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DatasetAttachmentHandler saves xlsx attachments of dataset mails into the
// data directory. The newest attachment also replaces the live dataset
// file, which the file monitor picks up to refresh the dashboard.
type DatasetAttachmentHandler struct {
	TargetSubject string // subject keyword dataset mails carry
	DataDir       string // archive directory for received workbooks
	DatasetPath   string // live dataset file the dashboard reads

	processedUIDs map[uint32]bool
	mu            sync.RWMutex
}

func NewDatasetAttachmentHandler(subject, dataDir, datasetPath string) *DatasetAttachmentHandler {
	return &DatasetAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		DatasetPath:   datasetPath,
		processedUIDs: make(map[uint32]bool),
	}
}

func (h *DatasetAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *DatasetAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle archives the xlsx attachments of one mail and promotes the first
// one to the live dataset path. Already-processed and off-subject mails
// are skipped silently.
func (h *DatasetAttachmentHandler) Handle(email *Email) error {
	if h.isProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		return nil
	}

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	saved := false
	for _, attachment := range email.Attachments {
		if !strings.EqualFold(filepath.Ext(attachment.Filename), ".xlsx") {
			continue
		}

		archive := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(archive, attachment.Content, 0644); err != nil {
			return fmt.Errorf("save attachment %s: %w", attachment.Filename, err)
		}

		if !saved && h.DatasetPath != "" {
			if err := os.WriteFile(h.DatasetPath, attachment.Content, 0644); err != nil {
				return fmt.Errorf("replace dataset file: %w", err)
			}
		}
		saved = true
	}

	if saved {
		h.markAsProcessed(email.UID)
	}

	return nil
}
