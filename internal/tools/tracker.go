package tools

import "sync"

// FileReadTracker records which absolute paths have been read this session,
// so the edit tool can enforce "must Read before Edit" (grounded on
// internal/mcptools/edit.go's tracker discipline, minus hashline anchors).
type FileReadTracker struct {
	mu   sync.Mutex
	read map[string]bool
}

// NewFileReadTracker creates an empty tracker.
func NewFileReadTracker() *FileReadTracker {
	return &FileReadTracker{read: make(map[string]bool)}
}

// MarkRead records that path has been read.
func (t *FileReadTracker) MarkRead(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.read[path] = true
}

// WasRead reports whether path has been read.
func (t *FileReadTracker) WasRead(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read[path]
}
