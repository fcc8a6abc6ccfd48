// Package journal implements the append-only JSONL session journal (§4.6):
// a session_meta header line followed by one message per line, each
// timestamped at write. Grounded on internal/store/session.go's
// write/read shape, translated from SQLite rows to JSONL lines since this
// spec drops the cache/indexing concerns that justified a database.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xonecas/heddle/internal/wire"
)

// Meta is the session_meta header line. Extras round-trip via the Extra map.
type Meta struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Cwd           string         `json:"cwd"`
	Model         string         `json:"model"`
	Created       time.Time      `json:"created"`
	HeddleVersion string         `json:"heddle_version"`
	Extra         map[string]any `json:"-"`
}

// MarshalJSON flattens Extra alongside the named fields.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"type":           "session_meta",
		"id":             m.ID,
		"cwd":            m.Cwd,
		"model":          m.Model,
		"created":        m.Created.UTC().Format(time.RFC3339),
		"heddle_version": m.HeddleVersion,
	}
	for k, v := range m.Extra {
		if _, reserved := out[k]; reserved {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// Journal is an append-only JSONL file backing one session's conversation.
type Journal struct {
	path string
}

// Open ensures the parent directory exists and creates the file if absent,
// returning a Journal anchored at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("create journal file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &Journal{path: path}, nil
}

// Path returns the journal's file path.
func (j *Journal) Path() string {
	return j.path
}

// WriteSessionMeta writes the header line. Callers write this once, before
// any appendMessage calls.
func (j *Journal) WriteSessionMeta(meta Meta) error {
	line, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session_meta: %w", err)
	}
	return j.appendLine(line)
}

// AppendMessage writes one message line, stamped with the current time.
func (j *Journal) AppendMessage(msg wire.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("unmarshal message for stamping: %w", err)
	}
	obj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	line, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal stamped message: %w", err)
	}
	return j.appendLine(line)
}

func (j *Journal) appendLine(line []byte) error {
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open journal for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append journal line: %w", err)
	}
	return nil
}

// LoadSession reads the whole file and returns every non-header line parsed
// as a Message, in append order. A missing file yields an empty list.
func LoadSession(path string) ([]wire.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var messages []wire.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if probe.Type == "session_meta" {
			continue
		}
		var msg wire.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return messages, nil
}

// LoadSessionMeta parses only the first line, returning nil if it is absent
// or not a session_meta record.
func LoadSessionMeta(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		return nil, nil
	}
	line := scanner.Bytes()

	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, nil
	}
	if raw["type"] != "session_meta" {
		return nil, nil
	}

	meta := &Meta{Extra: map[string]any{}}
	if v, ok := raw["id"].(string); ok {
		meta.ID = v
	}
	if v, ok := raw["cwd"].(string); ok {
		meta.Cwd = v
	}
	if v, ok := raw["model"].(string); ok {
		meta.Model = v
	}
	if v, ok := raw["heddle_version"].(string); ok {
		meta.HeddleVersion = v
	}
	if v, ok := raw["created"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			meta.Created = t
		}
	}
	for _, known := range []string{"type", "id", "cwd", "model", "created", "heddle_version"} {
		delete(raw, known)
	}
	meta.Extra = raw
	return meta, nil
}
