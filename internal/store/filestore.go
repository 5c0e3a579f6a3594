package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"parley/internal/room"
)

// FileStore keeps each slot as one JSON document under a state directory.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a torn document behind.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("state dir is empty")
	}
	for _, sub := range []string{"rooms", "steps", "meetings"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) GetRoomMeta(ctx context.Context, roomID string) (room.RoomMetadata, bool, error) {
	var meta room.RoomMetadata
	found, err := s.read(filepath.Join("rooms", sanitize(roomID)+".json"), &meta)
	return meta, found, err
}

func (s *FileStore) PutRoomMeta(ctx context.Context, roomID string, meta room.RoomMetadata) error {
	return s.write(filepath.Join("rooms", sanitize(roomID)+".json"), meta)
}

func (s *FileStore) GetStepResult(ctx context.Context, runID, step string) (json.RawMessage, bool, error) {
	var result json.RawMessage
	found, err := s.read(stepPath(runID, step), &result)
	return result, found, err
}

func (s *FileStore) PutStepResult(ctx context.Context, runID, step string, result json.RawMessage) error {
	return s.write(stepPath(runID, step), result)
}

func (s *FileStore) SaveMeetingSummary(ctx context.Context, record MeetingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, "meetings", sanitize(record.ID)+".json")
	if _, err := os.Stat(path); err == nil {
		// Already committed; a replayed save stays a no-op.
		return nil
	}
	return s.writeLocked(filepath.Join("meetings", sanitize(record.ID)+".json"), record)
}

func (s *FileStore) GetMeetingSummary(ctx context.Context, roomID string) (MeetingRecord, bool, error) {
	var record MeetingRecord
	found, err := s.read(filepath.Join("meetings", sanitize(roomID)+".json"), &record)
	return record, found, err
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(relative string, target any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(filepath.Join(s.dir, relative))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", relative, err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return false, fmt.Errorf("decode %s: %w", relative, err)
	}
	return true, nil
}

func (s *FileStore) write(relative string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(relative, value)
}

func (s *FileStore) writeLocked(relative string, value any) error {
	payload, err := encodeDocument(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", relative, err)
	}

	path := filepath.Join(s.dir, relative)
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("write %s: %w", relative, err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close %s: %w", relative, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("commit %s: %w", relative, err)
	}
	return nil
}

// encodeDocument writes raw messages verbatim so ledger entries read back
// byte-for-byte; structured values get indented for hand inspection.
func encodeDocument(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.MarshalIndent(value, "", "  ")
}

func stepPath(runID, step string) string {
	return filepath.Join("steps", sanitize(runID)+"-"+sanitize(step)+".json")
}

// sanitize keeps identifiers filesystem-safe; identifiers are short opaque
// strings, so replacement is enough.
func sanitize(value string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	cleaned := replacer.Replace(value)
	if cleaned == "" {
		cleaned = "_"
	}
	return cleaned
}
