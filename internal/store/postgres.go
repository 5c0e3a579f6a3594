package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parley/internal/room"
)

// PostgresStore backs the durable slots with Postgres. Each room's metadata
// key is only ever written by that room's own coordinator, so plain
// get/put is enough; no compare-and-swap.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS room_meta (
	room_id   TEXT PRIMARY KEY,
	password  TEXT NOT NULL,
	host_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS analysis_steps (
	run_id TEXT NOT NULL,
	step   TEXT NOT NULL,
	result JSONB NOT NULL,
	PRIMARY KEY (run_id, step)
);
CREATE TABLE IF NOT EXISTS meetings (
	id        TEXT PRIMARY KEY,
	host_name TEXT NOT NULL,
	summary   JSONB NOT NULL
);`

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetRoomMeta(ctx context.Context, roomID string) (room.RoomMetadata, bool, error) {
	var meta room.RoomMetadata
	query := `SELECT password, host_name FROM room_meta WHERE room_id = $1`
	err := s.pool.QueryRow(ctx, query, roomID).Scan(&meta.Password, &meta.HostName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return room.RoomMetadata{}, false, nil
		}
		return room.RoomMetadata{}, false, err
	}
	return meta, true, nil
}

func (s *PostgresStore) PutRoomMeta(ctx context.Context, roomID string, meta room.RoomMetadata) error {
	query := `
		INSERT INTO room_meta (room_id, password, host_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO UPDATE SET password = $2, host_name = $3`
	_, err := s.pool.Exec(ctx, query, roomID, meta.Password, meta.HostName)
	return err
}

func (s *PostgresStore) GetStepResult(ctx context.Context, runID, step string) (json.RawMessage, bool, error) {
	var result json.RawMessage
	query := `SELECT result FROM analysis_steps WHERE run_id = $1 AND step = $2`
	err := s.pool.QueryRow(ctx, query, runID, step).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return result, true, nil
}

func (s *PostgresStore) PutStepResult(ctx context.Context, runID, step string, result json.RawMessage) error {
	query := `
		INSERT INTO analysis_steps (run_id, step, result)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, step) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, runID, step, result)
	return err
}

func (s *PostgresStore) SaveMeetingSummary(ctx context.Context, record MeetingRecord) error {
	summary, err := json.Marshal(record.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	query := `
		INSERT INTO meetings (id, host_name, summary)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	_, err = s.pool.Exec(ctx, query, record.ID, record.HostName, summary)
	return err
}

func (s *PostgresStore) GetMeetingSummary(ctx context.Context, roomID string) (MeetingRecord, bool, error) {
	record := MeetingRecord{ID: roomID}
	var summary []byte
	query := `SELECT host_name, summary FROM meetings WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, roomID).Scan(&record.HostName, &summary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MeetingRecord{}, false, nil
		}
		return MeetingRecord{}, false, err
	}
	if err := json.Unmarshal(summary, &record.Summary); err != nil {
		return MeetingRecord{}, false, fmt.Errorf("decode summary: %w", err)
	}
	return record, true, nil
}

func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
