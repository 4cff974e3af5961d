package hass

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DiscoveryStore remembers which device identity and firmware version the
// discovery documents were last published for.
type DiscoveryStore interface {
	// Announced reports whether documents were published for deviceID at
	// this firmware version.
	Announced(ctx context.Context, deviceID, version string) (bool, error)

	// MarkAnnounced records a successful publication.
	MarkAnnounced(ctx context.Context, deviceID, version string) error

	// Reset forgets the publication so the next connect republishes.
	Reset(ctx context.Context, deviceID string) error
}

// SQLiteStore implements DiscoveryStore on the discovery_announcements table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Announced(ctx context.Context, deviceID, version string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT firmware_version FROM discovery_announcements WHERE device_id = ?`,
		deviceID,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying discovery announcement: %w", err)
	}
	return stored == version, nil
}

func (s *SQLiteStore) MarkAnnounced(ctx context.Context, deviceID, version string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discovery_announcements (device_id, firmware_version, announced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			firmware_version = excluded.firmware_version,
			announced_at = excluded.announced_at`,
		deviceID, version, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording discovery announcement: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM discovery_announcements WHERE device_id = ?`, deviceID,
	); err != nil {
		return fmt.Errorf("resetting discovery announcement: %w", err)
	}
	return nil
}

// MemoryStore is a process-lifetime DiscoveryStore, used when no database
// is configured.
type MemoryStore struct {
	mu       sync.Mutex
	versions map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[string]string)}
}

func (m *MemoryStore) Announced(_ context.Context, deviceID, version string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[deviceID]
	return ok && v == version, nil
}

func (m *MemoryStore) MarkAnnounced(_ context.Context, deviceID, version string) error {
	m.mu.Lock()
	m.versions[deviceID] = version
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, deviceID string) error {
	m.mu.Lock()
	delete(m.versions, deviceID)
	m.mu.Unlock()
	return nil
}
