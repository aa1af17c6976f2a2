package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kabuten/internal/logging"
	"kabuten/internal/thread"
)

// ThreadInfo describes one persisted thread without its entries.
type ThreadInfo struct {
	SectorKey string
	Entries   int
	UpdatedAt time.Time
	// LastSweepAt is zero when the thread holds no sweep.
	LastSweepAt time.Time
}

// SaveThread replaces the stored thread for sectorKey with entries.
func (s *Store) SaveThread(sectorKey string, entries []thread.Entry) error {
	if entries == nil {
		entries = []thread.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", sectorKey, err)
	}

	var lastSweep sql.NullString
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == thread.TypeSweep {
			lastSweep = sql.NullString{String: entries[i].Timestamp, Valid: true}
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO agent_threads (sector_key, thread, updated_at, last_sweep_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sector_key) DO UPDATE SET
			thread = excluded.thread,
			updated_at = excluded.updated_at,
			last_sweep_at = excluded.last_sweep_at`,
		sectorKey, string(data), formatTime(s.now()), lastSweep)
	if err != nil {
		logging.StoreError("Failed to save thread %s: %v", sectorKey, err)
		return fmt.Errorf("failed to save thread %s: %w", sectorKey, err)
	}
	logging.StoreDebug("Saved thread %s (%d entries)", sectorKey, len(entries))
	return nil
}

// LoadThread returns the stored thread for sectorKey. ok is false when none
// has been saved.
func (s *Store) LoadThread(sectorKey string) (entries []thread.Entry, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err = s.db.QueryRow("SELECT thread FROM agent_threads WHERE sector_key = ?", sectorKey).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load thread %s: %w", sectorKey, err)
	}
	entries, err = decodeThread(sectorKey, data)
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// LoadAllThreads returns every stored thread keyed by sector.
func (s *Store) LoadAllThreads() (map[string][]thread.Entry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadAllThreads")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT sector_key, thread FROM agent_threads ORDER BY sector_key")
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]thread.Entry)
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		entries, err := decodeThread(key, data)
		if err != nil {
			return nil, err
		}
		out[key] = entries
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read threads: %w", err)
	}

	logging.Store("Loaded %d threads", len(out))
	return out, nil
}

// ThreadStatus returns summary rows for every stored thread.
func (s *Store) ThreadStatus() (map[string]ThreadInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT sector_key, json_array_length(thread), updated_at, last_sweep_at
		FROM agent_threads`)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ThreadInfo)
	for rows.Next() {
		var (
			info      ThreadInfo
			updated   string
			lastSweep sql.NullString
		)
		if err := rows.Scan(&info.SectorKey, &info.Entries, &updated, &lastSweep); err != nil {
			return nil, fmt.Errorf("failed to scan thread status: %w", err)
		}
		info.UpdatedAt = parseTime(updated)
		if lastSweep.Valid {
			info.LastSweepAt = parseTime(lastSweep.String)
		}
		out[info.SectorKey] = info
	}
	return out, rows.Err()
}

func decodeThread(sectorKey, data string) ([]thread.Entry, error) {
	entries := []thread.Entry{}
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		logging.StoreError("Corrupt thread for %s: %v", sectorKey, err)
		return nil, fmt.Errorf("failed to decode thread %s: %w", sectorKey, err)
	}
	return entries, nil
}
