package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kabuten/internal/logging"
	"kabuten/internal/types"
)

// SynthesisRecord is one row of the sweep history.
type SynthesisRecord struct {
	ID        string
	CreatedAt time.Time
	Synthesis types.Synthesis
}

// RecordSynthesis appends syn to the sweep history and returns its id.
func (s *Store) RecordSynthesis(syn types.Synthesis) (string, error) {
	cols := make([]string, 0, 4)
	for _, v := range []interface{}{
		nonNilStrings(syn.KeyDrivers),
		nonNilStrings(syn.KeyRisks),
		nonNilSummaries(syn.CompanySignals),
		nonNilSummaries(syn.MaterialFindings),
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode synthesis %s: %w", syn.SectorKey, err)
		}
		cols = append(cols, string(data))
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sector_syntheses (
			id, sector_key, designation, posture, conviction, thesis_summary,
			key_drivers, key_risks, company_signals, material_findings, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, syn.SectorKey, syn.Designation, string(syn.Posture), syn.Conviction, syn.ThesisSummary,
		cols[0], cols[1], cols[2], cols[3], formatTime(s.now()))
	if err != nil {
		logging.StoreError("Failed to record synthesis for %s: %v", syn.SectorKey, err)
		return "", fmt.Errorf("failed to record synthesis %s: %w", syn.SectorKey, err)
	}
	logging.StoreDebug("Recorded synthesis %s for %s", id, syn.SectorKey)
	return id, nil
}

// RecentSyntheses returns up to limit records for sectorKey, newest first.
func (s *Store) RecentSyntheses(sectorKey string, limit int) ([]SynthesisRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, sector_key, designation, posture, conviction, thesis_summary,
			key_drivers, key_risks, company_signals, material_findings, created_at
		FROM sector_syntheses
		WHERE sector_key = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, sectorKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query syntheses: %w", err)
	}
	defer rows.Close()

	var out []SynthesisRecord
	for rows.Next() {
		var (
			rec                                  SynthesisRecord
			posture, created                     string
			drivers, risks, signals, materialRaw string
		)
		syn := &rec.Synthesis
		if err := rows.Scan(&rec.ID, &syn.SectorKey, &syn.Designation, &posture, &syn.Conviction, &syn.ThesisSummary,
			&drivers, &risks, &signals, &materialRaw, &created); err != nil {
			return nil, fmt.Errorf("failed to scan synthesis: %w", err)
		}
		syn.Posture = types.Posture(posture)
		rec.CreatedAt = parseTime(created)

		for _, col := range []struct {
			raw string
			dst interface{}
		}{
			{drivers, &syn.KeyDrivers},
			{risks, &syn.KeyRisks},
			{signals, &syn.CompanySignals},
			{materialRaw, &syn.MaterialFindings},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
				return nil, fmt.Errorf("failed to decode synthesis %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestSynthesis returns the newest record for sectorKey.
func (s *Store) LatestSynthesis(sectorKey string) (SynthesisRecord, bool, error) {
	recs, err := s.RecentSyntheses(sectorKey, 1)
	if err != nil || len(recs) == 0 {
		return SynthesisRecord{}, false, err
	}
	return recs[0], true, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilSummaries(v []types.FindingSummary) []types.FindingSummary {
	if v == nil {
		return []types.FindingSummary{}
	}
	return v
}
