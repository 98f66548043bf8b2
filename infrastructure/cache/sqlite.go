package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

// SQLiteCache is a persistent AggregationCache. Interaction values are
// time-invariant for a given fault model, so aggregations computed in one
// run can be reused by later runs against the same database file.
//
// Read or decode failures degrade to cache misses; write failures are logged
// and dropped. The pipeline recomputes deterministically either way.
type SQLiteCache struct {
	conn *sqlx.DB
	log  *slog.Logger
}

var _ ports.AggregationCache = (*SQLiteCache)(nil)

// OpenSQLiteCache opens or creates a cache database at the given path.
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	c := &SQLiteCache{conn: conn, log: slog.Default().With("component", "stiffness_cache")}
	if err := c.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error { return c.conn.Close() }

func (c *SQLiteCache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patch_aggregated (
		method INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		receiver_id INTEGER NOT NULL,
		dists_json TEXT NOT NULL,
		PRIMARY KEY (method, source_id, receiver_id)
	);

	CREATE TABLE IF NOT EXISTS sect_aggregated (
		patch_method INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		receiver_id INTEGER NOT NULL,
		values_json TEXT NOT NULL,
		PRIMARY KEY (patch_method, source_id, receiver_id)
	);`
	_, err := c.conn.Exec(schema)
	return err
}

type storedDistribution struct {
	ReceiverID        int       `json:"receiver_id"`
	Values            []float64 `json:"values"`
	TotalInteractions int       `json:"total_interactions"`
}

// PatchAggregated implements ports.AggregationCache.
func (c *SQLiteCache) PatchAggregated(method domain.AggregationMethod, sourceID, receiverID int) ([]domain.Distribution, bool) {
	var payload string
	err := c.conn.Get(&payload,
		`SELECT dists_json FROM patch_aggregated WHERE method = ? AND source_id = ? AND receiver_id = ?`,
		int(method), sourceID, receiverID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn("patch cache read failed", "source", sourceID, "receiver", receiverID, "err", err)
		}
		return nil, false
	}

	var stored []storedDistribution
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		c.log.Warn("patch cache entry corrupt", "source", sourceID, "receiver", receiverID, "err", err)
		return nil, false
	}
	dists := make([]domain.Distribution, len(stored))
	for i, s := range stored {
		dists[i] = domain.Distribution{
			ReceiverID:        s.ReceiverID,
			Values:            s.Values,
			TotalInteractions: s.TotalInteractions,
		}
	}
	return dists, true
}

// PutPatchAggregated implements ports.AggregationCache.
func (c *SQLiteCache) PutPatchAggregated(method domain.AggregationMethod, sourceID, receiverID int, dists []domain.Distribution) {
	stored := make([]storedDistribution, len(dists))
	for i, d := range dists {
		stored[i] = storedDistribution{
			ReceiverID:        d.ReceiverID,
			Values:            d.Values,
			TotalInteractions: d.TotalInteractions,
		}
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		c.log.Warn("patch cache encode failed", "source", sourceID, "receiver", receiverID, "err", err)
		return
	}
	_, err = c.conn.Exec(
		`INSERT OR REPLACE INTO patch_aggregated (method, source_id, receiver_id, dists_json) VALUES (?, ?, ?, ?)`,
		int(method), sourceID, receiverID, string(payload))
	if err != nil {
		c.log.Warn("patch cache write failed", "source", sourceID, "receiver", receiverID, "err", err)
	}
}

// SectAggregated implements ports.AggregationCache.
func (c *SQLiteCache) SectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int) (*domain.AggregationVector, bool) {
	var payload string
	err := c.conn.Get(&payload,
		`SELECT values_json FROM sect_aggregated WHERE patch_method = ? AND source_id = ? AND receiver_id = ?`,
		int(patchMethod), sourceID, receiverID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn("sect cache read failed", "source", sourceID, "receiver", receiverID, "err", err)
		}
		return nil, false
	}

	var values []float64
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		c.log.Warn("sect cache entry corrupt", "source", sourceID, "receiver", receiverID, "err", err)
		return nil, false
	}
	agg, err := domain.NewAggregationVectorFrom(domain.TerminalMethods(), values)
	if err != nil {
		c.log.Warn("sect cache entry invalid", "source", sourceID, "receiver", receiverID, "err", err)
		return nil, false
	}
	return agg, true
}

// PutSectAggregated implements ports.AggregationCache.
func (c *SQLiteCache) PutSectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int, agg *domain.AggregationVector) {
	methods := domain.TerminalMethods()
	values := make([]float64, len(methods))
	for i, m := range methods {
		v, err := agg.Get(m)
		if err != nil {
			c.log.Warn("sect cache encode failed", "source", sourceID, "receiver", receiverID, "err", err)
			return
		}
		values[i] = v
	}
	payload, err := json.Marshal(values)
	if err != nil {
		c.log.Warn("sect cache encode failed", "source", sourceID, "receiver", receiverID, "err", err)
		return
	}
	_, err = c.conn.Exec(
		`INSERT OR REPLACE INTO sect_aggregated (patch_method, source_id, receiver_id, values_json) VALUES (?, ?, ?, ?)`,
		int(patchMethod), sourceID, receiverID, string(payload))
	if err != nil {
		c.log.Warn("sect cache write failed", "source", sourceID, "receiver", receiverID, "err", err)
	}
}
