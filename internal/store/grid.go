package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/slamcore/internal/gridmap"
	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/telemetry"
)

// SaveGridSnapshot gzip-compresses the grid's raw log-odds array and inserts
// it as a new row keyed by sensorID, mirroring the teacher's
// BackgroundManager.Persist: a full copy, then a single-blob insert rather
// than a cell-by-cell write.
func (s *SnapshotStore) SaveGridSnapshot(sensorID string, g *gridmap.Grid) error {
	position := g.Position()
	cols, rows := g.Size()

	blob, err := gzipEncodeFloats(g.RawOdds())
	if err != nil {
		telemetry.Logf("store: serialize grid snapshot for sensor %s: %v", sensorID, err)
		return fmt.Errorf("store: serialize grid snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO grid_snapshot (sensor_id, taken_unix_nanos, position_x, position_y, resolution, cols, rows, odds_blob)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sensorID, time.Now().UnixNano(), position.X, position.Y, g.Resolution(), cols, rows, blob,
	)
	if err != nil {
		return fmt.Errorf("store: insert grid snapshot: %w", err)
	}
	return nil
}

// LoadLatestGridSnapshot returns the most recently saved grid for sensorID,
// or (nil, nil) if none has been saved yet.
func (s *SnapshotStore) LoadLatestGridSnapshot(sensorID string) (*gridmap.Grid, error) {
	row := s.db.QueryRow(
		`SELECT position_x, position_y, resolution, cols, rows, odds_blob
		 FROM grid_snapshot WHERE sensor_id = ? ORDER BY taken_unix_nanos DESC LIMIT 1`,
		sensorID,
	)

	var posX, posY, resolution float64
	var cols, rows int
	var blob []byte
	if err := row.Scan(&posX, &posY, &resolution, &cols, &rows, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load grid snapshot: %w", err)
	}

	odds, err := gzipDecodeFloats(blob)
	if err != nil {
		return nil, fmt.Errorf("store: deserialize grid snapshot: %w", err)
	}
	if len(odds) != cols*rows {
		return nil, fmt.Errorf("store: grid snapshot cell count mismatch: blob has %d, expected %d", len(odds), cols*rows)
	}

	return gridmap.Restore(motion.Point{X: posX, Y: posY}, resolution, cols, rows, odds), nil
}

func gzipEncodeFloats(values []float64) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(values); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecodeFloats(blob []byte) ([]float64, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("store: empty snapshot blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("store: gzip reader: %w", err)
	}
	defer gz.Close()

	var values []float64
	if err := gob.NewDecoder(gz).Decode(&values); err != nil {
		return nil, fmt.Errorf("store: gob decode: %w", err)
	}
	return values, nil
}
