package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/slamcore/internal/icp"
	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/pointmap"
)

// SavePointMapSnapshot gzip-compresses the accumulated point map and the
// current pose estimate and inserts it as a new row keyed by sensorID.
func (s *SnapshotStore) SavePointMapSnapshot(sensorID string, m *pointmap.Mapper) error {
	points := m.Points()
	pose := m.EstimatedPose()

	blob, err := gzipEncodePoints(points)
	if err != nil {
		return fmt.Errorf("store: serialize point map snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO pointmap_snapshot (sensor_id, taken_unix_nanos, pose_x, pose_y, pose_theta, points_blob)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sensorID, time.Now().UnixNano(), pose.X, pose.Y, pose.Theta, blob,
	)
	if err != nil {
		return fmt.Errorf("store: insert point map snapshot: %w", err)
	}
	return nil
}

// LoadLatestPointMapSnapshot returns a Mapper restored from the most
// recently saved point map for sensorID, configured with params, or
// (nil, nil) if none has been saved yet.
func (s *SnapshotStore) LoadLatestPointMapSnapshot(sensorID string, params pointmap.Parameters) (*pointmap.Mapper, error) {
	row := s.db.QueryRow(
		`SELECT pose_x, pose_y, pose_theta, points_blob
		 FROM pointmap_snapshot WHERE sensor_id = ? ORDER BY taken_unix_nanos DESC LIMIT 1`,
		sensorID,
	)

	var poseX, poseY, poseTheta float64
	var blob []byte
	if err := row.Scan(&poseX, &poseY, &poseTheta, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load point map snapshot: %w", err)
	}

	points, err := gzipDecodePoints(blob)
	if err != nil {
		return nil, fmt.Errorf("store: deserialize point map snapshot: %w", err)
	}

	pose := motion.Pose{X: poseX, Y: poseY, Theta: poseTheta}
	return pointmap.Restore(params, points, pose), nil
}

func gzipEncodePoints(points []icp.Point2) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(points); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecodePoints(blob []byte) ([]icp.Point2, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("store: empty snapshot blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("store: gzip reader: %w", err)
	}
	defer gz.Close()

	var points []icp.Point2
	if err := gob.NewDecoder(gz).Decode(&points); err != nil {
		return nil, fmt.Errorf("store: gob decode: %w", err)
	}
	return points, nil
}
