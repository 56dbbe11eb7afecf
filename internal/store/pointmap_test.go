package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/pointmap"
)

func TestPointMapSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	params := pointmap.DefaultParameters()
	m := pointmap.New(params)
	m.Update(motion.Observation{
		Measurements: []motion.Measurement{
			{Angle: 0, Distance: 1.0, Valid: true},
			{Angle: 1.57, Distance: 0.5, Valid: true},
		},
	})

	require.NoError(t, s.SavePointMapSnapshot("sensor-a", m))

	loaded, err := s.LoadLatestPointMapSnapshot("sensor-a", params)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	if diff := cmp.Diff(m.EstimatedPose(), loaded.EstimatedPose()); diff != "" {
		t.Fatalf("restored pose diverged from original (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Points(), loaded.Points()); diff != "" {
		t.Fatalf("restored points diverged from original (-want +got):\n%s", diff)
	}
}

func TestLoadLatestPointMapSnapshotMissingSensorReturnsNil(t *testing.T) {
	s := newTestStore(t)

	loaded, err := s.LoadLatestPointMapSnapshot("unknown-sensor", pointmap.DefaultParameters())
	require.NoError(t, err)
	require.Nil(t, loaded)
}
