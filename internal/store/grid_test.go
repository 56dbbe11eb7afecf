package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/slamcore/internal/gridmap"
	"github.com/banshee-data/slamcore/internal/motion"
)

func TestGridSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	g := gridmap.New(motion.Point{X: -1, Y: -1}, 2, 2, 0.5)
	g.Integrate(motion.Observation{
		Measurements: []motion.Measurement{{Angle: 0, Distance: 0.5, Valid: true}},
	}, motion.Pose{})

	require.NoError(t, s.SaveGridSnapshot("sensor-a", g))

	loaded, err := s.LoadLatestGridSnapshot("sensor-a")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	wantCols, wantRows := g.Size()
	gotCols, gotRows := loaded.Size()
	require.Equal(t, wantCols, gotCols)
	require.Equal(t, wantRows, gotRows)
	require.Equal(t, g.Resolution(), loaded.Resolution())
	require.Equal(t, g.Position(), loaded.Position())
	require.Equal(t, g.RawOdds(), loaded.RawOdds())
}

func TestLoadLatestGridSnapshotReturnsLatest(t *testing.T) {
	s := newTestStore(t)

	first := gridmap.New(motion.Point{}, 1, 1, 0.5)
	second := gridmap.New(motion.Point{}, 1, 1, 0.5)
	second.Integrate(motion.Observation{
		Measurements: []motion.Measurement{{Angle: 0, Distance: 0.3, Valid: true}},
	}, motion.Pose{})

	require.NoError(t, s.SaveGridSnapshot("sensor-b", first))
	require.NoError(t, s.SaveGridSnapshot("sensor-b", second))

	loaded, err := s.LoadLatestGridSnapshot("sensor-b")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, second.RawOdds(), loaded.RawOdds())
}

func TestLoadLatestGridSnapshotMissingSensorReturnsNil(t *testing.T) {
	s := newTestStore(t)

	loaded, err := s.LoadLatestGridSnapshot("unknown-sensor")
	require.NoError(t, err)
	require.Nil(t, loaded)
}
