package simulator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/banshee-data/slamcore/internal/bus"
	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/scene"
	"github.com/banshee-data/slamcore/internal/timeutil"
)

func newTestSimulator(t *testing.T) (*Simulator, *bus.Subscription[motion.Observation], *bus.Publisher[motion.Command], *bus.Bus) {
	t.Helper()
	b := bus.New()
	pubObs := bus.Publish[motion.Observation](b, "obs")
	pubObsOdom := bus.Publish[ObservationOdometry](b, "obs-odom")
	subCmd := bus.Subscribe[motion.Command](b, "cmd")
	pubCmd := bus.Publish[motion.Command](b, "cmd")
	subObs := bus.Subscribe[motion.Observation](b, "obs")

	sc := scene.New()
	sc.AddRect(scene.Point{X: -5, Y: -5}, scene.Vector{X: 10, Y: 10})

	sim := New(pubObs, pubObsOdom, subCmd, sc, DefaultParameters(), rand.NewSource(1))
	return sim, subObs, pubCmd, b
}

func TestSimulatorMotionModelStraightLine(t *testing.T) {
	sim, _, pubCmd, b := newTestSimulator(t)

	pubCmd.Send(&motion.Command{SpeedLeft: 0.1, SpeedRight: 0.1})
	b.Tick()

	for i := 0; i < 10; i++ {
		sim.Tick(0.1)
	}

	p := sim.Pose()
	if math.Abs(p.Theta) > 1e-9 {
		t.Fatalf("expected zero rotation for equal wheel speeds, got %v", p.Theta)
	}
	if p.X <= 0 {
		t.Fatalf("expected forward motion, got x=%v", p.X)
	}
}

func TestSimulatorEmitsScanAfterUpdatePeriod(t *testing.T) {
	sim, subObs, _, b := newTestSimulator(t)

	if _, ok := subObs.TryRecv(); ok {
		t.Fatalf("expected no scan before first tick")
	}

	for i := 0; i < 10; i++ {
		sim.Tick(0.05) // 10 * 0.05 = 0.5s > UpdatePeriod 0.2s
	}
	b.Tick() // deliver the published scans to subObs

	found := false
	for {
		_, ok := subObs.TryRecv()
		if !ok {
			break
		}
		found = true
	}
	if !found {
		t.Fatalf("expected at least one scan to have been published")
	}
}

func TestSimulatorInactiveDoesNotIntegrate(t *testing.T) {
	sim, _, pubCmd, b := newTestSimulator(t)
	sim.SetActive(false)

	pubCmd.Send(&motion.Command{SpeedLeft: 1, SpeedRight: 1})
	b.Tick()
	sim.Tick(1.0)

	if sim.Pose() != (motion.Pose{}) {
		t.Fatalf("expected pose unchanged while inactive, got %+v", sim.Pose())
	}
}

func TestLoopStepDrivesSimulator(t *testing.T) {
	sim, _, pubCmd, b := newTestSimulator(t)
	loop := NewLoop(sim, timeutil.RealClock{})

	pubCmd.Send(&motion.Command{SpeedLeft: 0.1, SpeedRight: 0.1})
	b.Tick()

	loop.Step(FixedTimestep)
	if sim.Pose().X <= 0 {
		t.Fatalf("expected Step to advance the simulator pose")
	}
}

func TestLoopStartStop(t *testing.T) {
	sim, _, _, _ := newTestSimulator(t)
	loop := NewLoop(sim, timeutil.RealClock{})

	loop.Start()
	time.Sleep(20 * time.Millisecond)
	loop.Stop()
	// calling Stop twice must not panic or hang
	loop.Stop()
}
