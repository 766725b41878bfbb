package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrelab/firespread/internal/config"
	"github.com/pyrelab/firespread/internal/firemodel"
	"github.com/pyrelab/firespread/internal/sim"
	"github.com/pyrelab/firespread/internal/timeutil"
)

func ptr[T any](v T) *T { return &v }

// stubRand makes spread decisions deterministic. A value of 1 never ignites
// anything; 0 ignites every neighbor with positive probability.
type stubRand struct{ v float64 }

func (r stubRand) Float64() float64 { return r.v }

func testParams() firemodel.Parameters {
	return firemodel.Parameters{
		Vegetation: firemodel.Grassland,
		Humidity:   10,
	}
}

func testIgnitions() []sim.IgnitionPoint {
	return []sim.IgnitionPoint{{ID: "ign-1", Lat: 0, Lng: 0}}
}

// newTestManager builds a manager that steps every millisecond with
// deterministic randomness. The config tweaks keep fires burning long
// enough for lifecycle tests to interleave with the loop.
func newTestManager(t *testing.T, cfg *config.SimConfig, sample float64) *Manager {
	t.Helper()
	if cfg.StepInterval == nil {
		cfg.StepInterval = ptr("1ms")
	}
	m := New(cfg, WithRandFactory(func() sim.RandomSource {
		return stubRand{v: sample}
	}))
	t.Cleanup(m.Shutdown)
	return m
}

// longBurnConfig keeps a simulation running indefinitely: no decay, no
// spread, effectively unbounded ticks.
func longBurnConfig() *config.SimConfig {
	return &config.SimConfig{
		StepInterval:            ptr("1ms"),
		DecayRate:               ptr(0.0),
		SpreadProbabilityFactor: ptr(0.0),
		MaxTicks:                ptr(1_000_000),
	}
}

// quickBurnConfig burns the fire out on the first step.
func quickBurnConfig() *config.SimConfig {
	return &config.SimConfig{
		StepInterval:            ptr("1ms"),
		DecayRate:               ptr(96.0),
		SpreadProbabilityFactor: ptr(0.0),
	}
}

func waitForStatus(t *testing.T, m *Manager, id string, want sim.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := m.Snapshot(id)
		return err == nil && snap.Status == want
	}, 2*time.Second, time.Millisecond, "simulation %s never reached %s", id, want)
}

func waitForNoLoops(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Stats().RunningLoops == 0
	}, 2*time.Second, time.Millisecond)
}

func TestManager_Create(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.SimulationID)
	assert.Equal(t, sim.StatusCreated, snap.Status)
	assert.Equal(t, 1, snap.Metadata.TotalCells)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, snap.SimulationID, list[0].SimulationID)
	assert.Equal(t, testParams(), list[0].Parameters)
}

func TestManager_CreateInvalidInput(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	bad := testParams()
	bad.Humidity = 500
	_, err := m.Create("", bad, testIgnitions())
	assert.ErrorIs(t, err, sim.ErrInvalidInput)

	_, err = m.Create("", testParams(), nil)
	assert.ErrorIs(t, err, sim.ErrInvalidInput)
}

func TestManager_CreateCapacity(t *testing.T) {
	cfg := longBurnConfig()
	cfg.MaxSimulations = ptr(2)
	m := newTestManager(t, cfg, 1)

	for i := 0; i < 2; i++ {
		_, err := m.Create("", testParams(), testIgnitions())
		require.NoError(t, err)
	}

	_, err := m.Create("", testParams(), testIgnitions())
	assert.ErrorIs(t, err, sim.ErrCapacityExceeded)

	// Deleting frees a slot.
	id := m.List()[0].SimulationID
	require.NoError(t, m.Delete(id))
	_, err = m.Create("", testParams(), testIgnitions())
	assert.NoError(t, err)
}

func TestManager_CreateWithCallerID(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("my-fire", testParams(), testIgnitions())
	require.NoError(t, err)
	assert.Equal(t, "my-fire", snap.SimulationID)

	_, err = m.Create("my-fire", testParams(), testIgnitions())
	assert.ErrorIs(t, err, sim.ErrConflict)

	// A different id is still fine.
	_, err = m.Create("other-fire", testParams(), testIgnitions())
	assert.NoError(t, err)
}

func TestManager_CreateWhileConcurrencySaturated(t *testing.T) {
	cfg := longBurnConfig()
	cfg.MaxConcurrentSimulations = ptr(1)
	m := newTestManager(t, cfg, 1)

	first, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	require.NoError(t, m.Start(first.SimulationID))

	_, err = m.Create("", testParams(), testIgnitions())
	assert.ErrorIs(t, err, sim.ErrCapacityExceeded)

	// Stopping the running simulation frees the slot.
	require.NoError(t, m.Stop(first.SimulationID))
	waitForNoLoops(t, m)
	_, err = m.Create("", testParams(), testIgnitions())
	assert.NoError(t, err)
}

func TestManager_UnknownID(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	assert.ErrorIs(t, m.Start("nope"), sim.ErrNotFound)
	assert.ErrorIs(t, m.Pause("nope"), sim.ErrNotFound)
	assert.ErrorIs(t, m.Stop("nope"), sim.ErrNotFound)
	assert.ErrorIs(t, m.Delete("nope"), sim.ErrNotFound)
	_, err := m.Snapshot("nope")
	assert.ErrorIs(t, err, sim.ErrNotFound)
	_, err = m.Statistics("nope")
	assert.ErrorIs(t, err, sim.ErrNotFound)
	_, _, err = m.Subscribe("nope")
	assert.ErrorIs(t, err, sim.ErrNotFound)
}

func TestManager_RunToCompletion(t *testing.T) {
	m := newTestManager(t, quickBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	require.NoError(t, m.Start(snap.SimulationID))

	waitForStatus(t, m, snap.SimulationID, sim.StatusCompleted)
	waitForNoLoops(t, m)

	stats, err := m.Statistics(snap.SimulationID)
	require.NoError(t, err)
	assert.Equal(t, sim.StatusCompleted, stats.Status)
	assert.Equal(t, 1, stats.TotalBurned)
}

func TestManager_StartWhileRunning(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	require.NoError(t, m.Start(snap.SimulationID))

	assert.ErrorIs(t, m.Start(snap.SimulationID), sim.ErrInvalidTransition)
	assert.Equal(t, 1, m.Stats().RunningLoops)
}

func TestManager_ConcurrentCapacity(t *testing.T) {
	cfg := longBurnConfig()
	cfg.MaxConcurrentSimulations = ptr(1)
	m := newTestManager(t, cfg, 1)

	first, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	second, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)

	require.NoError(t, m.Start(first.SimulationID))
	assert.ErrorIs(t, m.Start(second.SimulationID), sim.ErrCapacityExceeded)

	require.NoError(t, m.Stop(first.SimulationID))
	waitForNoLoops(t, m)
	assert.NoError(t, m.Start(second.SimulationID))
}

// slowStepClock models a loop whose step body takes a fixed duration: every
// Since call reports that cost. Sleeps are recorded without blocking.
type slowStepClock struct {
	*timeutil.MockClock
	cost time.Duration
}

func (c slowStepClock) Since(time.Time) time.Duration { return c.cost }

func TestManager_LoopPacingSubtractsStepCost(t *testing.T) {
	cfg := quickBurnConfig()
	cfg.StepInterval = ptr("10ms")
	cfg.DecayRate = ptr(48.0) // burns out on the second tick

	clk := slowStepClock{MockClock: timeutil.NewMockClock(time.Now()), cost: 4 * time.Millisecond}
	m := New(cfg, WithClock(clk), WithRandFactory(func() sim.RandomSource {
		return stubRand{v: 1}
	}))
	t.Cleanup(m.Shutdown)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	require.NoError(t, m.Start(snap.SimulationID))
	waitForStatus(t, m, snap.SimulationID, sim.StatusCompleted)
	waitForNoLoops(t, m)

	// The loop sleeps only the interval minus the step cost.
	sleeps := clk.Sleeps()
	require.NotEmpty(t, sleeps)
	for _, d := range sleeps {
		assert.Equal(t, 6*time.Millisecond, d)
	}
}

func TestManager_LoopSkipsSleepWhenStepOverruns(t *testing.T) {
	cfg := quickBurnConfig()
	cfg.StepInterval = ptr("10ms")
	cfg.DecayRate = ptr(48.0)

	clk := slowStepClock{MockClock: timeutil.NewMockClock(time.Now()), cost: 25 * time.Millisecond}
	m := New(cfg, WithClock(clk), WithRandFactory(func() sim.RandomSource {
		return stubRand{v: 1}
	}))
	t.Cleanup(m.Shutdown)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	require.NoError(t, m.Start(snap.SimulationID))
	waitForStatus(t, m, snap.SimulationID, sim.StatusCompleted)
	waitForNoLoops(t, m)

	assert.Empty(t, clk.Sleeps())
}

func TestManager_PauseAndResume(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	id := snap.SimulationID

	// Pausing a Created simulation is rejected.
	assert.ErrorIs(t, m.Pause(id), sim.ErrInvalidTransition)

	require.NoError(t, m.Start(id))
	require.NoError(t, m.Pause(id))
	waitForStatus(t, m, id, sim.StatusPaused)
	waitForNoLoops(t, m)

	tickAtPause, err := m.Snapshot(id)
	require.NoError(t, err)

	// The loop stops stepping while paused.
	time.Sleep(10 * time.Millisecond)
	still, err := m.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, tickAtPause.CurrentTime, still.CurrentTime)

	// Resume picks the run back up with a fresh loop.
	require.NoError(t, m.Start(id))
	assert.Equal(t, 1, m.Stats().RunningLoops)
	require.Eventually(t, func() bool {
		s, err := m.Snapshot(id)
		return err == nil && s.CurrentTime > tickAtPause.CurrentTime
	}, 2*time.Second, time.Millisecond)
}

func TestManager_StopWithoutLoop(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	id := snap.SimulationID

	_, ch, err := m.Subscribe(id)
	require.NoError(t, err)

	require.NoError(t, m.Stop(id))

	// The final snapshot arrives and then the channel closes.
	final, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, sim.StatusCompleted, final.Status)
	_, ok = <-ch
	assert.False(t, ok)

	// Stopping again stays Completed.
	require.NoError(t, m.Stop(id))
	waitForStatus(t, m, id, sim.StatusCompleted)
}

func TestManager_SubscriberSeesFinalSnapshot(t *testing.T) {
	m := newTestManager(t, quickBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)

	_, ch, err := m.Subscribe(snap.SimulationID)
	require.NoError(t, err)
	require.NoError(t, m.Start(snap.SimulationID))

	var last sim.Snapshot
	received := 0
	for s := range ch {
		last = s
		received++
	}
	require.Greater(t, received, 0)
	assert.Equal(t, sim.StatusCompleted, last.Status)
	assert.Equal(t, 0, m.Stats().Subscribers)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)

	token, ch, err := m.Subscribe(snap.SimulationID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Stats().Subscribers)

	m.Unsubscribe(snap.SimulationID, token)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, m.Stats().Subscribers)

	// Unknown tokens and ids are ignored.
	m.Unsubscribe(snap.SimulationID, "bogus")
	m.Unsubscribe("nope", token)
}

func TestManager_Delete(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	snap, err := m.Create("", testParams(), testIgnitions())
	require.NoError(t, err)
	id := snap.SimulationID
	require.NoError(t, m.Start(id))

	_, ch, err := m.Subscribe(id)
	require.NoError(t, err)

	require.NoError(t, m.Delete(id))

	_, err = m.Snapshot(id)
	assert.ErrorIs(t, err, sim.ErrNotFound)
	assert.Empty(t, m.List())

	// Subscribers are drained and closed on delete.
	for range ch {
	}
	waitForNoLoops(t, m)
}

func TestManager_Stats(t *testing.T) {
	m := newTestManager(t, longBurnConfig(), 1)

	for i := 0; i < 3; i++ {
		_, err := m.Create("", testParams(), testIgnitions())
		require.NoError(t, err)
	}
	id := m.List()[0].SimulationID
	require.NoError(t, m.Start(id))

	st := m.Stats()
	assert.Equal(t, 3, st.TotalSimulations)
	assert.Equal(t, 1, st.ByStatus[sim.StatusRunning])
	assert.Equal(t, 2, st.ByStatus[sim.StatusCreated])
	assert.Equal(t, 1, st.RunningLoops)
	assert.Equal(t, 100, st.MaxSimulations)
	assert.Equal(t, 10, st.MaxConcurrent)
}

func TestManager_Shutdown(t *testing.T) {
	m := New(longBurnConfig(), WithRandFactory(func() sim.RandomSource {
		return stubRand{v: 1}
	}))

	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := m.Create("", testParams(), testIgnitions())
		require.NoError(t, err)
		ids = append(ids, snap.SimulationID)
	}
	require.NoError(t, m.Start(ids[0]))
	require.NoError(t, m.Start(ids[1]))

	// A subscriber on a loopless simulation sees the terminal snapshot
	// before its channel closes.
	_, chIdle, err := m.Subscribe(ids[2])
	require.NoError(t, err)

	m.Shutdown()

	var last sim.Snapshot
	for s := range chIdle {
		last = s
	}
	assert.Equal(t, sim.StatusCompleted, last.Status)

	// Shutdown clears the registry entirely.
	st := m.Stats()
	assert.Equal(t, 0, st.RunningLoops)
	assert.Equal(t, 0, st.TotalSimulations)
	assert.Empty(t, m.List())
	for _, id := range ids {
		_, err := m.Snapshot(id)
		assert.ErrorIs(t, err, sim.ErrNotFound)
	}
}
