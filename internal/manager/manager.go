// Package manager coordinates the lifecycle of every simulation in the
// service: creation against capacity limits, one stepping loop per running
// simulation, and snapshot fan-out to subscribers.
package manager

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pyrelab/firespread/internal/config"
	"github.com/pyrelab/firespread/internal/firemodel"
	"github.com/pyrelab/firespread/internal/monitoring"
	"github.com/pyrelab/firespread/internal/sim"
	"github.com/pyrelab/firespread/internal/timeutil"
)

// entry pairs a simulation with its snapshot subscribers.
type entry struct {
	sim         *sim.Simulation
	createdAt   time.Time
	subscribers map[string]chan sim.Snapshot
}

// Manager owns every simulation in the process. All state is guarded by a
// single mutex; stepping loops take the same lock per tick, so reads always
// observe a consistent simulation.
type Manager struct {
	mu   sync.Mutex
	sims map[string]*entry

	// loops tracks which simulation ids currently have a stepping
	// goroutine. At most one loop exists per id.
	loops map[string]struct{}
	wg    sync.WaitGroup

	cfg     *config.SimConfig
	clock   timeutil.Clock
	newRand func() sim.RandomSource

	logf func(format string, v ...interface{})
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the wall clock, used by tests to avoid real sleeps.
func WithClock(c timeutil.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithRandFactory substitutes the per-simulation random source factory.
func WithRandFactory(f func() sim.RandomSource) Option {
	return func(m *Manager) { m.newRand = f }
}

// New creates a manager with the given tuning configuration.
func New(cfg *config.SimConfig, opts ...Option) *Manager {
	m := &Manager{
		sims:  make(map[string]*entry),
		loops: make(map[string]struct{}),
		cfg:   cfg,
		clock: timeutil.RealClock{},
		newRand: func() sim.RandomSource {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		logf: monitoring.Component("manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// subscriberID generates a random subscriber token (8 byte random hex
// encoded value).
func subscriberID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Create builds a new simulation in the Created state and returns its
// initial snapshot. An empty id gets a generated uuid; a caller-supplied id
// that already exists fails with ErrConflict. Creation fails with
// ErrCapacityExceeded once the total simulation limit is reached or while
// the concurrent-run limit is saturated.
func (m *Manager) Create(id string, params firemodel.Parameters, ignitions []sim.IgnitionPoint) (sim.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sims) >= m.cfg.GetMaxSimulations() {
		return sim.Snapshot{}, fmt.Errorf("%w: at most %d simulations", sim.ErrCapacityExceeded, m.cfg.GetMaxSimulations())
	}
	if len(m.loops) >= m.cfg.GetMaxConcurrentSimulations() {
		return sim.Snapshot{}, fmt.Errorf("%w: at most %d concurrent simulations", sim.ErrCapacityExceeded, m.cfg.GetMaxConcurrentSimulations())
	}

	if id == "" {
		id = uuid.New().String()
	} else if _, exists := m.sims[id]; exists {
		return sim.Snapshot{}, fmt.Errorf("%w: simulation %s already exists", sim.ErrConflict, id)
	}
	limits := sim.Limits{
		MaxTicks:        m.cfg.GetMaxTicks(),
		MaxCells:        m.cfg.GetMaxCellsPerSimulation(),
		SnapshotCellCap: m.cfg.GetSnapshotCellCap(),
	}
	tuning := sim.EngineParams{
		DecayRate:               m.cfg.GetDecayRate(),
		IntensityFloor:          m.cfg.GetIntensityFloor(),
		BurnDurationCap:         m.cfg.GetBurnDurationCap(),
		IgnitionBaseIntensity:   m.cfg.GetIgnitionBaseIntensity(),
		IntensityMin:            m.cfg.GetIntensityMin(),
		IntensityMax:            m.cfg.GetIntensityMax(),
		SpreadProbabilityFactor: m.cfg.GetSpreadProbabilityFactor(),
	}

	s, err := sim.NewSimulation(id, params, ignitions, m.cfg.GetGridResolution(), tuning, limits, m.newRand())
	if err != nil {
		return sim.Snapshot{}, err
	}

	m.sims[id] = &entry{
		sim:         s,
		createdAt:   m.clock.Now(),
		subscribers: make(map[string]chan sim.Snapshot),
	}
	m.logf("created simulation %s (%d total)", id, len(m.sims))
	return s.Snapshot(), nil
}

// Start transitions a simulation to Running and ensures exactly one
// stepping loop drives it. Starting beyond the concurrent-run limit fails
// with ErrCapacityExceeded.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}

	if _, running := m.loops[id]; !running && len(m.loops) >= m.cfg.GetMaxConcurrentSimulations() {
		return fmt.Errorf("%w: at most %d concurrent simulations", sim.ErrCapacityExceeded, m.cfg.GetMaxConcurrentSimulations())
	}

	if err := e.sim.Start(); err != nil {
		return err
	}

	if _, running := m.loops[id]; !running {
		m.loops[id] = struct{}{}
		m.wg.Add(1)
		go m.runLoop(id)
	}
	return nil
}

// Pause transitions a Running simulation to Paused. The stepping loop
// observes the state change on its next tick and exits; subscribers stay
// attached for a later resume.
func (m *Manager) Pause(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}
	return e.sim.Pause()
}

// Stop forces a simulation to Completed. If no loop is driving it the final
// snapshot is broadcast immediately; otherwise the loop performs the final
// broadcast when it observes the terminal state.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}

	e.sim.Stop()
	if _, running := m.loops[id]; !running {
		m.finalizeLocked(id, e)
	}
	return nil
}

// Delete stops a simulation if necessary and removes it entirely. Attached
// subscribers receive the final snapshot and their channels are closed.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}

	e.sim.Stop()
	m.finalizeLocked(id, e)
	delete(m.sims, id)
	m.logf("deleted simulation %s", id)
	return nil
}

// Snapshot returns the current snapshot of a simulation.
func (m *Manager) Snapshot(id string) (sim.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return sim.Snapshot{}, fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}
	return e.sim.Snapshot(), nil
}

// Statistics returns the detailed statistics of a simulation.
func (m *Manager) Statistics(id string) (sim.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return sim.Statistics{}, fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}
	return e.sim.Statistics(), nil
}

// Summary describes one simulation in a listing.
type Summary struct {
	SimulationID string               `json:"simulationId"`
	Status       sim.Status           `json:"status"`
	CurrentTime  int                  `json:"currentTime"`
	TotalCells   int                  `json:"totalCells"`
	CreatedAt    time.Time            `json:"createdAt"`
	Parameters   firemodel.Parameters `json:"parameters"`
}

// List returns a summary of every simulation, newest first.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Summary, 0, len(m.sims))
	for id, e := range m.sims {
		out = append(out, Summary{
			SimulationID: id,
			Status:       e.sim.Status(),
			CurrentTime:  e.sim.Tick(),
			TotalCells:   e.sim.Engine().Grid().Len(),
			CreatedAt:    e.createdAt,
			Parameters:   e.sim.Parameters(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SimulationID < out[j].SimulationID
	})
	return out
}

// Stats summarises the manager itself.
type Stats struct {
	TotalSimulations int                `json:"totalSimulations"`
	ByStatus         map[sim.Status]int `json:"byStatus"`
	RunningLoops     int                `json:"runningLoops"`
	MaxSimulations   int                `json:"maxSimulations"`
	MaxConcurrent    int                `json:"maxConcurrent"`
	Subscribers      int                `json:"subscribers"`
}

// Stats returns occupancy counters for the whole manager.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		TotalSimulations: len(m.sims),
		ByStatus:         make(map[sim.Status]int),
		RunningLoops:     len(m.loops),
		MaxSimulations:   m.cfg.GetMaxSimulations(),
		MaxConcurrent:    m.cfg.GetMaxConcurrentSimulations(),
	}
	for _, e := range m.sims {
		st.ByStatus[e.sim.Status()]++
		st.Subscribers += len(e.subscribers)
	}
	return st
}

// Subscribe attaches a snapshot channel to a simulation. The returned token
// identifies the subscription for Unsubscribe. The channel is buffered;
// slow consumers miss intermediate snapshots rather than stalling the loop.
func (m *Manager) Subscribe(id string) (string, <-chan sim.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", sim.ErrNotFound, id)
	}

	token := subscriberID()
	ch := make(chan sim.Snapshot, 4)
	e.subscribers[token] = ch
	return token, ch, nil
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (m *Manager) Unsubscribe(id, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sims[id]
	if !ok {
		return
	}
	if ch, ok := e.subscribers[token]; ok {
		close(ch)
		delete(e.subscribers, token)
	}
}

// Shutdown stops every simulation, waits for all loops to exit and clears
// the registry.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for id, e := range m.sims {
		e.sim.Stop()
		if _, running := m.loops[id]; !running {
			m.finalizeLocked(id, e)
		}
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.sims = make(map[string]*entry)
	m.mu.Unlock()
	m.logf("shut down")
}

// runLoop steps one simulation until it leaves the Running state. Each
// iteration takes the manager lock, steps, broadcasts the snapshot and
// sleeps the step interval outside the lock.
func (m *Manager) runLoop(id string) {
	defer m.wg.Done()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.loops, id)
		if e, ok := m.sims[id]; ok {
			e.sim.Fail(fmt.Errorf("simulation loop panicked: %v", r))
			m.finalizeLocked(id, e)
		}
	}()

	interval := m.cfg.GetStepInterval()
	for {
		start := m.clock.Now()
		m.mu.Lock()
		e, ok := m.sims[id]
		if !ok {
			// Deleted while the loop slept.
			delete(m.loops, id)
			m.mu.Unlock()
			return
		}

		status := e.sim.Status()
		if status != sim.StatusRunning {
			delete(m.loops, id)
			if status.Terminal() {
				m.finalizeLocked(id, e)
			}
			m.mu.Unlock()
			return
		}

		snapshot := e.sim.Step()
		m.broadcastLocked(e, snapshot)
		if snapshot.Status.Terminal() {
			// The terminal snapshot just went out; only close the
			// channels.
			delete(m.loops, id)
			m.closeSubscribersLocked(id, e)
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		// Pace against the step cost so ticks land on the interval.
		if remaining := interval - m.clock.Since(start); remaining > 0 {
			m.clock.Sleep(remaining)
		}
	}
}

// broadcastLocked fans a snapshot out to every subscriber of the entry.
// Sends never block: a subscriber whose buffer is full skips this snapshot.
func (m *Manager) broadcastLocked(e *entry, snapshot sim.Snapshot) {
	for _, ch := range e.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// finalizeLocked broadcasts the final snapshot of a terminal simulation and
// closes every subscriber channel. Closing tells streaming handlers the run
// is over.
func (m *Manager) finalizeLocked(id string, e *entry) {
	if len(e.subscribers) == 0 {
		return
	}
	m.broadcastLocked(e, e.sim.Snapshot())
	m.closeSubscribersLocked(id, e)
}

func (m *Manager) closeSubscribersLocked(id string, e *entry) {
	if len(e.subscribers) == 0 {
		return
	}
	for token, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, token)
	}
	m.logf("simulation %s finished, subscribers closed", id)
}
