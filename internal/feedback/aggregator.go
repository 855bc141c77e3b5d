// Package feedback folds satisfaction feedback into per-employee statistics
// and publishes them as immutable snapshots for the planner.
//
// Writes go through a single writer (Apply, or Run draining Submit's queue).
// Readers call Snapshot, which is a single atomic load and never waits for a
// writer, so a planning run always sees the snapshot current at its start.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DateLayout is the accepted assignment date format.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidEntry is returned for entries that fail validation.
	ErrInvalidEntry = errors.New("invalid feedback entry")
	// ErrClosed is returned by Submit once Run has stopped.
	ErrClosed = errors.New("feedback aggregator stopped")
)

// Entry is one satisfaction record. Entries are keyed by (EmployeeID, Date,
// SeatID); a later entry with the same key replaces the earlier one.
type Entry struct {
	EmployeeID string
	Date       string
	SeatID     string
	Score      float64
	// SeatZone and SeatWindow describe the seat as the employee saw it.
	// They are optional; when missing, the planner's inventory is used.
	SeatZone   string
	SeatWindow *bool
}

type key struct {
	emp, date, seat string
}

func (e Entry) key() key { return key{e.EmployeeID, e.Date, e.SeatID} }

// Validate checks the identifying fields and the score range.
func (e Entry) Validate() error {
	switch {
	case e.EmployeeID == "":
		return fmt.Errorf("%w: employee_id is required", ErrInvalidEntry)
	case e.SeatID == "":
		return fmt.Errorf("%w: seat_id is required", ErrInvalidEntry)
	case e.Score < 1 || e.Score > 5 || math.IsNaN(e.Score):
		return fmt.Errorf("%w: satisfaction score must be within [1,5]", ErrInvalidEntry)
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: assignment_date must be YYYY-MM-DD", ErrInvalidEntry)
	}
	return nil
}

// Config tunes the aggregator.
type Config struct {
	// Alpha is the weight of a new score in the moving average.
	Alpha float64
	// LowScore is the threshold below which a score counts toward a streak.
	LowScore float64
	// LowStreak is the streak length that raises an alert.
	LowStreak int
	// QueueSize bounds Submit's buffer.
	QueueSize int
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{Alpha: 0.2, LowScore: 2.5, LowStreak: 3, QueueSize: 256}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = d.Alpha
	}
	if c.LowScore <= 0 {
		c.LowScore = d.LowScore
	}
	if c.LowStreak <= 0 {
		c.LowStreak = d.LowStreak
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}

// Aggregator maintains feedback statistics.
type Aggregator struct {
	cfg   Config
	queue chan Entry
	done  chan struct{}
	stop  sync.Once

	// closeMu is held shared by Submit while it enqueues; Run takes it
	// exclusively to set closed before the final drain.
	closeMu sync.RWMutex
	closed  bool

	mu      sync.Mutex // serializes writers
	entries map[string]map[key]Entry
	version uint64

	snap atomic.Pointer[Snapshot]
}

// New returns an empty Aggregator.
func New(cfg Config) *Aggregator {
	cfg = cfg.normalized()
	a := &Aggregator{
		cfg:     cfg,
		queue:   make(chan Entry, cfg.QueueSize),
		done:    make(chan struct{}),
		entries: map[string]map[key]Entry{},
	}
	a.snap.Store(&Snapshot{employees: map[string]*EmployeeStats{}, lowStreak: cfg.LowStreak})
	return a
}

// Snapshot returns the current immutable snapshot.
func (a *Aggregator) Snapshot() *Snapshot { return a.snap.Load() }

// Apply folds entries synchronously and publishes one new snapshot. Invalid
// entries are skipped and reported in the returned error.
func (a *Aggregator) Apply(entries ...Entry) error {
	var errs []error
	a.mu.Lock()
	defer a.mu.Unlock()

	touched := map[string]bool{}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		m := a.entries[e.EmployeeID]
		if m == nil {
			m = map[key]Entry{}
			a.entries[e.EmployeeID] = m
		}
		m[e.key()] = e
		touched[e.EmployeeID] = true
	}
	if len(touched) > 0 {
		a.publish(touched)
	}
	return errors.Join(errs...)
}

// publish rebuilds the stats of the touched employees and swaps in a new
// snapshot. Callers hold a.mu.
func (a *Aggregator) publish(touched map[string]bool) {
	prev := a.snap.Load()
	next := &Snapshot{
		employees: make(map[string]*EmployeeStats, len(prev.employees)+len(touched)),
		lowStreak: a.cfg.LowStreak,
	}
	for id, st := range prev.employees {
		next.employees[id] = st
	}
	for id := range touched {
		next.employees[id] = a.fold(id)
	}
	a.version++
	next.version = a.version
	a.snap.Store(next)
}

// fold recomputes one employee's statistics from all of its entries in
// (date, seat) order.
func (a *Aggregator) fold(empID string) *EmployeeStats {
	list := make([]Entry, 0, len(a.entries[empID]))
	for _, e := range a.entries[empID] {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		return list[i].SeatID < list[j].SeatID
	})

	st := &EmployeeStats{EmployeeID: empID, Seats: map[string]SeatStats{}}
	for _, e := range list {
		st.EMA = ema(st.EMA, e.Score, st.Count == 0, a.cfg.Alpha)
		st.Count++
		st.LastDate = e.Date
		st.LastScore = e.Score
		if e.Score < a.cfg.LowScore {
			st.LowStreak++
		} else {
			st.LowStreak = 0
		}

		ss := st.Seats[e.SeatID]
		ss.SeatID = e.SeatID
		ss.EMA = ema(ss.EMA, e.Score, ss.Count == 0, a.cfg.Alpha)
		ss.Count++
		if e.SeatZone != "" || e.SeatWindow != nil {
			ss.Zone = e.SeatZone
			ss.Window = e.SeatWindow != nil && *e.SeatWindow
			ss.HasAttributes = true
		}
		st.Seats[e.SeatID] = ss
	}
	return st
}

func ema(prev, x float64, first bool, alpha float64) float64 {
	if first {
		return x
	}
	return alpha*x + (1-alpha)*prev
}

// Submit queues e for the writer goroutine. It blocks only while the queue
// is full, and gives up when ctx ends.
func (a *Aggregator) Submit(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	a.closeMu.RLock()
	defer a.closeMu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- e:
		return nil
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled. Entries still buffered at that
// point are applied before Run returns.
func (a *Aggregator) Run(ctx context.Context) {
	log.Info().Int("queue_size", a.cfg.QueueSize).Msg("feedback aggregator started")
	defer func() {
		a.stop.Do(func() { close(a.done) })
		a.closeMu.Lock()
		a.closed = true
		a.closeMu.Unlock()
		a.drain()
		log.Info().Uint64("version", a.Snapshot().Version()).Msg("feedback aggregator stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-a.queue:
			batch := []Entry{e}
		more:
			for len(batch) < cap(a.queue) {
				select {
				case next := <-a.queue:
					batch = append(batch, next)
				default:
					break more
				}
			}
			if err := a.Apply(batch...); err != nil {
				log.Warn().Err(err).Msg("feedback entries skipped")
			}
		}
	}
}

func (a *Aggregator) drain() {
	var batch []Entry
	for {
		select {
		case e := <-a.queue:
			batch = append(batch, e)
		default:
			if len(batch) > 0 {
				_ = a.Apply(batch...)
			}
			return
		}
	}
}
