package planner

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Versioned is implemented by feedback views that carry a snapshot version.
type Versioned interface {
	Version() uint64
}

// Engine runs complete planning passes. It is safe for concurrent use; all
// per-run state lives on the stack of Plan.
type Engine struct {
	opts   Options
	remote RemoteMatcher
}

// New returns an Engine. remote may be nil, in which case matching is always
// local.
func New(opts Options, remote RemoteMatcher) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts, remote: remote}, nil
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Validate normalizes req without planning it.
func (e *Engine) Validate(req Request) (Input, error) {
	return Normalize(req, e.opts.DefaultCapacity)
}

// Plan schedules the week, matches every day and reports warnings. view is
// the feedback snapshot taken at the start of the run and may be nil.
//
// Only input validation and context cancellation fail a run; capacity and
// seating problems are reported as warnings and a failing remote matcher
// degrades to local matching.
func (e *Engine) Plan(ctx context.Context, req Request, view FeedbackView) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := e.Validate(req)
	if err != nil {
		return nil, err
	}

	sched := DayScheduler{Days: in.Days, Capacity: in.Capacity, DeptDayCapPct: e.opts.DeptDayCapPct}
	schedule, schedWarnings := sched.Schedule(in.Employees)

	byID := make(map[string]Employee, len(in.Employees))
	for _, emp := range in.Employees {
		byID[emp.ID] = emp
	}
	seatByID := make(map[string]Seat, len(in.Seats))
	for _, s := range in.Seats {
		seatByID[s.ID] = s
	}

	m := Matcher{Scorer: NewScorer(e.opts.Weights, view), Threshold: e.opts.OptimalThreshold, Solver: in.Solver}

	// Each goroutine owns one slot; no further synchronization is needed.
	matches := make([]DayMatch, len(in.Days))
	g, gctx := errgroup.WithContext(ctx)
	for i, day := range in.Days {
		attending := make([]Employee, 0, len(schedule[day]))
		for _, id := range schedule[day] {
			attending = append(attending, byID[id])
		}
		g.Go(func() error {
			matches[i] = e.matchDay(gctx, m, day, attending, in.Seats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Assignments: []Assignment{},
		Schedule:    schedule,
		Meta: Meta{
			Days:        in.Days,
			Methods:     make(map[Weekday]Method, len(in.Days)),
			UnusedSeats: make(map[Weekday]int, len(in.Days)),
		},
	}
	if v, ok := view.(Versioned); ok {
		res.Meta.FeedbackVersion = v.Version()
	}

	perDay := make(map[Weekday][]Assignment, len(in.Days))
	for _, dm := range matches {
		perDay[dm.Day] = dm.Assignments
		res.Assignments = append(res.Assignments, dm.Assignments...)
		res.Meta.Methods[dm.Day] = dm.Method
		res.Meta.Degraded = res.Meta.Degraded || dm.Degraded
		res.Meta.Attending += len(schedule[dm.Day])
		res.Meta.Seated += len(dm.Assignments)
		res.Meta.UnusedSeats[dm.Day] = len(in.Seats) - len(dm.Assignments)
	}
	res.Meta.Unseated = res.Meta.Attending - res.Meta.Seated
	sortAssignments(res.Assignments)

	det := Detector{
		ClusterFraction:    e.opts.ClusterFraction,
		ClusterMinZoneSize: e.opts.ClusterMinZoneSize,
		ZoneMatchMinRate:   e.opts.ZoneMatchMinRate,
	}
	warnings := det.Detect(in.Days, in.Capacity, schedule, perDay, byID, seatByID)
	warnings = append(warnings, schedWarnings...)
	SortWarnings(warnings)
	if warnings == nil {
		warnings = []Warning{}
	}
	res.Warnings = warnings
	return res, nil
}

// matchDay consults the remote matcher when one is configured and falls back
// to local matching on any failure.
func (e *Engine) matchDay(ctx context.Context, m Matcher, day Weekday, employees []Employee, seats []Seat) DayMatch {
	if e.remote == nil || len(employees) == 0 || len(seats) == 0 {
		return m.Match(day, employees, seats)
	}

	pairs, err := e.remote.MatchDay(ctx, day, employees, seats, e.opts.Weights)
	if err == nil {
		var out []Assignment
		if out, err = m.FromPairs(day, employees, seats, pairs); err == nil {
			return DayMatch{Day: day, Assignments: out, Method: MethodRemote}
		}
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// the run itself is being abandoned; Plan reports ctx.Err()
		return DayMatch{Day: day, Assignments: []Assignment{}, Method: MethodGreedy}
	}

	log.Warn().Err(err).Str("day", string(day)).Msg("remote matcher failed; using local matching")
	dm := m.Match(day, employees, seats)
	dm.Degraded = true
	return dm
}
