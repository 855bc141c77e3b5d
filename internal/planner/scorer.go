package planner

import "math"

// Reason keys reported in Assignment.Reasons.
const (
	ReasonZoneMatch          = "zone_match"
	ReasonWindowMatch        = "window_match"
	ReasonAccessibilityMatch = "accessibility_match"
	ReasonAccessibleReserve  = "accessible_reserve"
	ReasonPriority           = "priority"
	ReasonCommute            = "commute"
	ReasonProjectPenalty     = "project_penalty"
	ReasonFeedback           = "feedback"
)

// FeedbackView exposes past satisfaction to the scorer. Signal returns a value
// in [-1,1] for seats with the given signature; ok is false when the
// employee has no relevant history.
type FeedbackView interface {
	Signal(employeeID string, sig Signature) (signal float64, ok bool)
}

// Scorer computes explainable compatibility scores. It is a pure function of
// its weights, its feedback view and the scored pair.
type Scorer struct {
	w  Weights
	fb FeedbackView
}

// NewScorer returns a Scorer. fb may be nil.
func NewScorer(w Weights, fb FeedbackView) *Scorer {
	return &Scorer{w: w, fb: fb}
}

// Feasible reports whether s satisfies e's hard constraints.
func Feasible(e Employee, s Seat) bool {
	return !e.NeedsAccessible || s.IsAccessible
}

// Score returns the total score of seating e at s and the per-reason
// breakdown. The caller must only score feasible pairs.
func (sc *Scorer) Score(e Employee, s Seat) (float64, map[string]float64) {
	r := map[string]float64{
		ReasonZoneMatch:          0,
		ReasonWindowMatch:        0,
		ReasonAccessibilityMatch: 0,
		ReasonAccessibleReserve:  0,
		ReasonPriority:           0,
		ReasonCommute:            0,
		ReasonProjectPenalty:     0,
		ReasonFeedback:           0,
	}

	if e.PreferredZone != "" && s.Zone == e.PreferredZone {
		r[ReasonZoneMatch] = sc.w.Zone
	}
	if e.PreferWindow && s.IsWindow {
		r[ReasonWindowMatch] = sc.w.Window
	}
	if s.IsAccessible {
		if e.NeedsAccessible {
			r[ReasonAccessibilityMatch] = sc.w.Accessible
		} else {
			r[ReasonAccessibleReserve] = -sc.w.AccessibleReserve
		}
	}
	if e.Priority > 0 {
		p := float64(e.Priority)
		r[ReasonPriority] = sc.w.Priority * p / (p + PriorityScale)
	}
	if e.CommuteMinutes > 0 {
		r[ReasonCommute] = -sc.w.Commute * e.CommuteMinutes / (e.CommuteMinutes + CommuteScale)
	}
	if n := e.Extension.ProjectCount; n > 0 {
		r[ReasonProjectPenalty] = -sc.w.ProjectPenalty * float64(min(n, MaxPenalizedProjects))
	}
	if sc.fb != nil {
		if sig, ok := sc.fb.Signal(e.ID, s.Signature()); ok {
			r[ReasonFeedback] = sc.w.Feedback * clamp(sig, -1, 1)
		}
	}

	// Sum in a fixed key order so totals are bit-for-bit reproducible.
	var total float64
	for _, k := range reasonOrder {
		r[k] = round9(r[k])
		total += r[k]
	}
	return round9(total), r
}

var reasonOrder = []string{
	ReasonZoneMatch,
	ReasonWindowMatch,
	ReasonAccessibilityMatch,
	ReasonAccessibleReserve,
	ReasonPriority,
	ReasonCommute,
	ReasonProjectPenalty,
	ReasonFeedback,
}

func round9(v float64) float64 {
	r := math.Round(v*1e9) / 1e9
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
