package planner

import (
	"errors"
	"math"
)

// Normalization scales for the bounded soft terms.
const (
	// PriorityScale is the priority level at which the priority term reaches
	// half of its weight.
	PriorityScale = 5.0
	// CommuteScale is the commute, in minutes, at which the commute penalty
	// reaches half of its weight.
	CommuteScale = 60.0
	// MaxPenalizedProjects caps the project-count penalty.
	MaxPenalizedProjects = 5
)

// Weights are the scorer's configuration constants. All values are
// non-negative magnitudes; penalties are subtracted by the scorer.
type Weights struct {
	Zone              float64 `json:"w_zone" mapstructure:"zone"`
	Window            float64 `json:"w_window" mapstructure:"window"`
	Accessible        float64 `json:"w_accessible" mapstructure:"accessible"`
	AccessibleReserve float64 `json:"w_accessible_reserve" mapstructure:"accessible_reserve"`
	Priority          float64 `json:"w_priority" mapstructure:"priority"`
	Commute           float64 `json:"w_commute" mapstructure:"commute"`
	ProjectPenalty    float64 `json:"w_project_penalty" mapstructure:"project_penalty"`
	Feedback          float64 `json:"w_feedback" mapstructure:"feedback"`
}

// DefaultWeights returns the stock weights.
func DefaultWeights() Weights {
	return Weights{
		Zone:              0.5,
		Window:            1.0,
		Accessible:        1.5,
		AccessibleReserve: 0.25,
		Priority:          0.15,
		Commute:           0.15,
		ProjectPenalty:    0.03,
		Feedback:          0.4,
	}
}

// Validate checks signs and that the bounded priority and commute terms
// together stay below the zone and window weights.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Zone, w.Window, w.Accessible, w.AccessibleReserve, w.Priority, w.Commute, w.ProjectPenalty, w.Feedback} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("weights must be finite and >= 0")
		}
	}
	if w.Priority+w.Commute >= math.Min(w.Zone, w.Window) {
		return errors.New("priority + commute weights must stay below the zone and window weights")
	}
	return nil
}

// Options configures an Engine.
type Options struct {
	Weights Weights `mapstructure:"weights"`
	// OptimalThreshold is the largest employee or seat count matched with
	// the optimal method.
	OptimalThreshold int `mapstructure:"optimal_threshold"`
	// ClusterFraction is the team share above which a zone is clustered.
	ClusterFraction float64 `mapstructure:"cluster_fraction"`
	// ClusterMinZoneSize is the smallest seated group evaluated for clustering.
	// The default of 1 evaluates every zone.
	ClusterMinZoneSize int `mapstructure:"cluster_min_zone_size"`
	// ZoneMatchMinRate is the preferred-zone hit rate below which a day is noted.
	ZoneMatchMinRate float64 `mapstructure:"zone_match_min_rate"`
	// DeptDayCapPct limits any department to this share of a day's capacity.
	// Zero disables the cap.
	DeptDayCapPct float64 `mapstructure:"dept_day_cap_pct"`
	// DefaultCapacity applies when a request carries no capacity.
	DefaultCapacity int `mapstructure:"default_capacity"`
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		Weights:            DefaultWeights(),
		OptimalThreshold:   256,
		ClusterFraction:    0.6,
		ClusterMinZoneSize: 1,
		ZoneMatchMinRate:   0.5,
		DeptDayCapPct:      0,
		DefaultCapacity:    50,
	}
}

// Validate checks that opts is usable.
func (o Options) Validate() error {
	if err := o.Weights.Validate(); err != nil {
		return err
	}
	if o.OptimalThreshold < 0 {
		return errors.New("optimal threshold must be >= 0")
	}
	if o.ClusterFraction <= 0 || o.ClusterFraction > 1 {
		return errors.New("cluster fraction must be in (0,1]")
	}
	if o.ClusterMinZoneSize < 1 {
		return errors.New("cluster min zone size must be >= 1")
	}
	if o.ZoneMatchMinRate < 0 || o.ZoneMatchMinRate > 1 {
		return errors.New("zone match min rate must be in [0,1]")
	}
	if o.DeptDayCapPct < 0 || o.DeptDayCapPct > 1 {
		return errors.New("department day cap must be in [0,1]")
	}
	if o.DefaultCapacity < 0 {
		return errors.New("default capacity must be >= 0")
	}
	return nil
}
