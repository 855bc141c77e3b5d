// Package planner implements the seat-planning engine: it selects which
// employees attend on which weekday, matches attending employees to seats,
// scores every match with an explainable breakdown and reports policy
// violations as warnings.
//
// The package is pure computation. It performs no I/O except through the
// optional RemoteMatcher, and every exported operation is deterministic for
// identical inputs and an identical feedback view.
package planner

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Weekday identifies a planning day. Values use the short English form.
type Weekday string

// Planning days. Weekends are not planned.
const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
)

// Week lists the plannable days in calendar order.
var Week = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Index returns the position of d within Week, or -1 when d is unknown.
func (d Weekday) Index() int {
	for i, w := range Week {
		if w == d {
			return i
		}
	}
	return -1
}

// sortDays orders days by their position in the week.
func sortDays(days []Weekday) {
	sort.Slice(days, func(i, j int) bool { return days[i].Index() < days[j].Index() })
}

// WorkMode is an employee's preferred way of working.
type WorkMode string

const (
	WorkModeOnsite WorkMode = "onsite"
	WorkModeHybrid WorkMode = "hybrid"
	WorkModeRemote WorkMode = "remote"
)

// Severity grades a Warning.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// rank orders severities from most to least severe.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarn:
		return 1
	default:
		return 2
	}
}

// Warning rule identifiers.
const (
	RuleCapacityExceeded      = "capacity_exceeded"
	RuleUnseatedEmployee      = "unseated_employee"
	RuleTeamClustering        = "team_clustering"
	RuleLowZoneMatchRate      = "low_zone_match_rate"
	RuleCapacityShortfall     = "capacity_shortfall"
	RuleAttendanceTargetUnmet = "attendance_target_unmet"
	RuleDepartmentCap         = "department_cap"
)

// Extension is the single typed extension point for employee attributes that
// are not part of the core model. New optional attributes belong here so the
// scorer stays a pure function of typed fields.
type Extension struct {
	// ProjectCount is the number of concurrent projects; it feeds a small,
	// capped penalty that lowers the employee's weight under seat contention.
	ProjectCount int `json:"project_count,omitempty"`
}

// Employee is the normalized, immutable view of one person for a run.
type Employee struct {
	ID              string    `json:"employee_id"`
	Name            string    `json:"full_name,omitempty"`
	Team            string    `json:"team,omitempty"`
	Department      string    `json:"department,omitempty"`
	Priority        int       `json:"priority_level"`
	WorkMode        WorkMode  `json:"preferred_work_mode"`
	NeedsAccessible bool      `json:"needs_accessible"`
	PreferWindow    bool      `json:"prefer_window"`
	PreferredZone   string    `json:"preferred_zone,omitempty"`
	PreferredDays   []Weekday `json:"preferred_days,omitempty"`
	OnsiteRatio     float64   `json:"onsite_ratio"`
	HasOnsiteRatio  bool      `json:"-"` // OnsiteRatio was given; 0 then means fully remote
	CommuteMinutes  float64   `json:"commute_minutes"`
	Extension       Extension `json:"extension"`
}

// Seat is the normalized, immutable view of one desk. A seat can be used by
// different employees on different days but by at most one per day.
type Seat struct {
	ID           string  `json:"seat_id"`
	Floor        int     `json:"floor"`
	Zone         string  `json:"zone,omitempty"`
	IsAccessible bool    `json:"is_accessible"`
	IsWindow     bool    `json:"is_window"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// Signature is the attribute set used to relate seats to one another when
// folding past satisfaction into scoring.
type Signature struct {
	Zone   string
	Window bool
}

// Signature returns the seat's attribute signature.
func (s Seat) Signature() Signature { return Signature{Zone: s.Zone, Window: s.IsWindow} }

// Capacity is either a single cap applied to every day or a per-day mapping.
// The zero value is unset.
type Capacity struct {
	uniform *int
	perDay  map[Weekday]int
}

// UniformCapacity returns a capacity of n for every day.
func UniformCapacity(n int) Capacity { return Capacity{uniform: &n} }

// PerDayCapacity returns a capacity defined per weekday.
func PerDayCapacity(m map[Weekday]int) Capacity {
	cp := make(map[Weekday]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Capacity{perDay: cp}
}

// IsSet reports whether a capacity was provided.
func (c Capacity) IsSet() bool { return c.uniform != nil || c.perDay != nil }

// IsPerDay reports whether the capacity uses the mapping form.
func (c Capacity) IsPerDay() bool { return c.perDay != nil }

// For returns the capacity of day. Days missing from a mapping have zero
// capacity; an unset capacity yields def.
func (c Capacity) For(day Weekday, def int) int {
	switch {
	case c.uniform != nil:
		return *c.uniform
	case c.perDay != nil:
		return c.perDay[day]
	default:
		return def
	}
}

// Days returns the days named by a mapping capacity in week order.
func (c Capacity) Days() []Weekday {
	out := make([]Weekday, 0, len(c.perDay))
	for d := range c.perDay {
		out = append(out, d)
	}
	sortDays(out)
	return out
}

// MarshalJSON encodes the capacity as an integer or an object.
func (c Capacity) MarshalJSON() ([]byte, error) {
	switch {
	case c.uniform != nil:
		return json.Marshal(*c.uniform)
	case c.perDay != nil:
		return json.Marshal(c.perDay)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts either `3` or `{"Mon": 3, "tuesday": 2}`. Day keys
// are normalized; unknown day names are rejected.
func (c *Capacity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = Capacity{}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = UniformCapacity(n)
		return nil
	}
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("capacity must be an integer or a per-day object: %w", err)
	}
	m := make(map[Weekday]int, len(raw))
	for k, v := range raw {
		d, err := ParseWeekday(k)
		if err != nil {
			return err
		}
		m[d] = v
	}
	*c = Capacity{perDay: m}
	return nil
}

// Schedule maps each planned day to the sorted IDs of attending employees.
type Schedule map[Weekday][]string

// Assignment pairs an employee with a seat on one day. Reasons records every
// named score contribution, zero-valued ones included.
type Assignment struct {
	EmployeeID string             `json:"employee_id"`
	Day        Weekday            `json:"day"`
	SeatID     string             `json:"seat_id"`
	Score      float64            `json:"score"`
	Reasons    map[string]float64 `json:"reasons"`
}

// Warning is a derived policy finding for one day.
type Warning struct {
	Day      Weekday  `json:"day"`
	Rule     string   `json:"rule"`
	Details  string   `json:"details,omitempty"`
	Severity Severity `json:"severity"`
}

// Method records how a day's seats were matched.
type Method string

const (
	MethodOptimal Method = "optimal"
	MethodGreedy  Method = "greedy"
	MethodRemote  Method = "remote"
)

// Meta carries run diagnostics. Its shape does not depend on the method used.
type Meta struct {
	Days            []Weekday          `json:"days"`
	Methods         map[Weekday]Method `json:"methods"`
	Degraded        bool               `json:"degraded"`
	FeedbackVersion uint64             `json:"feedback_version"`
	Attending       int                `json:"attending"`
	Seated          int                `json:"seated"`
	Unseated        int                `json:"unseated"`
	UnusedSeats     map[Weekday]int    `json:"unused_seats"`
}

// Result is the outcome of a planning run.
type Result struct {
	Assignments []Assignment `json:"assignments"`
	Warnings    []Warning    `json:"warnings"`
	Schedule    Schedule     `json:"schedule"`
	Meta        Meta         `json:"meta"`
}
