package planner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Solver selects the local matching strategy requested by a caller.
type Solver string

const (
	// SolverAuto uses the optimal method up to the configured threshold and
	// greedy above it.
	SolverAuto Solver = "auto"
	// SolverGreedy always uses the greedy heuristic.
	SolverGreedy Solver = "greedy"
)

// RawEmployee is the loosely-typed employee record accepted on the wire.
type RawEmployee struct {
	EmployeeID        string   `json:"employee_id"`
	FullName          string   `json:"full_name,omitempty"`
	Team              string   `json:"team,omitempty"`
	Department        string   `json:"department,omitempty"`
	PriorityLevel     int      `json:"priority_level,omitempty"`
	PreferredWorkMode string   `json:"preferred_work_mode,omitempty"`
	NeedsAccessible   bool     `json:"needs_accessible,omitempty"`
	PreferWindow      bool     `json:"prefer_window,omitempty"`
	PreferredZone     string   `json:"preferred_zone,omitempty"`
	PreferredDays     []string `json:"preferred_days,omitempty"`
	OnsiteRatio       *float64 `json:"onsite_ratio,omitempty"`
	CommuteMinutes    *float64 `json:"commute_minutes,omitempty"`
	ProjectCount      *int     `json:"project_count,omitempty"`
}

// RawSeat is the loosely-typed seat record accepted on the wire.
type RawSeat struct {
	SeatID       string   `json:"seat_id"`
	Floor        *int     `json:"floor,omitempty"`
	Zone         string   `json:"zone,omitempty"`
	IsAccessible bool     `json:"is_accessible,omitempty"`
	IsWindow     bool     `json:"is_window,omitempty"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
}

// Request is a planning request as received from a caller.
type Request struct {
	Employees []RawEmployee `json:"employees"`
	Seats     []RawSeat     `json:"seats"`
	Capacity  Capacity      `json:"capacity"`
	Days      []string      `json:"days,omitempty"`
	Solver    string        `json:"solver,omitempty"`
}

// Input is a normalized request. Employees and seats are sorted by ID.
type Input struct {
	Employees []Employee
	Seats     []Seat
	Days      []Weekday
	Capacity  map[Weekday]int
	Solver    Solver
}

var (
	lower      = cases.Lower(language.Und)
	spaceRunRE = regexp.MustCompile(`\s+`)
)

// ParseWeekday accepts full or abbreviated day names in any case.
func ParseWeekday(s string) (Weekday, error) {
	v := lower.String(strings.TrimSpace(s))
	if len(v) >= 3 {
		switch v[:3] {
		case "mon":
			return Monday, nil
		case "tue":
			return Tuesday, nil
		case "wed":
			return Wednesday, nil
		case "thu":
			return Thursday, nil
		case "fri":
			return Friday, nil
		}
	}
	return "", invalid("day", fmt.Sprintf("unknown weekday %q", s))
}

// ParseWorkMode accepts onsite, hybrid or remote in any case. An empty value
// means hybrid.
func ParseWorkMode(s string) (WorkMode, error) {
	v := strings.ReplaceAll(lower.String(strings.TrimSpace(s)), "-", "")
	switch v {
	case "", "hybrid":
		return WorkModeHybrid, nil
	case "onsite", "office":
		return WorkModeOnsite, nil
	case "remote":
		return WorkModeRemote, nil
	}
	return "", invalid("preferred_work_mode", fmt.Sprintf("unknown work mode %q", s))
}

// ParseSolver accepts auto, optimal, hungarian or greedy. Optimal and
// hungarian mean auto: the size threshold still applies.
func ParseSolver(s string) (Solver, error) {
	switch lower.String(strings.TrimSpace(s)) {
	case "", "auto", "optimal", "hungarian":
		return SolverAuto, nil
	case "greedy":
		return SolverGreedy, nil
	}
	return "", invalid("solver", fmt.Sprintf("unknown solver %q", s))
}

// normalizeLabel trims a zone or team label and collapses inner whitespace so
// that "Zone  A " and "Zone A" compare equal.
func normalizeLabel(s string) string {
	return spaceRunRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Normalize validates req and converts it into an Input. defaultCapacity is
// used when req carries no capacity.
func Normalize(req Request, defaultCapacity int) (Input, error) {
	var in Input

	solver, err := ParseSolver(req.Solver)
	if err != nil {
		return in, err
	}
	in.Solver = solver

	if in.Days, err = planDays(req); err != nil {
		return in, err
	}
	in.Capacity = make(map[Weekday]int, len(in.Days))
	for _, d := range in.Days {
		c := req.Capacity.For(d, defaultCapacity)
		if c < 0 {
			return in, invalid("capacity", fmt.Sprintf("capacity for %s must be >= 0", d))
		}
		in.Capacity[d] = c
	}
	if req.Capacity.IsPerDay() {
		for _, d := range req.Capacity.Days() {
			if req.Capacity.For(d, 0) < 0 {
				return in, invalid("capacity", fmt.Sprintf("capacity for %s must be >= 0", d))
			}
		}
	}

	seen := make(map[string]struct{}, len(req.Employees))
	in.Employees = make([]Employee, 0, len(req.Employees))
	for i, raw := range req.Employees {
		e, err := normalizeEmployee(raw)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Field = fmt.Sprintf("employees[%d].%s", i, ve.Field)
			}
			return in, err
		}
		if _, dup := seen[e.ID]; dup {
			return in, invalid(fmt.Sprintf("employees[%d].employee_id", i), fmt.Sprintf("duplicate id %q", e.ID))
		}
		seen[e.ID] = struct{}{}
		in.Employees = append(in.Employees, e)
	}

	seen = make(map[string]struct{}, len(req.Seats))
	in.Seats = make([]Seat, 0, len(req.Seats))
	for i, raw := range req.Seats {
		s, err := normalizeSeat(raw)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Field = fmt.Sprintf("seats[%d].%s", i, ve.Field)
			}
			return in, err
		}
		if _, dup := seen[s.ID]; dup {
			return in, invalid(fmt.Sprintf("seats[%d].seat_id", i), fmt.Sprintf("duplicate id %q", s.ID))
		}
		seen[s.ID] = struct{}{}
		in.Seats = append(in.Seats, s)
	}

	sort.Slice(in.Employees, func(i, j int) bool { return in.Employees[i].ID < in.Employees[j].ID })
	sort.Slice(in.Seats, func(i, j int) bool { return in.Seats[i].ID < in.Seats[j].ID })
	return in, nil
}

// planDays resolves the requested days: explicit days first, then the keys of
// a per-day capacity, then the whole week.
func planDays(req Request) ([]Weekday, error) {
	if len(req.Days) == 0 {
		if req.Capacity.IsPerDay() {
			return req.Capacity.Days(), nil
		}
		out := make([]Weekday, len(Week))
		copy(out, Week)
		return out, nil
	}
	set := make(map[Weekday]struct{}, len(req.Days))
	out := make([]Weekday, 0, len(req.Days))
	for _, s := range req.Days {
		d, err := ParseWeekday(s)
		if err != nil {
			return nil, invalid("days", err.(*ValidationError).Reason)
		}
		if _, ok := set[d]; ok {
			continue
		}
		set[d] = struct{}{}
		out = append(out, d)
	}
	sortDays(out)
	return out, nil
}

func normalizeEmployee(raw RawEmployee) (Employee, error) {
	e := Employee{
		ID:              strings.TrimSpace(raw.EmployeeID),
		Name:            strings.TrimSpace(raw.FullName),
		Team:            normalizeLabel(raw.Team),
		Department:      normalizeLabel(raw.Department),
		Priority:        raw.PriorityLevel,
		NeedsAccessible: raw.NeedsAccessible,
		PreferWindow:    raw.PreferWindow,
		PreferredZone:   normalizeLabel(raw.PreferredZone),
	}
	if e.ID == "" {
		return e, invalid("employee_id", "required")
	}

	mode, err := ParseWorkMode(raw.PreferredWorkMode)
	if err != nil {
		return e, err
	}
	e.WorkMode = mode

	if raw.OnsiteRatio != nil {
		r := *raw.OnsiteRatio
		if r < 0 || r > 1 {
			return e, invalid("onsite_ratio", "must be within [0,1]")
		}
		e.OnsiteRatio, e.HasOnsiteRatio = r, true
	}
	if raw.CommuteMinutes != nil {
		if *raw.CommuteMinutes < 0 {
			return e, invalid("commute_minutes", "must be >= 0")
		}
		e.CommuteMinutes = *raw.CommuteMinutes
	}
	if raw.ProjectCount != nil {
		if *raw.ProjectCount < 0 {
			return e, invalid("project_count", "must be >= 0")
		}
		e.Extension.ProjectCount = *raw.ProjectCount
	}

	days := make(map[Weekday]struct{}, len(raw.PreferredDays))
	for _, s := range raw.PreferredDays {
		d, err := ParseWeekday(s)
		if err != nil {
			return e, invalid("preferred_days", err.(*ValidationError).Reason)
		}
		if _, ok := days[d]; ok {
			continue
		}
		days[d] = struct{}{}
		e.PreferredDays = append(e.PreferredDays, d)
	}
	sortDays(e.PreferredDays)
	return e, nil
}

func normalizeSeat(raw RawSeat) (Seat, error) {
	s := Seat{
		ID:           strings.TrimSpace(raw.SeatID),
		Floor:        1,
		Zone:         normalizeLabel(raw.Zone),
		IsAccessible: raw.IsAccessible,
		IsWindow:     raw.IsWindow,
	}
	if s.ID == "" {
		return s, invalid("seat_id", "required")
	}
	if raw.Floor != nil {
		if *raw.Floor < 1 {
			return s, invalid("floor", "must be a positive integer")
		}
		s.Floor = *raw.Floor
	}
	for _, p := range []struct {
		name string
		v    *float64
		dst  *float64
	}{{"x", raw.X, &s.X}, {"y", raw.Y, &s.Y}} {
		if p.v == nil {
			continue
		}
		if *p.v < 0 || *p.v > 100 {
			return s, invalid(p.name, "must be a percentage within [0,100]")
		}
		*p.dst = *p.v
	}
	return s, nil
}
