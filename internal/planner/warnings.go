package planner

import (
	"fmt"
	"sort"
)

// Detector evaluates policy rules over a finished schedule and its seat
// assignments. Each rule is evaluated per day and independently.
type Detector struct {
	ClusterFraction    float64
	ClusterMinZoneSize int
	ZoneMatchMinRate   float64
}

// Detect returns the rule violations found in the run. assignments must be
// keyed by day; employees and seats are looked up by ID.
func (d Detector) Detect(
	days []Weekday,
	capacity map[Weekday]int,
	schedule Schedule,
	assignments map[Weekday][]Assignment,
	employees map[string]Employee,
	seats map[string]Seat,
) []Warning {
	var out []Warning
	for _, day := range days {
		attending := schedule[day]
		dayAssign := assignments[day]

		if cap := capacity[day]; len(attending) > cap || len(dayAssign) > cap {
			out = append(out, Warning{
				Day:      day,
				Rule:     RuleCapacityExceeded,
				Details:  fmt.Sprintf("%d scheduled, %d seated, capacity %d", len(attending), len(dayAssign), cap),
				Severity: SeverityError,
			})
		}

		seated := make(map[string]Assignment, len(dayAssign))
		for _, a := range dayAssign {
			seated[a.EmployeeID] = a
		}
		for _, id := range attending {
			if _, ok := seated[id]; ok {
				continue
			}
			e := employees[id]
			w := Warning{Day: day, Rule: RuleUnseatedEmployee, Severity: SeverityWarn,
				Details: fmt.Sprintf("employee %s has no seat", id)}
			if e.NeedsAccessible {
				w.Severity = SeverityError
				w.Details = fmt.Sprintf("employee %s needs an accessible seat and none is available", id)
			}
			out = append(out, w)
		}

		out = append(out, d.clustering(day, dayAssign, employees, seats)...)

		withPref, matched := 0, 0
		for _, id := range attending {
			e := employees[id]
			if e.PreferredZone == "" {
				continue
			}
			withPref++
			if a, ok := seated[id]; ok && seats[a.SeatID].Zone == e.PreferredZone {
				matched++
			}
		}
		if withPref > 0 {
			if rate := float64(matched) / float64(withPref); rate < d.ZoneMatchMinRate {
				out = append(out, Warning{
					Day:      day,
					Rule:     RuleLowZoneMatchRate,
					Details:  fmt.Sprintf("%d of %d employees got their preferred zone (%.0f%%)", matched, withPref, rate*100),
					Severity: SeverityInfo,
				})
			}
		}
	}
	return out
}

// clustering flags zones where one team holds more than ClusterFraction of
// the seated employees.
func (d Detector) clustering(day Weekday, dayAssign []Assignment, employees map[string]Employee, seats map[string]Seat) []Warning {
	type zoneStat struct {
		total int
		teams map[string]int
	}
	zones := map[string]*zoneStat{}
	for _, a := range dayAssign {
		z := seats[a.SeatID].Zone
		st := zones[z]
		if st == nil {
			st = &zoneStat{teams: map[string]int{}}
			zones[z] = st
		}
		st.total++
		if t := employees[a.EmployeeID].Team; t != "" {
			st.teams[t]++
		}
	}

	names := make([]string, 0, len(zones))
	for z := range zones {
		names = append(names, z)
	}
	sort.Strings(names)

	var out []Warning
	for _, z := range names {
		st := zones[z]
		if st.total < d.ClusterMinZoneSize {
			continue
		}
		teams := make([]string, 0, len(st.teams))
		for t := range st.teams {
			teams = append(teams, t)
		}
		sort.Strings(teams)
		for _, t := range teams {
			share := float64(st.teams[t]) / float64(st.total)
			if share > d.ClusterFraction {
				out = append(out, Warning{
					Day:      day,
					Rule:     RuleTeamClustering,
					Details:  fmt.Sprintf("zone %q: team %q holds %d of %d seats on %s", z, t, st.teams[t], st.total, day),
					Severity: SeverityWarn,
				})
			}
		}
	}
	return out
}

// SortWarnings orders warnings by day, then severity (error first), then
// rule and details.
func SortWarnings(ws []Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if a.Day != b.Day {
			return a.Day.Index() < b.Day.Index()
		}
		if a.Severity != b.Severity {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Details < b.Details
	})
}
