package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// hybridShare is the fraction of plan days targeted for hybrid employees that
// give no explicit onsite ratio.
const hybridShare = 0.6

// DayScheduler selects, per day, the employees that attend. It is
// sequential: earlier (higher priority) picks change the load seen by later
// ones.
type DayScheduler struct {
	Days     []Weekday
	Capacity map[Weekday]int
	// DeptDayCapPct limits each department to this share of a day's
	// capacity; zero disables the limit.
	DeptDayCapPct float64
}

// dayLoad tracks one day's attendance while the week is being filled.
type dayLoad struct {
	day      Weekday
	capacity int
	ids      []string
	depts    map[string]int
}

func (l *dayLoad) full() bool { return len(l.ids) >= l.capacity }

// ratio is the share of capacity already used. Zero-capacity days are
// always full and never reach this comparison.
func (l *dayLoad) ratio() float64 { return float64(len(l.ids)) / float64(l.capacity) }

// Schedule fills the week. Employees are processed by priority descending,
// ID ascending; each takes up to its target number of candidate days, always
// choosing the least loaded day relative to capacity.
func (s DayScheduler) Schedule(employees []Employee) (Schedule, []Warning) {
	loads := make(map[Weekday]*dayLoad, len(s.Days))
	for _, d := range s.Days {
		loads[d] = &dayLoad{day: d, capacity: s.Capacity[d], depts: map[string]int{}}
	}

	ordered := make([]Employee, len(employees))
	copy(ordered, employees)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	var warnings []Warning
	for _, e := range ordered {
		candidates := s.candidates(e)
		target := min(targetDays(e, len(s.Days)), len(candidates))
		if target == 0 {
			continue
		}

		picked := make(map[Weekday]bool, target)
		deptBlocked := map[Weekday]bool{}
		for len(picked) < target {
			var best *dayLoad
			for _, d := range candidates {
				l := loads[d]
				if picked[d] || l.full() {
					continue
				}
				if s.deptCapped(l, e.Department) {
					deptBlocked[d] = true
					continue
				}
				if best == nil || lessLoaded(l, best) {
					best = l
				}
			}
			if best == nil {
				break
			}
			picked[best.day] = true
			best.ids = append(best.ids, e.ID)
			if e.Department != "" {
				best.depts[e.Department]++
			}
		}

		switch {
		case len(picked) == 0:
			warnings = append(warnings, Warning{
				Day:      candidates[0],
				Rule:     RuleCapacityShortfall,
				Details:  fmt.Sprintf("employee %s (priority %d) dropped: candidate days %s at capacity", e.ID, e.Priority, joinDays(candidates)),
				Severity: SeverityWarn,
			})
		case len(picked) < target:
			warnings = append(warnings, Warning{
				Day:      firstUnpicked(candidates, picked),
				Rule:     RuleAttendanceTargetUnmet,
				Details:  fmt.Sprintf("employee %s scheduled %d of %d target days", e.ID, len(picked), target),
				Severity: SeverityInfo,
			})
		}
		for _, d := range candidates {
			if deptBlocked[d] && !picked[d] {
				warnings = append(warnings, Warning{
					Day:      d,
					Rule:     RuleDepartmentCap,
					Details:  fmt.Sprintf("employee %s skipped: department %s reached its daily share", e.ID, e.Department),
					Severity: SeverityInfo,
				})
			}
		}
	}

	out := make(Schedule, len(s.Days))
	for _, d := range s.Days {
		ids := append([]string(nil), loads[d].ids...)
		sort.Strings(ids)
		if ids == nil {
			ids = []string{}
		}
		out[d] = ids
	}
	return out, warnings
}

// candidates returns the employee's preferred days within the plan, or every
// plan day when none of the preferences apply.
func (s DayScheduler) candidates(e Employee) []Weekday {
	inPlan := make(map[Weekday]bool, len(s.Days))
	for _, d := range s.Days {
		inPlan[d] = true
	}
	var out []Weekday
	for _, d := range e.PreferredDays {
		if inPlan[d] {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = append(out, s.Days...)
	}
	return out
}

func (s DayScheduler) deptCapped(l *dayLoad, dept string) bool {
	if s.DeptDayCapPct <= 0 || dept == "" {
		return false
	}
	limit := max(int(math.Floor(float64(l.capacity)*s.DeptDayCapPct)), 1)
	return l.depts[dept] >= limit
}

// lessLoaded orders days by relative load, then absolute load, then week
// order.
func lessLoaded(a, b *dayLoad) bool {
	ra, rb := a.ratio(), b.ratio()
	if ra != rb {
		return ra < rb
	}
	if len(a.ids) != len(b.ids) {
		return len(a.ids) < len(b.ids)
	}
	return a.day.Index() < b.day.Index()
}

// targetDays converts an employee's onsite ratio (or, without one, its work
// mode) into a number of days out of n. An explicit ratio of 0 is no days.
func targetDays(e Employee, n int) int {
	if n == 0 {
		return 0
	}
	share := e.OnsiteRatio
	if e.HasOnsiteRatio && share == 0 {
		return 0
	}
	if share <= 0 {
		switch e.WorkMode {
		case WorkModeRemote:
			return 0
		case WorkModeOnsite:
			share = 1
		default:
			share = hybridShare
		}
	}
	return max(int(math.Round(share*float64(n))), 1)
}

func firstUnpicked(days []Weekday, picked map[Weekday]bool) Weekday {
	for _, d := range days {
		if !picked[d] {
			return d
		}
	}
	return days[0]
}

func joinDays(days []Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}
