package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Pair is a bare employee-to-seat match, as produced by a RemoteMatcher.
type Pair struct {
	EmployeeID string `json:"employee_id"`
	SeatID     string `json:"seat_id"`
}

// RemoteMatcher is an optional external optimizer that can replace local
// matching for one day. Any error makes the engine fall back to the local
// method.
type RemoteMatcher interface {
	MatchDay(ctx context.Context, day Weekday, employees []Employee, seats []Seat, w Weights) ([]Pair, error)
}

// DayMatch is the outcome of matching one day.
type DayMatch struct {
	Day         Weekday
	Assignments []Assignment
	Method      Method
	// Degraded is set when a configured remote matcher failed and the local
	// method was used instead.
	Degraded bool
}

// Matcher pairs a day's attending employees with seats.
type Matcher struct {
	Scorer *Scorer
	// Threshold is the largest employee or seat count solved optimally.
	Threshold int
	Solver    Solver
}

// edge is a feasible, scored employee/seat pair.
type edge struct {
	e, s    int
	score   float64
	reasons map[string]float64
}

// Match solves one day locally. employees and seats must be sorted by ID.
// Employees without a feasible seat stay unmatched.
func (m Matcher) Match(day Weekday, employees []Employee, seats []Seat) DayMatch {
	edges := make([][]edge, len(employees))
	var rows []int // employees with at least one feasible seat
	for i, e := range employees {
		for j, s := range seats {
			if !Feasible(e, s) {
				continue
			}
			score, reasons := m.Scorer.Score(e, s)
			edges[i] = append(edges[i], edge{e: i, s: j, score: score, reasons: reasons})
		}
		if len(edges[i]) > 0 {
			rows = append(rows, i)
		}
	}

	method := MethodGreedy
	if m.Solver != SolverGreedy && len(rows) <= m.Threshold && len(seats) <= m.Threshold {
		method = MethodOptimal
	}

	var chosen []edge
	if method == MethodOptimal {
		chosen = optimal(edges, rows, len(seats))
	} else {
		chosen = greedy(edges, employees, seats)
	}

	out := make([]Assignment, 0, len(chosen))
	for _, c := range chosen {
		out = append(out, Assignment{
			EmployeeID: employees[c.e].ID,
			Day:        day,
			SeatID:     seats[c.s].ID,
			Score:      c.score,
			Reasons:    c.reasons,
		})
	}
	sortAssignments(out)
	return DayMatch{Day: day, Assignments: out, Method: method}
}

// optimal maximizes the number of seated employees first and total score
// second. Each feasible edge is lifted by a bonus larger than any possible
// score spread so that seating one more employee always wins; dummy columns
// (one per row) let an employee stay unseated at zero cost.
func optimal(edges [][]edge, rows []int, nSeats int) []edge {
	if len(rows) == 0 || nSeats == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		for _, ed := range edges[r] {
			lo = math.Min(lo, ed.score)
			hi = math.Max(hi, ed.score)
		}
	}
	bonus := float64(len(rows))*(hi-lo+1) + math.Abs(lo) + 1

	cols := nSeats + len(rows)
	cost := make([][]float64, len(rows))
	for ri, r := range rows {
		row := make([]float64, cols)
		for j := 0; j < nSeats; j++ {
			row[j] = forbidden
		}
		for _, ed := range edges[r] {
			row[ed.s] = -(ed.score + bonus)
		}
		cost[ri] = row
	}

	assign := hungarian(cost)
	var out []edge
	for ri, col := range assign {
		if col >= nSeats {
			continue
		}
		for _, ed := range edges[rows[ri]] {
			if ed.s == col {
				out = append(out, ed)
				break
			}
		}
	}
	return out
}

// greedy commits feasible pairs by score descending, then employee ID and
// seat ID ascending, whenever both endpoints are still free.
func greedy(edges [][]edge, employees []Employee, seats []Seat) []edge {
	var all []edge
	for _, row := range edges {
		all = append(all, row...)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if employees[a.e].ID != employees[b.e].ID {
			return employees[a.e].ID < employees[b.e].ID
		}
		return seats[a.s].ID < seats[b.s].ID
	})

	empUsed := make([]bool, len(employees))
	seatUsed := make([]bool, len(seats))
	var out []edge
	for _, ed := range all {
		if empUsed[ed.e] || seatUsed[ed.s] {
			continue
		}
		empUsed[ed.e] = true
		seatUsed[ed.s] = true
		out = append(out, ed)
	}
	return out
}

// FromPairs validates remotely produced pairs against the day's inputs and
// re-scores them locally so the response carries the same reasons as a local
// run.
func (m Matcher) FromPairs(day Weekday, employees []Employee, seats []Seat, pairs []Pair) ([]Assignment, error) {
	empIdx := make(map[string]int, len(employees))
	for i, e := range employees {
		empIdx[e.ID] = i
	}
	seatIdx := make(map[string]int, len(seats))
	for i, s := range seats {
		seatIdx[s.ID] = i
	}

	usedE := make(map[string]bool, len(pairs))
	usedS := make(map[string]bool, len(pairs))
	out := make([]Assignment, 0, len(pairs))
	for _, p := range pairs {
		ei, ok := empIdx[p.EmployeeID]
		if !ok {
			return nil, fmt.Errorf("remote pair references unknown employee %q", p.EmployeeID)
		}
		si, ok := seatIdx[p.SeatID]
		if !ok {
			return nil, fmt.Errorf("remote pair references unknown seat %q", p.SeatID)
		}
		if usedE[p.EmployeeID] || usedS[p.SeatID] {
			return nil, fmt.Errorf("remote pair %s/%s reuses an employee or seat", p.EmployeeID, p.SeatID)
		}
		if !Feasible(employees[ei], seats[si]) {
			return nil, fmt.Errorf("remote pair %s/%s violates a hard constraint", p.EmployeeID, p.SeatID)
		}
		usedE[p.EmployeeID] = true
		usedS[p.SeatID] = true
		score, reasons := m.Scorer.Score(employees[ei], seats[si])
		out = append(out, Assignment{EmployeeID: p.EmployeeID, Day: day, SeatID: p.SeatID, Score: score, Reasons: reasons})
	}
	sortAssignments(out)
	return out, nil
}

func sortAssignments(a []Assignment) {
	sort.Slice(a, func(i, j int) bool {
		if a[i].Day != a[j].Day {
			return a[i].Day.Index() < a[j].Day.Index()
		}
		return a[i].EmployeeID < a[j].EmployeeID
	})
}
