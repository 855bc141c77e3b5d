package planner

import (
	"reflect"
	"testing"
)

func TestHungarian_Square(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	got := hungarian(cost)
	if want := []int{1, 0, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestHungarian_Rectangular(t *testing.T) {
	cost := [][]float64{
		{9, 1, 9, 9},
		{9, 9, 9, 2},
	}
	got := hungarian(cost)
	if want := []int{1, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestHungarian_Empty(t *testing.T) {
	if got := hungarian(nil); got != nil {
		t.Fatalf("want nil, got %v", got)
	}
}

// contention: the highest single score would steal the only seat another
// employee can use.
func contention() ([]Employee, []Seat, Weights) {
	w := DefaultWeights()
	w.Accessible = 0
	emps := []Employee{
		{ID: "A", PreferWindow: true},
		{ID: "B", NeedsAccessible: true},
	}
	seats := []Seat{
		{ID: "S1", IsAccessible: true, IsWindow: true},
		{ID: "S2"},
	}
	return emps, seats, w
}

func TestMatch_OptimalSeatsMoreThanGreedy(t *testing.T) {
	emps, seats, w := contention()
	sc := NewScorer(w, nil)

	opt := Matcher{Scorer: sc, Threshold: 256}.Match(Monday, emps, seats)
	if opt.Method != MethodOptimal || len(opt.Assignments) != 2 {
		t.Fatalf("optimal: %+v", opt)
	}
	gr := Matcher{Scorer: sc, Threshold: 256, Solver: SolverGreedy}.Match(Monday, emps, seats)
	if gr.Method != MethodGreedy || len(gr.Assignments) != 1 {
		t.Fatalf("greedy: %+v", gr)
	}
	if gr.Assignments[0].EmployeeID != "A" || gr.Assignments[0].SeatID != "S1" {
		t.Fatalf("greedy must commit the top pair first, got %+v", gr.Assignments[0])
	}
}

func TestMatch_ThresholdSwitchesToGreedy(t *testing.T) {
	emps, seats, w := contention()
	dm := Matcher{Scorer: NewScorer(w, nil), Threshold: 1}.Match(Tuesday, emps, seats)
	if dm.Method != MethodGreedy {
		t.Fatalf("want greedy above threshold, got %s", dm.Method)
	}
}

func TestMatch_OptimalPrefersCardinalityOverNegativeScores(t *testing.T) {
	w := DefaultWeights()
	emps := []Employee{{ID: "A", CommuteMinutes: 120}, {ID: "B", CommuteMinutes: 90}}
	seats := []Seat{{ID: "S1", IsAccessible: true}, {ID: "S2", IsAccessible: true}}
	dm := Matcher{Scorer: NewScorer(w, nil), Threshold: 256}.Match(Monday, emps, seats)
	if len(dm.Assignments) != 2 {
		t.Fatalf("every employee must be seated even with negative scores: %+v", dm.Assignments)
	}
}

func TestMatch_MoreEmployeesThanSeats(t *testing.T) {
	w := DefaultWeights()
	emps := []Employee{
		{ID: "A", PreferredZone: "N"},
		{ID: "B", PreferredZone: "S"},
		{ID: "C"},
	}
	seats := []Seat{{ID: "S1", Zone: "N"}, {ID: "S2", Zone: "S"}}
	dm := Matcher{Scorer: NewScorer(w, nil), Threshold: 256}.Match(Monday, emps, seats)
	got := map[string]string{}
	for _, a := range dm.Assignments {
		got[a.EmployeeID] = a.SeatID
	}
	want := map[string]string{"A": "S1", "B": "S2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestMatch_SortedByEmployee(t *testing.T) {
	emps := []Employee{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	seats := []Seat{{ID: "S3"}, {ID: "S1"}, {ID: "S2"}}
	for _, solver := range []Solver{SolverAuto, SolverGreedy} {
		dm := Matcher{Scorer: NewScorer(DefaultWeights(), nil), Threshold: 256, Solver: solver}.Match(Monday, emps, seats)
		for i := 1; i < len(dm.Assignments); i++ {
			if dm.Assignments[i-1].EmployeeID >= dm.Assignments[i].EmployeeID {
				t.Fatalf("%s: assignments not sorted: %+v", solver, dm.Assignments)
			}
		}
	}
}

func TestFromPairs_Validation(t *testing.T) {
	emps, seats, w := contention()
	m := Matcher{Scorer: NewScorer(w, nil)}

	if _, err := m.FromPairs(Monday, emps, seats, []Pair{{"A", "S2"}, {"B", "S1"}}); err != nil {
		t.Fatalf("valid pairs rejected: %v", err)
	}
	bad := [][]Pair{
		{{"Z", "S1"}},
		{{"A", "S9"}},
		{{"A", "S2"}, {"A", "S1"}},
		{{"B", "S2"}},
	}
	for i, pairs := range bad {
		if _, err := m.FromPairs(Monday, emps, seats, pairs); err == nil {
			t.Fatalf("case %d: want error for %v", i, pairs)
		}
	}
}
