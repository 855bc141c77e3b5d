package planner

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCapacity_JSON(t *testing.T) {
	var c Capacity
	if err := json.Unmarshal([]byte(`3`), &c); err != nil {
		t.Fatalf("int form: %v", err)
	}
	if c.IsPerDay() || c.For(Friday, 50) != 3 {
		t.Fatalf("uniform capacity wrong: %+v", c)
	}

	if err := json.Unmarshal([]byte(`{"monday": 2, "TUE": 1}`), &c); err != nil {
		t.Fatalf("map form: %v", err)
	}
	if !c.IsPerDay() || c.For(Monday, 50) != 2 || c.For(Tuesday, 50) != 1 || c.For(Friday, 50) != 0 {
		t.Fatalf("per-day capacity wrong: %+v", c)
	}
	if got := c.Days(); !reflect.DeepEqual(got, []Weekday{Monday, Tuesday}) {
		t.Fatalf("days: %v", got)
	}
	b, _ := json.Marshal(c)
	if string(b) != `{"Mon":2,"Tue":1}` {
		t.Fatalf("marshal: %s", b)
	}

	if err := json.Unmarshal([]byte(`{"sunday": 1}`), &c); err == nil {
		t.Fatalf("weekend day must be rejected")
	}
	if err := json.Unmarshal([]byte(`"lots"`), &c); err == nil {
		t.Fatalf("string capacity must be rejected")
	}

	var unset Capacity
	if unset.IsSet() || unset.For(Monday, 50) != 50 {
		t.Fatalf("unset capacity must use the default")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	in, err := Normalize(Request{
		Employees: []RawEmployee{
			{EmployeeID: " b ", Team: " Core   Platform ", PreferredDays: []string{"friday", "MON", "mon"}},
			{EmployeeID: "a", PreferredWorkMode: "Office", ProjectCount: ptrI(2)},
		},
		Seats: []RawSeat{{SeatID: "s2"}, {SeatID: "s1", Floor: ptrI(3), X: ptrF(12.5)}},
	}, 7)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if in.Employees[0].ID != "a" || in.Employees[1].ID != "b" {
		t.Fatalf("employees not sorted: %+v", in.Employees)
	}
	b := in.Employees[1]
	if b.Team != "Core Platform" || b.WorkMode != WorkModeHybrid {
		t.Fatalf("b not normalized: %+v", b)
	}
	if !reflect.DeepEqual(b.PreferredDays, []Weekday{Monday, Friday}) {
		t.Fatalf("preferred days: %v", b.PreferredDays)
	}
	if a := in.Employees[0]; a.WorkMode != WorkModeOnsite || a.Extension.ProjectCount != 2 {
		t.Fatalf("a not normalized: %+v", a)
	}
	if in.Seats[0].ID != "s1" || in.Seats[0].Floor != 3 || in.Seats[0].X != 12.5 || in.Seats[1].Floor != 1 {
		t.Fatalf("seats: %+v", in.Seats)
	}
	if len(in.Days) != 5 || in.Capacity[Wednesday] != 7 {
		t.Fatalf("days/capacity: %v %v", in.Days, in.Capacity)
	}
	if in.Solver != SolverAuto {
		t.Fatalf("solver: %s", in.Solver)
	}
}

func TestNormalize_PlanDaysFromCapacityMap(t *testing.T) {
	in, err := Normalize(Request{Capacity: PerDayCapacity(map[Weekday]int{Thursday: 4, Tuesday: 2})}, 50)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !reflect.DeepEqual(in.Days, []Weekday{Tuesday, Thursday}) {
		t.Fatalf("days: %v", in.Days)
	}

	in, err = Normalize(Request{
		Capacity: PerDayCapacity(map[Weekday]int{Monday: 4}),
		Days:     []string{"wed", "Mon"},
	}, 50)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if in.Capacity[Monday] != 4 || in.Capacity[Wednesday] != 0 {
		t.Fatalf("days outside the map must have zero capacity: %v", in.Capacity)
	}
}

func TestNormalize_Rejects(t *testing.T) {
	cases := map[string]struct {
		req   Request
		field string
	}{
		"missing employee id": {Request{Employees: []RawEmployee{{}}}, "employees[0].employee_id"},
		"duplicate employee":  {Request{Employees: []RawEmployee{{EmployeeID: "x"}, {EmployeeID: "x"}}}, "employees[1].employee_id"},
		"missing seat id":     {Request{Seats: []RawSeat{{Zone: "A"}}}, "seats[0].seat_id"},
		"duplicate seat":      {Request{Seats: []RawSeat{{SeatID: "s"}, {SeatID: "s"}}}, "seats[1].seat_id"},
		"ratio":               {Request{Employees: []RawEmployee{{EmployeeID: "x", OnsiteRatio: ptrF(1.5)}}}, "employees[0].onsite_ratio"},
		"commute":             {Request{Employees: []RawEmployee{{EmployeeID: "x", CommuteMinutes: ptrF(-1)}}}, "employees[0].commute_minutes"},
		"work mode":           {Request{Employees: []RawEmployee{{EmployeeID: "x", PreferredWorkMode: "beach"}}}, "employees[0].preferred_work_mode"},
		"preferred day":       {Request{Employees: []RawEmployee{{EmployeeID: "x", PreferredDays: []string{"Sat"}}}}, "employees[0].preferred_days"},
		"floor":               {Request{Seats: []RawSeat{{SeatID: "s", Floor: ptrI(0)}}}, "seats[0].floor"},
		"coordinate":          {Request{Seats: []RawSeat{{SeatID: "s", Y: ptrF(101)}}}, "seats[0].y"},
		"negative capacity":   {Request{Capacity: UniformCapacity(-2)}, "capacity"},
		"negative map entry":  {Request{Capacity: PerDayCapacity(map[Weekday]int{Monday: 1, Friday: -1}), Days: []string{"Mon"}}, "capacity"},
		"plan day":            {Request{Days: []string{"funday"}}, "days"},
		"solver":              {Request{Solver: "simplex"}, "solver"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(c.req, 50)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if ve.Field != c.field {
				t.Fatalf("field: want %q, got %q", c.field, ve.Field)
			}
			if !errors.Is(err, ErrInvalidInput) || !strings.HasPrefix(err.Error(), "invalid ") {
				t.Fatalf("error shape: %v", err)
			}
		})
	}
}

func TestParseSolver(t *testing.T) {
	for in, want := range map[string]Solver{"": SolverAuto, "Hungarian": SolverAuto, "optimal": SolverAuto, " GREEDY ": SolverGreedy} {
		got, err := ParseSolver(in)
		if err != nil || got != want {
			t.Fatalf("%q: want %s, got %s (%v)", in, want, got, err)
		}
	}
}
