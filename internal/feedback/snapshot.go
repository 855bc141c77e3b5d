package feedback

import (
	"math"
	"sort"

	"github.com/tbourn/go-seat-planner/internal/planner"
)

// SeatStats is an employee's history with one seat.
type SeatStats struct {
	SeatID string  `json:"seat_id"`
	EMA    float64 `json:"ema"`
	Count  int     `json:"count"`
	// Zone and Window are the attributes captured with the latest entry that
	// carried any; HasAttributes is false when none did.
	Zone          string `json:"zone,omitempty"`
	Window        bool   `json:"window"`
	HasAttributes bool   `json:"has_attributes"`
}

// EmployeeStats is the consolidated satisfaction of one employee.
type EmployeeStats struct {
	EmployeeID string               `json:"employee_id"`
	EMA        float64              `json:"ema"`
	Count      int                  `json:"count"`
	LastDate   string               `json:"last_date"`
	LastScore  float64              `json:"last_score"`
	LowStreak  int                  `json:"low_streak"`
	Seats      map[string]SeatStats `json:"seats"`
}

// Alert is a low-satisfaction candidate. Delivering it is left to the caller.
type Alert struct {
	EmployeeID string  `json:"employee_id"`
	Streak     int     `json:"streak"`
	LastDate   string  `json:"last_date"`
	LastScore  float64 `json:"last_score"`
	EMA        float64 `json:"ema"`
}

// Snapshot is an immutable view of all statistics at one version.
type Snapshot struct {
	version   uint64
	lowStreak int
	employees map[string]*EmployeeStats
}

// Version increases with every published change; zero means empty.
func (s *Snapshot) Version() uint64 { return s.version }

// Employee returns a copy of one employee's statistics.
func (s *Snapshot) Employee(id string) (EmployeeStats, bool) {
	st, ok := s.employees[id]
	if !ok {
		return EmployeeStats{}, false
	}
	cp := *st
	cp.Seats = make(map[string]SeatStats, len(st.Seats))
	for k, v := range st.Seats {
		cp.Seats[k] = v
	}
	return cp, true
}

// Alerts lists employees whose trailing low-score streak reached the
// configured length, ordered by employee ID.
func (s *Snapshot) Alerts() []Alert {
	out := []Alert{}
	for _, st := range s.employees {
		if st.LowStreak < s.lowStreak {
			continue
		}
		out = append(out, Alert{
			EmployeeID: st.EmployeeID,
			Streak:     st.LowStreak,
			LastDate:   st.LastDate,
			LastScore:  st.LastScore,
			EMA:        st.EMA,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// View binds the snapshot to a seat inventory so that seats without captured
// attributes can still be related by signature.
func (s *Snapshot) View(inventory []planner.Seat) *View {
	seats := make(map[string]planner.Signature, len(inventory))
	for _, seat := range inventory {
		seats[seat.ID] = seat.Signature()
	}
	return &View{snap: s, inventory: seats}
}

// View implements planner.FeedbackView.
type View struct {
	snap      *Snapshot
	inventory map[string]planner.Signature
}

// Version reports the snapshot version the view was built from.
func (v *View) Version() uint64 { return v.snap.version }

// Signal maps the employee's mean seat EMA over seats with signature sig
// from the 1..5 scale onto [-1,1].
func (v *View) Signal(employeeID string, sig planner.Signature) (float64, bool) {
	st, ok := v.snap.employees[employeeID]
	if !ok {
		return 0, false
	}
	ids := make([]string, 0, len(st.Seats))
	for id := range st.Seats {
		ids = append(ids, id)
	}
	// fixed order keeps the float sum reproducible
	sort.Strings(ids)

	var sum float64
	var n int
	for _, id := range ids {
		ss := st.Seats[id]
		var got planner.Signature
		switch {
		case ss.HasAttributes:
			got = planner.Signature{Zone: ss.Zone, Window: ss.Window}
		default:
			inv, ok := v.inventory[id]
			if !ok {
				continue
			}
			got = inv
		}
		if got != sig {
			continue
		}
		sum += ss.EMA
		n++
	}
	if n == 0 {
		return 0, false
	}
	signal := (sum/float64(n) - 3) / 2
	return math.Max(-1, math.Min(1, signal)), true
}
