// Package optimizer is a client for an external seat-assignment service that
// speaks the /assign contract. It implements planner.RemoteMatcher so the
// engine can use it as an optional accelerator; every failure is reported as
// ErrUnavailable and the engine falls back to local matching.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-seat-planner/internal/planner"
)

// ErrUnavailable wraps every transport, status or decoding failure.
var ErrUnavailable = errors.New("optimizer unavailable")

const (
	downKey = "down"
	// maxBody bounds the response size read from the service.
	maxBody = 8 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Cooldown is how long the client short-circuits after a failure.
	Cooldown time.Duration
}

// Client calls the remote optimizer.
type Client struct {
	cfg   Config
	http  *http.Client
	state *cache.Cache
}

// New returns a Client, or nil when no base URL is configured.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		state: cache.New(cfg.Cooldown, 2*cfg.Cooldown),
	}
}

type wireEmployee struct {
	EmployeeID        string   `json:"employee_id"`
	FullName          string   `json:"full_name,omitempty"`
	Department        string   `json:"department,omitempty"`
	Team              string   `json:"team,omitempty"`
	PriorityLevel     int      `json:"priority_level"`
	PreferredWorkMode string   `json:"preferred_work_mode"`
	NeedsAccessible   bool     `json:"needs_accessible"`
	PreferWindow      bool     `json:"prefer_window"`
	PreferredZone     string   `json:"preferred_zone,omitempty"`
	PreferredDays     []string `json:"preferred_days,omitempty"`
	OnsiteRatio       float64  `json:"onsite_ratio"`
	CommuteMinutes    float64  `json:"commute_minutes"`
	ProjectCount      int      `json:"project_count"`
}

type wireSeat struct {
	SeatID       string  `json:"seat_id"`
	Floor        int     `json:"floor"`
	Zone         string  `json:"zone,omitempty"`
	IsAccessible bool    `json:"is_accessible"`
	IsWindow     bool    `json:"is_window"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// AssignRequest is the /assign request body.
type AssignRequest struct {
	Employees []wireEmployee  `json:"employees"`
	Seats     []wireSeat      `json:"seats"`
	Weights   planner.Weights `json:"weights"`
	Solver    string          `json:"solver"`
	Day       planner.Weekday `json:"day,omitempty"`
}

// AssignResult is one remote assignment. Score and reasons are ignored by
// the planner, which re-scores every pair locally.
type AssignResult struct {
	EmployeeID string             `json:"employee_id"`
	SeatID     string             `json:"seat_id"`
	Score      float64            `json:"score"`
	Reasons    map[string]float64 `json:"reasons"`
}

// AssignResponse is the /assign response body.
type AssignResponse struct {
	Assignments         []AssignResult `json:"assignments"`
	UnassignedEmployees []string       `json:"unassigned_employees"`
	UnusedSeats         []string       `json:"unused_seats"`
	Meta                map[string]any `json:"meta"`
}

func buildRequest(day planner.Weekday, employees []planner.Employee, seats []planner.Seat, w planner.Weights) AssignRequest {
	req := AssignRequest{
		Employees: make([]wireEmployee, 0, len(employees)),
		Seats:     make([]wireSeat, 0, len(seats)),
		Weights:   w,
		Solver:    "hungarian",
		Day:       day,
	}
	for _, e := range employees {
		days := make([]string, len(e.PreferredDays))
		for i, d := range e.PreferredDays {
			days[i] = string(d)
		}
		req.Employees = append(req.Employees, wireEmployee{
			EmployeeID:        e.ID,
			FullName:          e.Name,
			Department:        e.Department,
			Team:              e.Team,
			PriorityLevel:     e.Priority,
			PreferredWorkMode: string(e.WorkMode),
			NeedsAccessible:   e.NeedsAccessible,
			PreferWindow:      e.PreferWindow,
			PreferredZone:     e.PreferredZone,
			PreferredDays:     days,
			OnsiteRatio:       e.OnsiteRatio,
			CommuteMinutes:    e.CommuteMinutes,
			ProjectCount:      e.Extension.ProjectCount,
		})
	}
	for _, s := range seats {
		req.Seats = append(req.Seats, wireSeat{
			SeatID: s.ID, Floor: s.Floor, Zone: s.Zone,
			IsAccessible: s.IsAccessible, IsWindow: s.IsWindow, X: s.X, Y: s.Y,
		})
	}
	return req
}

// MatchDay asks the service to match one day.
func (c *Client) MatchDay(ctx context.Context, day planner.Weekday, employees []planner.Employee, seats []planner.Seat, w planner.Weights) ([]planner.Pair, error) {
	if cause, down := c.state.Get(downKey); down {
		return nil, fmt.Errorf("%w: cooling down after: %v", ErrUnavailable, cause)
	}

	var resp AssignResponse
	if err := c.do(ctx, http.MethodPost, "/assign", buildRequest(day, employees, seats, w), &resp); err != nil {
		c.markDown(err)
		return nil, err
	}
	pairs := make([]planner.Pair, 0, len(resp.Assignments))
	for _, a := range resp.Assignments {
		pairs = append(pairs, planner.Pair{EmployeeID: a.EmployeeID, SeatID: a.SeatID})
	}
	return pairs, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		c.markDown(err)
		return err
	}
	c.state.Delete(downKey)
	return nil
}

func (c *Client) markDown(err error) {
	// a caller abandoning its own request says nothing about the service
	if errors.Is(err, context.Canceled) {
		return
	}
	c.state.Set(downKey, err.Error(), cache.DefaultExpiration)
	log.Warn().Err(err).Dur("cooldown", c.cfg.Cooldown).Msg("optimizer marked unavailable")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}
