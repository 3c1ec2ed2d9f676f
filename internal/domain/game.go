package domain

import "time"

type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
	GameStatusCancelled GameStatus = "cancelled"
)

// Game is the minimal view of a scheduled poker game the settlement engine needs.
type Game struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      GameStatus `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AcceptsTransactions reports whether buy-ins and cash-outs may be recorded.
func (g *Game) AcceptsTransactions() bool {
	return g.Status == GameStatusActive
}

// Start moves a scheduled game to active.
func (g *Game) Start(now time.Time) error {
	if g.Status != GameStatusScheduled {
		return ErrInvalidGameTransition
	}

	g.Status = GameStatusActive
	g.StartedAt = &now
	g.UpdatedAt = now

	return nil
}

// End moves an active game to completed.
func (g *Game) End(now time.Time) error {
	if g.Status != GameStatusActive {
		return ErrInvalidGameTransition
	}

	g.Status = GameStatusCompleted
	g.EndedAt = &now
	g.UpdatedAt = now

	return nil
}

// Clone returns a copy safe to use as an audit snapshot.
func (g *Game) Clone() *Game {
	c := *g
	return &c
}
