package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Therapist program names as stored in the therapists table.
const (
	ProgramLimitedPermit = "Limited Permit"
	ProgramMFT           = "MFT"
	ProgramMHC           = "MHC"
	ProgramMSW           = "MSW"
)

// ErrProfileNotFound is returned when no therapist matches the calendar ID.
var ErrProfileNotFound = errors.New("policy: therapist profile not found")

// Profile is a therapist record as the engine sees it. The calendar ID is
// the therapist's email; the rest of the clinic's therapist data (license
// state, insurance panels, intake links) lives outside this subsystem.
type Profile struct {
	CalendarID          string      `json:"email"`
	Name                string      `json:"name"`
	Program             string      `json:"program"`
	BookingGrid         BookingGrid `json:"booking_grid,omitempty"`
	AcceptingNewClients bool        `json:"accepting_new_clients"`
}

// ProfileStore looks up therapist profiles by calendar ID.
type ProfileStore interface {
	GetProfile(ctx context.Context, calendarID string) (*Profile, error)
}

// profileDB defines the database interface needed by PGStore.
type profileDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore reads therapist profiles from Postgres.
type PGStore struct {
	db profileDB
}

// NewPGStore creates a profile store over a pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("policy: pgx pool required for profile store")
	}
	return &PGStore{db: pool}
}

// NewPGStoreWithDB allows injecting a mock database for testing.
func NewPGStoreWithDB(db profileDB) *PGStore {
	return &PGStore{db: db}
}

// GetProfile returns the therapist whose email matches calendarID, or
// ErrProfileNotFound when no row exists.
func (s *PGStore) GetProfile(ctx context.Context, calendarID string) (*Profile, error) {
	var (
		p    Profile
		grid string
	)
	err := s.db.QueryRow(ctx, `
		SELECT email, name, program, booking_grid, accepting_new_clients
		FROM therapists WHERE email = $1`, calendarID).Scan(
		&p.CalendarID, &p.Name, &p.Program, &grid, &p.AcceptingNewClients)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("policy: profile query failed: %w", err)
	}
	if grid == string(GridFlexiblePeriods) {
		p.BookingGrid = GridFlexiblePeriods
	} else {
		p.BookingGrid = GridHourBlocks
	}
	return &p, nil
}
