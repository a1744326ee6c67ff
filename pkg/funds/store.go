package funds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
)

var ErrReservationNotFound = errors.New("reservation not found")

// Store persists reservation records. Transition is the single-winner
// primitive: it moves a reservation from one state to another atomically
// and reports whether this caller won the transition.
type Store interface {
	Create(ctx context.Context, r *Reservation) error
	Transition(ctx context.Context, id uuid.UUID, from, to State) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*Reservation, error)
	// ListStaleActive returns ids of reservations still Active from before
	// the cutoff - candidates for recovery after a caller-side crash.
	ListStaleActive(ctx context.Context, before time.Time) ([]uuid.UUID, error)
}

// PgStore keeps reservations in postgres. The conditional UPDATE makes the
// Active->Committed / Active->Reverted race resolve to exactly one winner
// even across processes.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, r *Reservation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reservations (id, owner_id, asset, side, amount, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Owner, r.Asset.String(), r.Side.String(), r.Amount, string(r.State), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (s *PgStore) Transition(ctx context.Context, id uuid.UUID, from, to State) (bool, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE reservations SET state = $3 WHERE id = $1 AND state = $2`,
		id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("transition reservation %s: %w", id, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var (
		r        Reservation
		assetStr string
		sideStr  string
		stateStr string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, asset, side, amount, state, created_at
		 FROM reservations WHERE id = $1`, id).
		Scan(&r.ID, &r.Owner, &assetStr, &sideStr, &r.Amount, &stateStr, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	r.Asset = assetFromString(assetStr)
	r.Side = sideFromString(sideStr)
	r.State = State(stateStr)
	return &r, nil
}

func (s *PgStore) ListStaleActive(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM reservations WHERE state = $1 AND created_at < $2`,
		string(StateActive), before)
	if err != nil {
		return nil, fmt.Errorf("list stale reservations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stored enum values are always written by us, so parse failures here are
// not reachable with an intact table.
func assetFromString(s string) asset.Asset {
	a, _ := asset.Parse(s)
	return a
}

func sideFromString(s string) book.Side {
	side, _ := book.ParseSide(s)
	return side
}

// MemStore is an in-memory Store for tests and single-node development.
// The mutex gives the same single-winner guarantee the SQL conditional
// update does.
type MemStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Reservation
}

func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[uuid.UUID]*Reservation)}
}

func (s *MemStore) Create(_ context.Context, r *Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rows[r.ID] = &cp
	return nil
}

func (s *MemStore) Transition(_ context.Context, id uuid.UUID, from, to State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return false, ErrReservationNotFound
	}
	if row.State != from {
		return false, nil
	}
	row.State = to
	return true, nil
}

func (s *MemStore) Get(_ context.Context, id uuid.UUID) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *MemStore) ListStaleActive(_ context.Context, before time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, row := range s.rows {
		if row.State == StateActive && row.CreatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
