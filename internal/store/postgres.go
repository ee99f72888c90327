package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"retail-sim/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const uniqueViolation = "23505"

// PostgresStore keeps each weekly state as a JSONB snapshot, one row per session week.
type PostgresStore struct {
	pool *pgxpool.Pool
	sem  *semaphore.Weighted
	log  zerolog.Logger
}

// NewPostgresStore wraps pool. maxTx bounds concurrent write transactions.
func NewPostgresStore(pool *pgxpool.Pool, maxTx int64, log zerolog.Logger) *PostgresStore {
	if maxTx <= 0 {
		maxTx = 10
	}
	return &PostgresStore{pool: pool, sem: semaphore.NewWeighted(maxTx), log: log}
}

var _ core.StateStore = (*PostgresStore)(nil)

// withTx runs fn inside a transaction, rolling back on any error.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer s.sem.Release(1)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func scanState(row pgx.Row) (*core.WeeklyState, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	st, err := core.DecodeWeeklyState(raw)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string, week int) (*core.WeeklyState, error) {
	st, err := scanState(s.pool.QueryRow(ctx,
		`SELECT state FROM weekly_states WHERE session_id = $1 AND week_number = $2`, sessionID, week))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s week %d: %w", sessionID, week, core.ErrWeekNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load week %d: %w", week, err)
	}
	return st, nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, sessionID string) (*core.WeeklyState, error) {
	st, err := scanState(s.pool.QueryRow(ctx,
		`SELECT state FROM weekly_states WHERE session_id = $1 ORDER BY week_number DESC LIMIT 1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrWeekNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest week: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) GetAll(ctx context.Context, sessionID string) ([]*core.WeeklyState, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT state FROM weekly_states WHERE session_id = $1 ORDER BY week_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weeks: %w", err)
	}
	defer rows.Close()

	var out []*core.WeeklyState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode week: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, st *core.WeeklyState) (*core.WeeklyState, error) {
	if err := checkStates(st); err != nil {
		return nil, err
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return insertState(ctx, tx, st)
	})
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

func insertState(ctx context.Context, tx pgx.Tx, st *core.WeeklyState) error {
	raw, err := core.EncodeWeeklyState(st)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO weekly_states (id, session_id, week_number, is_committed, state, created_at, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		st.ID, st.SessionID, st.WeekNumber, st.IsCommitted, raw, st.CreatedAt, st.CommittedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("session %s week %d: %w", st.SessionID, st.WeekNumber, core.ErrDuplicateWeek)
	}
	if err != nil {
		return fmt.Errorf("failed to insert week %d: %w", st.WeekNumber, err)
	}
	return nil
}

// Update locks the draft row, applies the patch and writes the snapshot back.
func (s *PostgresStore) Update(ctx context.Context, id string, patch core.StatePatch) (*core.WeeklyState, error) {
	var out *core.WeeklyState
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanState(tx.QueryRow(ctx, `SELECT state FROM weekly_states WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("state %s: %w", id, core.ErrWeekNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load state %s: %w", id, err)
		}
		if cur.IsCommitted {
			return fmt.Errorf("state %s: %w", id, core.ErrWeekCommitted)
		}
		next := core.ApplyPatch(cur, patch)
		if err := next.CheckIntegrity(); err != nil {
			return err
		}
		raw, err := core.EncodeWeeklyState(next)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE weekly_states SET state = $2 WHERE id = $1`, id, raw); err != nil {
			return fmt.Errorf("failed to update state %s: %w", id, err)
		}
		out = next
		return nil
	})
	return out, err
}

// CommitWeek writes the committed snapshot, the next draft and the session in one transaction.
func (s *PostgresStore) CommitWeek(ctx context.Context, committed, next *core.WeeklyState, session *core.GameSession) error {
	if err := checkStates(committed, next); err != nil {
		return err
	}
	raw, err := core.EncodeWeeklyState(committed)
	if err != nil {
		return err
	}
	result, err := marshalResult(session.Result)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE weekly_states SET state = $3, is_committed = true, committed_at = $4
			WHERE session_id = $1 AND week_number = $2 AND is_committed = false`,
			committed.SessionID, committed.WeekNumber, raw, committed.CommittedAt)
		if err != nil {
			return fmt.Errorf("failed to commit week %d: %w", committed.WeekNumber, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("session %s week %d: %w", committed.SessionID, committed.WeekNumber, core.ErrWeekCommitted)
		}
		if next != nil {
			if err := insertState(ctx, tx, next); err != nil {
				return err
			}
		}
		tag, err = tx.Exec(ctx, `
			UPDATE game_sessions SET current_week = $2, status = $3, result = $4, updated_at = $5
			WHERE id = $1`,
			session.ID, session.CurrentWeek, string(session.Status), result, session.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update session %s: %w", session.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("session %s: %w", session.ID, core.ErrSessionNotFound)
		}
		return nil
	})
}

func marshalResult(r *core.SeasonResult) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode season result: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, gs *core.GameSession) error {
	result, err := marshalResult(gs.Result)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO game_sessions (id, player_name, catalog_version, current_week, status, result, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			gs.ID, gs.PlayerName, gs.CatalogVersion, gs.CurrentWeek, string(gs.Status), result, gs.CreatedAt, gs.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

const sessionColumns = `id, player_name, catalog_version, current_week, status, result, created_at, updated_at`

func scanSession(row pgx.Row) (*core.GameSession, error) {
	var (
		gs     core.GameSession
		status string
		result []byte
	)
	if err := row.Scan(&gs.ID, &gs.PlayerName, &gs.CatalogVersion, &gs.CurrentWeek, &status, &result, &gs.CreatedAt, &gs.UpdatedAt); err != nil {
		return nil, err
	}
	gs.Status = core.SessionStatus(status)
	if len(result) > 0 {
		var r core.SeasonResult
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("failed to decode season result: %w", err)
		}
		gs.Result = &r
	}
	return &gs, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*core.GameSession, error) {
	gs, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return gs, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]*core.GameSession, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM game_sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []*core.GameSession
	for rows.Next() {
		gs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}
