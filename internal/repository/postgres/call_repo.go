package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callmate-backend/internal/domain"
	"callmate-backend/pkg/metrics"
)

// CallRepository handles call data operations. Calls own their embedded
// participant entries; saves replace the whole record in one transaction.
type CallRepository struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewCallRepository creates a new call repository. m may be nil.
func NewCallRepository(pool *pgxpool.Pool, m *metrics.Metrics) *CallRepository {
	return &CallRepository{pool: pool, metrics: m}
}

// Insert creates a new call record with its participant entries
func (r *CallRepository) Insert(ctx context.Context, call *domain.Call) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO calls (call_id, created_by, status, external_handle, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.Exec(ctx, query,
		call.CallID,
		call.CreatedBy,
		call.Status,
		call.ExternalHandle,
		call.StartedAt,
		call.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}

	if err := insertParticipants(ctx, tx, call); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.metrics.RecordDBQueryError("insert", "calls")
		return fmt.Errorf("failed to commit call insert: %w", err)
	}

	return nil
}

// GetByID retrieves a call with its full participant history
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `
		SELECT call_id, created_by, status, external_handle, started_at, ended_at
		FROM calls
		WHERE call_id = $1
	`

	call := &domain.Call{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&call.CallID,
		&call.CreatedBy,
		&call.Status,
		&call.ExternalHandle,
		&call.StartedAt,
		&call.EndedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCallNotFound
		}
		r.metrics.RecordDBQueryError("select", "calls")
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	participants, err := r.loadParticipants(ctx, callID)
	if err != nil {
		return nil, err
	}
	call.Participants = participants

	return call, nil
}

// Update saves a call with full-replace semantics: the calls row is
// updated and the participant entries are rewritten to match the record.
func (r *CallRepository) Update(ctx context.Context, call *domain.Call) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE calls
		SET created_by = $2, status = $3, external_handle = $4, ended_at = $5
		WHERE call_id = $1
	`

	tag, err := tx.Exec(ctx, query,
		call.CallID,
		call.CreatedBy,
		call.Status,
		call.ExternalHandle,
		call.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCallNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM call_participants WHERE call_id = $1`, call.CallID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	if err := insertParticipants(ctx, tx, call); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.metrics.RecordDBQueryError("update", "calls")
		return fmt.Errorf("failed to commit call update: %w", err)
	}

	return nil
}

// GetByParticipantOrCreator retrieves all calls where the user created the
// call or appears in its participant history, newest first
func (r *CallRepository) GetByParticipantOrCreator(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	query := `
		SELECT DISTINCT c.call_id, c.created_by, c.status, c.external_handle, c.started_at, c.ended_at
		FROM calls c
		LEFT JOIN call_participants cp ON c.call_id = cp.call_id
		WHERE c.created_by = $1 OR cp.user_id = $1
		ORDER BY c.started_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.metrics.RecordDBQueryError("select", "calls")
		return nil, fmt.Errorf("failed to get user calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		call := &domain.Call{}
		err := rows.Scan(
			&call.CallID,
			&call.CreatedBy,
			&call.Status,
			&call.ExternalHandle,
			&call.StartedAt,
			&call.EndedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
		ids = append(ids, call.CallID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user calls: %w", err)
	}

	if len(calls) == 0 {
		return calls, nil
	}

	// Attach participant histories in one pass
	byCall := make(map[uuid.UUID]*domain.Call, len(calls))
	for _, c := range calls {
		byCall[c.CallID] = c
	}

	pQuery := `
		SELECT call_id, user_id, joined_at, left_at
		FROM call_participants
		WHERE call_id = ANY($1)
		ORDER BY call_id, ordinal ASC
	`

	pRows, err := r.pool.Query(ctx, pQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer pRows.Close()

	for pRows.Next() {
		var callID uuid.UUID
		p := domain.Participant{}
		if err := pRows.Scan(&callID, &p.UserID, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if c, ok := byCall[callID]; ok {
			c.Participants = append(c.Participants, p)
		}
	}
	if err := pRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return calls, nil
}

// loadParticipants retrieves the participant history for one call in
// insertion order
func (r *CallRepository) loadParticipants(ctx context.Context, callID uuid.UUID) ([]domain.Participant, error) {
	query := `
		SELECT user_id, joined_at, left_at
		FROM call_participants
		WHERE call_id = $1
		ORDER BY ordinal ASC
	`

	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		r.metrics.RecordDBQueryError("select", "call_participants")
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		p := domain.Participant{}
		if err := rows.Scan(&p.UserID, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return participants, nil
}

// insertParticipants writes the call's participant entries, preserving
// slice order through the ordinal column
func insertParticipants(ctx context.Context, tx pgx.Tx, call *domain.Call) error {
	query := `
		INSERT INTO call_participants (call_id, user_id, joined_at, left_at, ordinal)
		VALUES ($1, $2, $3, $4, $5)
	`

	for i, p := range call.Participants {
		if _, err := tx.Exec(ctx, query, call.CallID, p.UserID, p.JoinedAt, p.LeftAt, i); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	return nil
}
