package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/stagegraph/internal/domain"
)

// StageRepo хранит текущее состояние stages (без истории).
type StageRepo struct {
	pool *pgxpool.Pool
}

// NewStageRepo создаёт новый StageRepo.
func NewStageRepo(pool *pgxpool.Pool) *StageRepo {
	return &StageRepo{pool: pool}
}

const stageColumns = `
	id, execution_id, ref_id, type, name, status, context, outputs,
	parent_stage_id, synthetic_stage_owner, parallel, start_time, end_time
`

// Create сохраняет новый stage.
func (r *StageRepo) Create(ctx context.Context, stage *domain.Stage) error {
	return insertStage(ctx, r.pool, stage)
}

// CreateWithSubStages сохраняет stage и его sub-stages одной транзакцией:
// либо записаны все, либо ни один.
func (r *StageRepo) CreateWithSubStages(ctx context.Context, stage *domain.Stage, subStages []*domain.Stage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertStage(ctx, tx, stage); err != nil {
		return err
	}
	if err := insertSubStages(ctx, tx, subStages); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// execer — общее у pgxpool.Pool и pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertStage(ctx context.Context, db execer, stage *domain.Stage) error {
	contextJSON, outputsJSON, err := marshalState(stage)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = db.Exec(ctx, query,
		stage.ID,
		stage.ExecutionID,
		nullString(stage.RefID),
		stage.Type,
		nullString(stage.Name),
		stage.Status,
		contextJSON,
		outputsJSON,
		stage.ParentStageID,
		nullString(string(stage.SyntheticStageOwner)),
		stage.Parallel,
		stage.StartTime,
		stage.EndTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: stage %s", ErrAlreadyExists, stage.ID)
		}
		return fmt.Errorf("insert stage: %w", err)
	}
	return nil
}

// GetByID возвращает stage по ID.
func (r *StageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE id = $1`
	return scanStage(r.pool.QueryRow(ctx, query, id))
}

// ListChildren возвращает sub-stages родителя в порядке создания.
func (r *StageRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE parent_stage_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, parentID)
}

// ListByExecution возвращает все stages выполнения.
func (r *StageRepo) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]*domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE execution_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, executionID)
}

// UpdateContext сохраняет контекст, outputs, статус и время stage.
func (r *StageRepo) UpdateContext(ctx context.Context, stage *domain.Stage) error {
	contextJSON, outputsJSON, err := marshalState(stage)
	if err != nil {
		return err
	}

	query := `
		UPDATE stages
		SET context = $2, outputs = $3, status = $4, start_time = $5, end_time = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		stage.ID,
		contextJSON,
		outputsJSON,
		stage.Status,
		stage.StartTime,
		stage.EndTime,
	)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSubStages сохраняет sub-stages одной транзакцией.
func (r *StageRepo) CreateSubStages(ctx context.Context, stages []*domain.Stage) error {
	if len(stages) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertSubStages(ctx, tx, stages); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// insertSubStages пишет stages одним batch; уже записанные пропускаются.
func insertSubStages(ctx context.Context, tx pgx.Tx, stages []*domain.Stage) error {
	if len(stages) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stages {
		contextJSON, outputsJSON, err := marshalState(s)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO stages (`+stageColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING
		`,
			s.ID, s.ExecutionID, nullString(s.RefID), s.Type, nullString(s.Name), s.Status,
			contextJSON, outputsJSON, s.ParentStageID, nullString(string(s.SyntheticStageOwner)),
			s.Parallel, s.StartTime, s.EndTime,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert sub-stages: %w", err)
	}
	return nil
}

// --- Helpers ---

func (r *StageRepo) list(ctx context.Context, query string, arg any) ([]*domain.Stage, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]*domain.Stage, 0)
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func scanStage(row pgx.Row) (*domain.Stage, error) {
	var (
		stage                    domain.Stage
		contextJSON, outputsJSON []byte
		refID, name, owner       *string
	)

	err := row.Scan(
		&stage.ID,
		&stage.ExecutionID,
		&refID,
		&stage.Type,
		&name,
		&stage.Status,
		&contextJSON,
		&outputsJSON,
		&stage.ParentStageID,
		&owner,
		&stage.Parallel,
		&stage.StartTime,
		&stage.EndTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan stage: %w", err)
	}

	if refID != nil {
		stage.RefID = *refID
	}
	if name != nil {
		stage.Name = *name
	}
	if owner != nil {
		stage.SyntheticStageOwner = domain.Phase(*owner)
	}

	var ctxMap map[string]any
	if err := json.Unmarshal(contextJSON, &ctxMap); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	stage.Context = domain.NewStageContext(ctxMap)

	var outputs map[string]any
	if len(outputsJSON) > 0 {
		if err := json.Unmarshal(outputsJSON, &outputs); err != nil {
			return nil, fmt.Errorf("unmarshal outputs: %w", err)
		}
	}
	stage.SetOutputs(outputs)

	return &stage, nil
}

func marshalState(stage *domain.Stage) (contextJSON, outputsJSON []byte, err error) {
	contextJSON, err = json.Marshal(stage.Context.Clone())
	if err != nil {
		return nil, nil, fmt.Errorf("marshal context: %w", err)
	}
	outputs := stage.Outputs
	if outputs == nil {
		outputs = map[string]any{}
	}
	outputsJSON, err = json.Marshal(outputs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal outputs: %w", err)
	}
	return contextJSON, outputsJSON, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
