package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/tree"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL. Where the file backend
// serializes behind a process mutex, this backend takes a row lock on the
// owning plan for every mutation, so concurrent writers against the same
// plan queue up instead of losing updates.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	now    func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &PostgresStore{
		pool:   pool,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Init creates the schema when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS plans (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			build_context  TEXT NOT NULL DEFAULT '',
			creator        TEXT NOT NULL DEFAULT '',
			estimate_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id                  TEXT PRIMARY KEY,
			plan_id             TEXT NOT NULL REFERENCES plans(id),
			parent_id           TEXT,
			title               TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			acceptance_criteria TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL,
			tags                JSONB NOT NULL DEFAULT '[]',
			task_groups         JSONB NOT NULL DEFAULT '[]',
			estimate_hours      DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at          TIMESTAMPTZ NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL,
			completed_at        TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS tasks_plan_id_idx ON tasks(plan_id);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreLoad, "failed to initialize postgres schema", err)
	}
	return nil
}

// ListPlans implements Store.
func (s *PostgresStore) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, build_context, creator, estimate_hours, created_at, updated_at
		FROM plans ORDER BY created_at`)
	if err != nil {
		return nil, errors.NewStoreLoadError(fmt.Errorf("list plans: %w", err))
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, errors.NewStoreLoadError(err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreLoadError(err)
	}

	for _, p := range plans {
		flat, err := s.planTasks(ctx, s.pool, p.ID, false)
		if err != nil {
			return nil, err
		}
		p.Tasks = tree.BuildHierarchy(flat, s.logger)
	}
	return plans, nil
}

// GetPlan implements Store.
func (s *PostgresStore) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, build_context, creator, estimate_hours, created_at, updated_at
		FROM plans WHERE id = $1`, planID)

	p, err := scanPlan(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewPlanNotFoundError(planID)
		}
		return nil, errors.NewStoreLoadError(fmt.Errorf("get plan %s: %w", planID, err))
	}

	flat, err := s.planTasks(ctx, s.pool, planID, false)
	if err != nil {
		return nil, err
	}
	p.Tasks = tree.BuildHierarchy(flat, s.logger)
	return p, nil
}

// CreatePlan implements Store.
func (s *PostgresStore) CreatePlan(ctx context.Context, p *plan.Plan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO plans (id, name, description, build_context, creator, estimate_hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.BuildContext, p.Creator, p.EstimateHours, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errors.NewPlanDuplicateError(p.ID)
		}
		return errors.NewStoreSaveError(fmt.Errorf("create plan %s: %w", p.ID, err))
	}

	for _, task := range tree.Flatten(p.Tasks) {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStoreSaveError(err)
	}
	return nil
}

// UpsertPlan implements Store.
func (s *PostgresStore) UpsertPlan(ctx context.Context, p *plan.Plan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO plans (id, name, description, build_context, creator, estimate_hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			build_context = EXCLUDED.build_context,
			creator = EXCLUDED.creator,
			estimate_hours = EXCLUDED.estimate_hours,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Description, p.BuildContext, p.Creator, p.EstimateHours, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return errors.NewStoreSaveError(fmt.Errorf("upsert plan %s: %w", p.ID, err))
	}

	// Whole-forest replacement: the document is the unit of consistency.
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE plan_id = $1`, p.ID); err != nil {
		return errors.NewStoreSaveError(err)
	}
	for _, task := range tree.Flatten(p.Tasks) {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStoreSaveError(err)
	}
	return nil
}

// AddTask implements Store.
func (s *PostgresStore) AddTask(ctx context.Context, t *plan.Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	defer tx.Rollback(ctx)

	// Lock the owning plan row; all task mutations for a plan serialize here.
	var planID string
	err = tx.QueryRow(ctx, `SELECT id FROM plans WHERE id = $1 FOR UPDATE`, t.PlanID).Scan(&planID)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return errors.NewPlanNotFoundError(t.PlanID)
		}
		return errors.NewStoreSaveError(err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists)
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	if exists {
		return errors.New(errors.ErrCodeTaskInvalid,
			fmt.Sprintf("a task with id %s already exists", t.ID))
	}

	if t.ParentID != "" {
		var parentExists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND plan_id = $2)`,
			t.ParentID, t.PlanID).Scan(&parentExists)
		if err != nil {
			return errors.NewStoreSaveError(err)
		}
		if !parentExists {
			return errors.NewParentNotFoundError(t.ParentID, t.PlanID)
		}
	}

	if err := insertTask(ctx, tx, t); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE plans SET updated_at = $2 WHERE id = $1`, t.PlanID, s.now()); err != nil {
		return errors.NewStoreSaveError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStoreSaveError(err)
	}
	return nil
}

// FindTask implements Store.
func (s *PostgresStore) FindTask(ctx context.Context, taskID string) (*plan.Task, error) {
	var planID string
	err := s.pool.QueryRow(ctx, `SELECT plan_id FROM tasks WHERE id = $1`, taskID).Scan(&planID)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewTaskNotFoundError(taskID)
		}
		return nil, errors.NewStoreLoadError(err)
	}

	flat, err := s.planTasks(ctx, s.pool, planID, false)
	if err != nil {
		return nil, err
	}

	forest := tree.BuildHierarchy(flat, s.logger)
	task := tree.FindByID(forest, taskID)
	if task == nil {
		return nil, errors.NewConsistencyError(
			fmt.Sprintf("task %s present in index but absent after hierarchy build", taskID))
	}
	return task, nil
}

// UpdateTaskStatus implements Store.
func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID string, status plan.Status) (*plan.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.NewStoreSaveError(err)
	}
	defer tx.Rollback(ctx)

	var planID string
	err = tx.QueryRow(ctx, `SELECT plan_id FROM tasks WHERE id = $1`, taskID).Scan(&planID)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewTaskNotFoundError(taskID)
		}
		return nil, errors.NewStoreLoadError(err)
	}

	if err := tx.QueryRow(ctx, `SELECT id FROM plans WHERE id = $1 FOR UPDATE`, planID).Scan(&planID); err != nil {
		return nil, errors.NewStoreLoadError(err)
	}

	flat, err := s.planTasks(ctx, tx, planID, true)
	if err != nil {
		return nil, err
	}

	forest := tree.BuildHierarchy(flat, s.logger)
	task := tree.FindByID(forest, taskID)
	if task == nil {
		return nil, errors.NewConsistencyError(
			fmt.Sprintf("task %s disappeared between lookup and locked read", taskID))
	}

	now := s.now()
	before := snapshotStatuses(forest)
	task.SetStatus(status, now)

	if status == plan.StatusCompleted {
		cascaded := tree.CascadeCompletion(forest, taskID, now)
		if len(cascaded) > 0 {
			s.logger.Info("cascading completion promoted parents",
				"task_id", taskID, "completed_parents", cascaded)
		}
	}

	for _, changed := range tree.Flatten(forest) {
		if before[changed.ID] == changed.Status {
			continue
		}
		_, err := tx.Exec(ctx, `
			UPDATE tasks SET status = $2, updated_at = $3, completed_at = $4
			WHERE id = $1`,
			changed.ID, string(changed.Status), changed.UpdatedAt, changed.CompletedAt)
		if err != nil {
			return nil, errors.NewStoreSaveError(err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE plans SET updated_at = $2 WHERE id = $1`, planID, now); err != nil {
		return nil, errors.NewStoreSaveError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.NewStoreSaveError(err)
	}
	return task.Clone(), nil
}

func snapshotStatuses(forest []*plan.Task) map[string]plan.Status {
	snapshot := make(map[string]plan.Status)
	for _, task := range tree.Flatten(forest) {
		snapshot[task.ID] = task.Status
	}
	return snapshot
}

// querier abstracts pgxpool.Pool and pgx.Tx for reads.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// planTasks loads a plan's tasks flat, optionally locking the rows.
func (s *PostgresStore) planTasks(ctx context.Context, q querier, planID string, forUpdate bool) ([]*plan.Task, error) {
	query := `
		SELECT id, plan_id, parent_id, title, description, acceptance_criteria,
		       status, tags, task_groups, estimate_hours, created_at, updated_at, completed_at
		FROM tasks WHERE plan_id = $1 ORDER BY created_at`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, planID)
	if err != nil {
		return nil, errors.NewStoreLoadError(fmt.Errorf("load tasks for plan %s: %w", planID, err))
	}
	defer rows.Close()

	var tasks []*plan.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewStoreLoadError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreLoadError(err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*plan.Plan, error) {
	var p plan.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.BuildContext, &p.Creator,
		&p.EstimateHours, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanTask(row rowScanner) (*plan.Task, error) {
	var (
		t          plan.Task
		parentID   *string
		statusText string
		tagsJSON   []byte
		groupsJSON []byte
	)
	err := row.Scan(&t.ID, &t.PlanID, &parentID, &t.Title, &t.Description,
		&t.AcceptanceCriteria, &statusText, &tagsJSON, &groupsJSON,
		&t.EstimateHours, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		t.ParentID = *parentID
	}
	t.Status = plan.Status(statusText)
	if !t.Status.Valid() {
		t.Status = plan.StatusTodo
	}
	if err := json.Unmarshal(tagsJSON, &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for task %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(groupsJSON, &t.Groups); err != nil {
		return nil, fmt.Errorf("decode groups for task %s: %w", t.ID, err)
	}
	return &t, nil
}

// executor abstracts pgxpool.Pool and pgx.Tx for writes.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTask(ctx context.Context, ex executor, t *plan.Task) error {
	tagsJSON, err := json.Marshal(emptyIfNil(t.Tags))
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	groupsJSON, err := json.Marshal(emptyIfNil(t.Groups))
	if err != nil {
		return errors.NewStoreSaveError(err)
	}

	var parentID *string
	if t.ParentID != "" {
		parentID = &t.ParentID
	}

	_, err = ex.Exec(ctx, `
		INSERT INTO tasks (id, plan_id, parent_id, title, description, acceptance_criteria,
		                   status, tags, task_groups, estimate_hours, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.PlanID, parentID, t.Title, t.Description, t.AcceptanceCriteria,
		string(t.Status), tagsJSON, groupsJSON, t.EstimateHours, t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		return errors.NewStoreSaveError(fmt.Errorf("insert task %s: %w", t.ID, err))
	}
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
