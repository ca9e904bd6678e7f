package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/config"
)

// DefaultMaxCheckpoints 每个会话默认保留的快照数
const DefaultMaxCheckpoints = 20

// ErrStoreClosed 仓储已关闭
var ErrStoreClosed = errors.New("checkpoint store closed")

// Checkpoint 一次已提交的会话快照
type Checkpoint struct {
	SessionID string
	Seq       int64
	State     workflow.State
	CreatedAt time.Time
}

// CheckpointRepository 会话快照仓储
// 每次成功运行追加一条快照，读取时取最新一条
// 由 ProvideCheckpointRepository 创建时持有数据库连接，Close 后可用 Open 重新打开
type CheckpointRepository struct {
	mu             sync.RWMutex
	db             *sql.DB
	path           string
	maxCheckpoints int
}

// NewCheckpointRepository 创建仓储并确保表存在
func NewCheckpointRepository(db *sql.DB, maxCheckpoints int) (*CheckpointRepository, error) {
	if maxCheckpoints <= 0 {
		maxCheckpoints = DefaultMaxCheckpoints
	}
	if err := initCheckpointTables(db); err != nil {
		return nil, err
	}
	return &CheckpointRepository{db: db, maxCheckpoints: maxCheckpoints}, nil
}

// ProvideCheckpointRepository 按配置打开数据库并创建仓储
func ProvideCheckpointRepository(cfg *config.DatabaseConfig) (*CheckpointRepository, error) {
	path := cfg.ResolvedPath()
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	repo, err := NewCheckpointRepository(db, cfg.MaxCheckpoints)
	if err != nil {
		db.Close()
		return nil, err
	}
	repo.path = path
	return repo, nil
}

// Open 关闭后重新打开数据库，已打开时无操作
func (r *CheckpointRepository) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		return nil
	}
	if r.path == "" {
		return ErrStoreClosed
	}
	db, err := OpenDB(r.path)
	if err != nil {
		return err
	}
	if err := initCheckpointTables(db); err != nil {
		db.Close()
		return err
	}
	r.db = db
	return nil
}

// Close 释放数据库连接，可重复调用
func (r *CheckpointRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *CheckpointRepository) conn() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, ErrStoreClosed
	}
	return r.db, nil
}

func initCheckpointTables(db *sql.DB) error {
	createCheckpointsSQL := `
	CREATE TABLE IF NOT EXISTS workflow_checkpoints (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);`
	if _, err := db.Exec(createCheckpointsSQL); err != nil {
		return fmt.Errorf("failed to create workflow_checkpoints table: %w", err)
	}

	createStepsSQL := `
	CREATE TABLE IF NOT EXISTS workflow_run_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_steps_run ON workflow_run_steps(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_steps_session ON workflow_run_steps(session_id);`
	if _, err := db.Exec(createStepsSQL); err != nil {
		return fmt.Errorf("failed to create workflow_run_steps table: %w", err)
	}
	return nil
}

// Load 读取会话最新快照，不存在时返回 nil, nil
func (r *CheckpointRepository) Load(ctx context.Context, sessionID string) (*workflow.State, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	query := `
	SELECT state_json FROM workflow_checkpoints
	WHERE session_id = ?
	ORDER BY seq DESC
	LIMIT 1`

	var raw string
	err = db.QueryRowContext(ctx, query, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var state workflow.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if state.Turns == nil {
		state.Turns = []workflow.Turn{}
	}
	return &state, nil
}

// Save 追加一条快照并裁剪旧快照
func (r *CheckpointRepository) Save(ctx context.Context, sessionID string, state workflow.State) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM workflow_checkpoints WHERE session_id = ?`,
		sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read checkpoint sequence: %w", err)
	}
	seq++

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workflow_checkpoints (session_id, seq, state_json, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, seq, string(data), time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workflow_checkpoints WHERE session_id = ? AND seq <= ?`,
		sessionID, seq-int64(r.maxCheckpoints),
	); err != nil {
		return fmt.Errorf("failed to prune checkpoints: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// Delete 删除会话的全部快照和运行日志
func (r *CheckpointRepository) Delete(ctx context.Context, sessionID string) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete checkpoints: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_run_steps WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete run steps: %w", err)
	}
	return tx.Commit()
}

// History 按时间倒序列出快照
func (r *CheckpointRepository) History(ctx context.Context, sessionID string, limit int) ([]*Checkpoint, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = r.maxCheckpoints
	}
	rows, err := db.QueryContext(ctx, `
	SELECT seq, state_json, created_at FROM workflow_checkpoints
	WHERE session_id = ?
	ORDER BY seq DESC
	LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var result []*Checkpoint
	for rows.Next() {
		var (
			cp        Checkpoint
			raw       string
			createdAt int64
		)
		if err := rows.Scan(&cp.Seq, &raw, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &cp.State); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint %d: %w", cp.Seq, err)
		}
		cp.SessionID = sessionID
		cp.CreatedAt = time.UnixMilli(createdAt)
		result = append(result, &cp)
	}
	return result, rows.Err()
}

// RecordStep 写入一条阶段日志
func (r *CheckpointRepository) RecordStep(ctx context.Context, step *workflow.RunStep) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}
	_, err = db.ExecContext(ctx, `
	INSERT INTO workflow_run_steps (run_id, session_id, stage, status, detail, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		step.RunID, step.SessionID, string(step.Stage), string(step.Status),
		sql.NullString{String: step.Detail, Valid: step.Detail != ""},
		step.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run step: %w", err)
	}
	return nil
}

// RunSteps 按写入顺序列出某次运行的阶段日志
func (r *CheckpointRepository) RunSteps(ctx context.Context, runID string) ([]*workflow.RunStep, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT run_id, session_id, stage, status, detail, created_at
	FROM workflow_run_steps
	WHERE run_id = ?
	ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run steps: %w", err)
	}
	defer rows.Close()

	var steps []*workflow.RunStep
	for rows.Next() {
		var (
			step      workflow.RunStep
			stage     string
			status    string
			detail    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&step.RunID, &step.SessionID, &stage, &status, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run step: %w", err)
		}
		step.Stage = workflow.Stage(stage)
		step.Status = workflow.StepStatus(status)
		step.Detail = detail.String
		step.CreatedAt = time.UnixMilli(createdAt)
		steps = append(steps, &step)
	}
	return steps, rows.Err()
}
