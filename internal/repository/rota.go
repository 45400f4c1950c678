package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/callrota/internal/database"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/scheduler/solver"
)

// RotaRun 一次求解的运行记录
type RotaRun struct {
	ID             uuid.UUID       `json:"id"`
	Classification string          `json:"classification"`
	StartDate      string          `json:"start_date"`
	Horizon        int             `json:"horizon"`
	Residents      []string        `json:"residents"`
	Status         string          `json:"status"`
	Degraded       bool            `json:"degraded"`
	Objective      int64           `json:"objective"`
	Engine         string          `json:"engine"`
	WallTime       time.Duration   `json:"wall_time"`
	Config         json.RawMessage `json:"config,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RotaAssignment 单个班次分配
type RotaAssignment struct {
	RunID    uuid.UUID `json:"run_id"`
	Resident string    `json:"resident"`
	Day      int       `json:"day"`
	Date     string    `json:"date"`
	Shift    string    `json:"shift"`
}

// RunFromResult 由求解结果生成运行记录；无值班表时不生成分配
func RunFromResult(cfg *model.SchedulingConfig, result *solver.Result) (*RotaRun, []*RotaAssignment, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("序列化排班配置失败: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("序列化求解结果失败: %w", err)
	}

	run := &RotaRun{
		ID:             result.RunID,
		Classification: string(cfg.Classification),
		StartDate:      cfg.StartDate,
		Horizon:        cfg.Horizon,
		Status:         string(result.Status),
		Degraded:       result.Degraded,
		Objective:      result.Objective,
		Engine:         result.Engine,
		WallTime:       result.WallTime,
		Config:         cfgJSON,
		Result:         resultJSON,
		CreatedAt:      time.Now(),
	}
	for _, r := range cfg.Residents {
		run.Residents = append(run.Residents, r.Name)
	}

	roster, err := result.Roster()
	if err != nil {
		return run, nil, nil
	}
	var assignments []*RotaAssignment
	for _, day := range roster.Days {
		for s, holder := range day.Holders {
			if holder == "" {
				continue
			}
			assignments = append(assignments, &RotaAssignment{
				RunID:    run.ID,
				Resident: holder,
				Day:      day.Day,
				Date:     day.Date,
				Shift:    roster.Shifts[s],
			})
		}
	}
	return run, assignments, nil
}

// RotaRepository PostgreSQL 运行记录仓储
type RotaRepository struct {
	db TxDB
}

// NewRotaRepository 创建运行记录仓储
func NewRotaRepository(db TxDB) *RotaRepository {
	return &RotaRepository{db: db}
}

const runColumns = `id, classification, start_date, horizon, residents, status,
	degraded, objective, engine, wall_time_ms, config, result, created_at`

// SaveRun 在同一事务中写入运行记录与分配
func (r *RotaRepository) SaveRun(ctx context.Context, run *RotaRun, assignments []*RotaAssignment) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rota_runs (`+runColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			run.ID, run.Classification, run.StartDate, run.Horizon, pq.Array(run.Residents), run.Status,
			run.Degraded, run.Objective, run.Engine, run.WallTime.Milliseconds(), []byte(run.Config), []byte(run.Result), run.CreatedAt,
		)
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		query, args := buildAssignmentInsert(run.ID, assignments)
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	return database.Translate(err, "保存值班表运行记录失败")
}

// buildAssignmentInsert 生成批量插入语句
func buildAssignmentInsert(runID uuid.UUID, assignments []*RotaAssignment) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO rota_assignments (run_id, resident, day, date, shift) VALUES ")

	args := make([]interface{}, 0, len(assignments)*5)
	for i, a := range assignments {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, runID, a.Resident, a.Day, a.Date, a.Shift)
	}
	return sb.String(), args
}

// GetRun 根据 ID 获取运行记录
func (r *RotaRepository) GetRun(ctx context.Context, id uuid.UUID) (*RotaRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM rota_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, database.Translate(err, "查询值班表运行记录失败")
	}
	return run, nil
}

// ListRuns 列出运行记录
func (r *RotaRepository) ListRuns(ctx context.Context, filter ListFilter) ([]*RotaRun, int, error) {
	filter = filter.normalize()
	whereClause, args := filter.where()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rota_runs "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, database.Translate(err, "统计运行记录失败")
	}

	query := fmt.Sprintf(`SELECT %s FROM rota_runs %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		runColumns, whereClause, filter.OrderBy, filter.OrderDir, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, database.Translate(err, "查询运行记录失败")
	}
	defer rows.Close()

	var runs []*RotaRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, database.Translate(err, "扫描运行记录失败")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.Translate(err, "遍历运行记录失败")
	}
	return runs, total, nil
}

// GetAssignments 获取某次运行的全部分配
func (r *RotaRepository) GetAssignments(ctx context.Context, runID uuid.UUID) ([]*RotaAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, resident, day, to_char(date, 'YYYY-MM-DD'), shift
		FROM rota_assignments
		WHERE run_id = $1
		ORDER BY day, shift`, runID)
	if err != nil {
		return nil, database.Translate(err, "查询班次分配失败")
	}
	defer rows.Close()

	var assignments []*RotaAssignment
	for rows.Next() {
		a := &RotaAssignment{}
		if err := rows.Scan(&a.RunID, &a.Resident, &a.Day, &a.Date, &a.Shift); err != nil {
			return nil, database.Translate(err, "扫描班次分配失败")
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// DeleteRun 删除运行记录，分配随外键级联删除
func (r *RotaRepository) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rota_runs WHERE id = $1", id)
	if err != nil {
		return database.Translate(err, "删除运行记录失败")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.Translate(sql.ErrNoRows, "运行记录不存在")
	}
	return nil
}

func scanRun(s Scanner) (*RotaRun, error) {
	run := &RotaRun{}
	var startDate time.Time
	var wallMs int64
	var cfgJSON, resultJSON []byte
	if err := s.Scan(
		&run.ID, &run.Classification, &startDate, &run.Horizon, pq.Array(&run.Residents), &run.Status,
		&run.Degraded, &run.Objective, &run.Engine, &wallMs, &cfgJSON, &resultJSON, &run.CreatedAt,
	); err != nil {
		return nil, err
	}
	run.StartDate = startDate.Format("2006-01-02")
	run.WallTime = time.Duration(wallMs) * time.Millisecond
	run.Config = cfgJSON
	run.Result = resultJSON
	return run, nil
}
