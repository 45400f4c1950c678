// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RotaStore 值班表运行记录存储
type RotaStore interface {
	SaveRun(ctx context.Context, run *RotaRun, assignments []*RotaAssignment) error
	GetRun(ctx context.Context, id uuid.UUID) (*RotaRun, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]*RotaRun, int, error)
	GetAssignments(ctx context.Context, runID uuid.UUID) ([]*RotaAssignment, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Status         string `json:"status,omitempty"`
	Classification string `json:"classification,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
	OrderBy        string `json:"order_by,omitempty"`
	OrderDir       string `json:"order_dir,omitempty"` // asc/desc
}

// 可排序的列
var orderColumns = map[string]bool{
	"created_at": true,
	"start_date": true,
	"objective":  true,
	"status":     true,
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}

// WithDateRange 设置开始日期范围
func (f ListFilter) WithDateRange(start, end string) ListFilter {
	f.StartDate = start
	f.EndDate = end
	return f
}

// normalize 非法的排序与分页参数回落到默认值
func (f ListFilter) normalize() ListFilter {
	def := DefaultListFilter()
	if !orderColumns[f.OrderBy] {
		f.OrderBy = def.OrderBy
	}
	if f.OrderDir != "asc" && f.OrderDir != "desc" {
		f.OrderDir = def.OrderDir
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = def.Limit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// where 生成 WHERE 子句与参数
func (f ListFilter) where() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, v interface{}) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Classification != "" {
		add("classification = $%d", f.Classification)
	}
	if f.StartDate != "" {
		add("start_date >= $%d", f.StartDate)
	}
	if f.EndDate != "" {
		add("start_date <= $%d", f.EndDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxDB 支持事务的数据库
type TxDB interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
