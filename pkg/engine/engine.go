package engine

import (
	"context"
	"time"
)

// Status 求解状态
type Status string

const (
	StatusOptimal      Status = "OPTIMAL"       // 找到并证明最优
	StatusFeasible     Status = "FEASIBLE"      // 找到可行解但未证明最优
	StatusInfeasible   Status = "INFEASIBLE"    // 证明无解
	StatusUnknown      Status = "UNKNOWN"       // 预算内既未找到解也未证明无解
	StatusModelInvalid Status = "MODEL_INVALID" // 模型本身不合法
)

// HasSolution 是否带有变量取值
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Params 求解参数
type Params struct {
	// TimeLimit 墙钟时间预算，0 表示不限制
	TimeLimit time.Duration
	// Workers 并行搜索线程数，0 表示由引擎决定
	Workers int
	// Seed 随机种子
	Seed int
}

// Engine 外部求解引擎；对同一个模型只调用一次 Solve
type Engine interface {
	// Name 返回引擎名称
	Name() string

	// Solve 求解模型；不可行/超时通过 Response.Status 表达，
	// error 只用于引擎自身故障
	Solve(ctx context.Context, m *Model, p Params) (*Response, error)
}

// Response 求解结果
type Response struct {
	Status    Status
	Objective int64
	WallTime  time.Duration
	Engine    string
	values    []int64
}

// NewResponse 创建求解结果；values 按变量下标排列，无解时为 nil
func NewResponse(engine string, status Status, values []int64, objective int64, wall time.Duration) *Response {
	return &Response{
		Status:    status,
		Objective: objective,
		WallTime:  wall,
		Engine:    engine,
		values:    values,
	}
}

// HasSolution 是否可以读取变量取值
func (r *Response) HasSolution() bool {
	return r.Status.HasSolution() && r.values != nil
}

// Values 所有变量取值的副本
func (r *Response) Values() []int64 {
	return append([]int64(nil), r.values...)
}

// Value 计算线性表达式的取值
func (r *Response) Value(la LinearArgument) int64 {
	return asExpr(la).Eval(r.values)
}

// BoolValue 文字的取值
func (r *Response) BoolValue(b BoolVar) bool {
	return b.Eval(r.values)
}

// TimeLimit 结合上下文截止时间与参数预算，返回较小者
func TimeLimit(ctx context.Context, p Params) time.Duration {
	limit := p.TimeLimit
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if limit == 0 || remaining < limit {
			limit = remaining
		}
	}
	return limit
}
