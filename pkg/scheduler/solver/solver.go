// Package solver 串联值班排班流程：登记 → 公平性 → 建模 → 一次求解 → 解码 → 复核
package solver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/callrota/pkg/calendar"
	"github.com/paiban/callrota/pkg/engine"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/logger"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
	"github.com/paiban/callrota/pkg/scheduler/constraint/builtin"
	"github.com/paiban/callrota/pkg/scheduler/decoder"
	"github.com/paiban/callrota/pkg/validator"
)

// Observer 求解结果观察者，例如指标采集
type Observer interface {
	ObserveSolve(result *Result)
}

// Result 求解结果
type Result struct {
	RunID          uuid.UUID            `json:"run_id"`
	Classification model.Classification `json:"classification"`
	Status         model.SolveStatus    `json:"status"`
	Degraded       bool                 `json:"degraded"`
	Objective      int64                `json:"objective"`
	Engine         string               `json:"engine"`
	WallTime       time.Duration        `json:"wall_time"`
	Duration       time.Duration        `json:"duration"`
	Statistics     *Statistics          `json:"statistics"`
	Conflicts      []validator.Conflict `json:"conflicts,omitempty"`

	roster *model.Roster
}

// Statistics 建模统计
type Statistics struct {
	Residents   int           `json:"residents"`
	Days        int           `json:"days"`
	Variables   int           `json:"variables"`
	Constraints int           `json:"constraints"`
	Penalties   int           `json:"penalties"`
	CompileTime time.Duration `json:"compile_time"`
}

// Usable 是否得到可用的值班表
func (r *Result) Usable() bool {
	return r.Status.Usable() && r.roster != nil
}

// Roster 返回值班表；无可行解或超时时返回错误，不会返回空表
func (r *Result) Roster() (*model.Roster, error) {
	if r.Usable() {
		return r.roster, nil
	}
	switch r.Status {
	case model.StatusUnknown:
		return nil, apperrors.Timeout("求解预算内未找到可行解")
	case model.StatusInvalid:
		return nil, apperrors.New(apperrors.CodeModelInvalid, "约束模型无效")
	default:
		return nil, apperrors.NoFeasibleSolution("硬约束无法同时满足")
	}
}

// MarshalJSON 附带值班表（如有）
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		*plain
		Roster *model.Roster `json:"roster,omitempty"`
	}{
		plain:  (*plain)(r),
		Roster: r.roster,
	})
}

// Solver 值班排班求解器
type Solver struct {
	engine    engine.Engine
	params    engine.Params
	audit     bool
	observers []Observer
	logger    *logger.RotaLogger
}

// Option 求解器选项
type Option func(*Solver)

// WithTimeLimit 设置求解时间预算
func WithTimeLimit(d time.Duration) Option {
	return func(s *Solver) { s.params.TimeLimit = d }
}

// WithWorkers 设置并行搜索线程数
func WithWorkers(n int) Option {
	return func(s *Solver) { s.params.Workers = n }
}

// WithAudit 是否复核解码后的值班表，默认开启
func WithAudit(enabled bool) Option {
	return func(s *Solver) { s.audit = enabled }
}

// WithObserver 注册结果观察者
func WithObserver(o Observer) Option {
	return func(s *Solver) { s.observers = append(s.observers, o) }
}

// New 创建求解器
func New(eng engine.Engine, opts ...Option) *Solver {
	s := &Solver{
		engine: eng,
		audit:  true,
		logger: logger.NewRotaLogger().With("engine", eng.Name()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name 返回求解器名称
func (s *Solver) Name() string {
	return "RotaSolver/" + s.engine.Name()
}

// Prepare 校验配置并构建登记表与公平性计算器，配置错误在此返回
func Prepare(cfg *model.SchedulingConfig) (*registry.Registry, *fairness.Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, nil, apperrors.Configuration("开始日期无效: %s", cfg.StartDate)
	}
	cal, err := calendar.New(start, cfg.Horizon, cfg.Holidays)
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.New(cfg, cal)
	if err != nil {
		return nil, nil, err
	}
	fair, err := fairness.New(reg, cfg.HighAcuityMultiplier)
	if err != nil {
		return nil, nil, err
	}
	return reg, fair, nil
}

// NewAuditor 按排班配置创建值班表复核器
func NewAuditor(cfg *model.SchedulingConfig, reg *registry.Registry, fair *fairness.Calculator) (*validator.RosterAuditor, error) {
	auditCfg, err := validator.AuditConfigFor(cfg, fair)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "复核配置无效")
	}
	return validator.NewRosterAuditor(reg, auditCfg), nil
}

// Compile 按分组选择规则集并构建约束模型
func Compile(cfg *model.SchedulingConfig, reg *registry.Registry, fair *fairness.Calculator) (*constraint.Builder, error) {
	policy, err := builtin.PolicyFor(cfg)
	if err != nil {
		return nil, err
	}
	b := constraint.NewBuilder(cfg, reg, fair)
	if err := policy.Compile(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Solve 生成值班表。
// 配置错误返回 (nil, err)；无解与超时通过 Result.Status 返回。
func (s *Solver) Solve(ctx context.Context, cfg *model.SchedulingConfig) (*Result, error) {
	if cfg == nil {
		return nil, apperrors.Configuration("缺少排班配置")
	}
	startTime := time.Now()
	result := &Result{
		RunID:          uuid.New(),
		Classification: cfg.Classification,
		Engine:         s.engine.Name(),
		Statistics:     &Statistics{},
	}
	log := s.logger.With("run_id", result.RunID.String())

	reg, fair, err := Prepare(cfg)
	if err != nil {
		return nil, err
	}
	b, err := Compile(cfg, reg, fair)
	if err != nil {
		return nil, err
	}
	result.Statistics.Residents = reg.Len()
	result.Statistics.Days = reg.Calendar().Horizon()
	result.Statistics.Variables = b.Model().NumVars()
	result.Statistics.Constraints = b.Model().NumConstraints()
	result.Statistics.Penalties = b.Penalties().Len()
	result.Statistics.CompileTime = time.Since(startTime)

	resp, err := s.engine.Solve(ctx, b.Model(), s.params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEngineFailure, "求解引擎故障")
	}
	result.Status = model.SolveStatus(resp.Status)
	result.WallTime = resp.WallTime

	if resp.HasSolution() {
		roster, err := decoder.Decode(b, resp)
		if err != nil {
			return nil, err
		}
		result.roster = roster
		result.Objective = resp.Objective
		result.Degraded = resp.Status == engine.StatusFeasible

		if s.audit {
			auditor, err := NewAuditor(cfg, reg, fair)
			if err != nil {
				return nil, err
			}
			result.Conflicts = auditor.DetectAll(roster)
			if validator.HasErrors(result.Conflicts) {
				return nil, apperrors.New(apperrors.CodeEngineFailure, "求解结果未通过复核").
					WithField("conflicts", len(result.Conflicts))
			}
		}
		log.SolveComplete(result.Engine, string(result.Status), result.Objective, resp.WallTime)
	} else {
		log.NoSolution(result.Engine, string(result.Status))
	}

	result.Duration = time.Since(startTime)
	for _, o := range s.observers {
		o.ObserveSolve(result)
	}
	return result, nil
}
