package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paiban/callrota/internal/metrics"
	"github.com/paiban/callrota/internal/repository"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/logger"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/scheduler/solver"
	"github.com/paiban/callrota/pkg/stats"
)

// ListResponse 运行记录列表
type ListResponse struct {
	Items  []*repository.RotaRun `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// TargetPreview 单人的期望值与容差区间
type TargetPreview struct {
	Name      string          `json:"name"`
	Available int             `json:"available_days"`
	Night     fairness.Target `json:"night"`
	Weekend   fairness.Target `json:"weekend"`
}

// ValidateResponse 配置预检结果
type ValidateResponse struct {
	Valid          bool            `json:"valid"`
	Classification string          `json:"classification"`
	FillableDays   int             `json:"fillable_days"`
	CallRatio      float64         `json:"call_ratio"`
	Residents      []TargetPreview `json:"residents"`
}

// StatsResponse 值班表统计
type StatsResponse struct {
	RunID    uuid.UUID              `json:"run_id"`
	Fairness *stats.FairnessMetrics `json:"fairness"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
}

// CreateRota 求解并保存一次运行。
// 配置错误返回 400；无可行解与超时作为结果状态保存并返回 201
func (h *Handler) CreateRota(w http.ResponseWriter, r *http.Request) {
	cfg, err := decodeRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	active := h.metrics.GetGauge(metrics.ActiveSolves)
	active.Inc()
	result, err := h.solver.Solve(r.Context(), cfg)
	active.Dec()
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Msg("排班求解失败")
		respondError(w, err)
		return
	}

	run, assignments, err := repository.RunFromResult(cfg, result)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInternal, "生成运行记录失败"))
		return
	}
	if err := h.store.SaveRun(r.Context(), run, assignments); err != nil {
		respondError(w, err)
		return
	}

	logger.WithContext(r.Context()).Info().
		Str("run_id", run.ID.String()).
		Str("status", run.Status).
		Int("assignments", len(assignments)).
		Msg("运行记录已保存")

	w.Header().Set("Location", "/api/v1/rotas/"+run.ID.String())
	respondJSON(w, http.StatusCreated, result)
}

// ValidateConfig 只校验配置并返回各人的期望值，不求解
func (h *Handler) ValidateConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := decodeRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reg, fair, err := solver.Prepare(cfg)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := ValidateResponse{
		Valid:          true,
		Classification: string(cfg.Classification),
		FillableDays:   reg.FillableDays(),
		CallRatio:      fair.CallRatio(),
	}
	horizon := reg.Calendar().Horizon()
	for _, res := range reg.Residents() {
		resp.Residents = append(resp.Residents, TargetPreview{
			Name:      res.Name(),
			Available: horizon - res.VacationCount(),
			Night:     fair.ExpectedTotal(res),
			Weekend:   fair.ExpectedWeekend(res),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListRotas 列出运行记录，不含配置与结果正文
func (h *Handler) ListRotas(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	runs, total, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]*repository.RotaRun, 0, len(runs))
	for _, run := range runs {
		summary := *run
		summary.Config = nil
		summary.Result = nil
		items = append(items, &summary)
	}
	respondJSON(w, http.StatusOK, ListResponse{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetRota 获取运行记录
func (h *Handler) GetRota(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// DeleteRota 删除运行记录
func (h *Handler) DeleteRota(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.store.DeleteRun(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssignments 获取运行的班次分配
func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.store.GetRun(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	assignments, err := h.store.GetAssignments(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if assignments == nil {
		assignments = []*repository.RotaAssignment{}
	}
	respondJSON(w, http.StatusOK, assignments)
}

// GetStats 公平性与覆盖率统计；运行没有可用值班表时返回 422
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	run, rota, err := h.loadRota(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, StatsResponse{
		RunID:    run.ID,
		Fairness: h.fairness.Analyze(rota.roster),
		Coverage: h.coverage.Analyze(rota.roster),
	})
}

// decodeRequest 按 Content-Type 解码排班配置，默认 JSON
func decodeRequest(r *http.Request) (*model.SchedulingConfig, error) {
	format := model.FormatJSON
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch mediaType {
		case "application/yaml", "application/x-yaml", "text/yaml":
			format = model.FormatYAML
		}
	}

	cfg, err := model.DecodeConfig(r.Body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.InvalidInput("body", "请求体过大")
		}
		return nil, err
	}
	return cfg, nil
}

func runID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("id", "不是有效的UUID")
	}
	return id, nil
}

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter().
		WithStatus(q.Get("status")).
		WithDateRange(q.Get("start_date"), q.Get("end_date"))
	filter.Classification = q.Get("classification")

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return filter, apperrors.InvalidInput(p.name, "必须是非负整数")
		}
		*p.dst = v
	}
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}
	return filter, nil
}
