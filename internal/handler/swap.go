package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/paiban/callrota/internal/repository"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/swap"
)

// storedRota 运行记录中保存的配置与值班表
type storedRota struct {
	config *model.SchedulingConfig
	roster *model.Roster
}

// loadRota 读取运行记录并还原配置与值班表；没有值班表时返回 422
func (h *Handler) loadRota(r *http.Request) (*repository.RotaRun, *storedRota, error) {
	id, err := runID(r)
	if err != nil {
		return nil, nil, err
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}

	var result struct {
		Roster *model.Roster `json:"roster"`
	}
	if len(run.Result) > 0 {
		if err := json.Unmarshal(run.Result, &result); err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeInternal, "运行结果损坏")
		}
	}
	if result.Roster == nil {
		return run, nil, apperrors.NoFeasibleSolution("该运行没有可用的值班表").WithField("status", run.Status)
	}

	cfg := model.DefaultSchedulingConfig()
	if err := json.Unmarshal(run.Config, &cfg); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeInternal, "运行配置损坏")
	}
	return run, &storedRota{config: &cfg, roster: result.Roster}, nil
}

// EvaluateSwap 在已保存的值班表上评估一次换班，不修改记录
func (h *Handler) EvaluateSwap(w http.ResponseWriter, r *http.Request) {
	_, rota, err := h.loadRota(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req swap.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.InvalidInput("body", "无效的换班请求"))
		return
	}
	if req.Target == "" || req.Source.Shift == "" {
		respondError(w, apperrors.InvalidInput("target", "缺少 source.shift 或 target"))
		return
	}

	evaluator, err := swap.NewSwapEvaluator(rota.config)
	if err != nil {
		respondError(w, err)
		return
	}
	eval, err := evaluator.EvaluateSwap(rota.roster, &req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, eval)
}

// RecommendSwap 为 ?day=&shift= 指定的班次推荐接手人
func (h *Handler) RecommendSwap(w http.ResponseWriter, r *http.Request) {
	_, rota, err := h.loadRota(r)
	if err != nil {
		respondError(w, err)
		return
	}

	q := r.URL.Query()
	day, err := strconv.Atoi(q.Get("day"))
	if err != nil {
		respondError(w, apperrors.InvalidInput("day", "必须是整数"))
		return
	}
	source := swap.Slot{Day: day, Shift: q.Get("shift")}

	opts := swap.DefaultRecommendOptions()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, apperrors.InvalidInput("limit", "必须是正整数"))
			return
		}
		opts.MaxRecommendations = n
	}
	if q.Get("exchange") == "false" {
		opts.AllowExchange = false
	}

	evaluator, err := swap.NewSwapEvaluator(rota.config)
	if err != nil {
		respondError(w, err)
		return
	}
	recs, err := swap.NewRecommender(evaluator).Recommend(rota.roster, source, opts)
	if err != nil {
		respondError(w, err)
		return
	}
	if recs == nil {
		recs = []swap.Recommendation{}
	}
	respondJSON(w, http.StatusOK, recs)
}
