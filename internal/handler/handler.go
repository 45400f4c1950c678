// Package handler 提供值班排班 HTTP 接口
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paiban/callrota/internal/metrics"
	"github.com/paiban/callrota/internal/middleware"
	"github.com/paiban/callrota/internal/repository"
	"github.com/paiban/callrota/internal/security"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/logger"
	"github.com/paiban/callrota/pkg/scheduler/solver"
	"github.com/paiban/callrota/pkg/stats"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Handler 值班表接口
type Handler struct {
	solver   *solver.Solver
	store    repository.RotaStore
	metrics  *metrics.MetricsRegistry
	fairness *stats.FairnessAnalyzer
	coverage *stats.CoverageAnalyzer
	info     BuildInfo
	health   func(ctx context.Context) error
}

// Option 处理器选项
type Option func(*Handler)

// WithBuildInfo 设置 /version 返回的构建信息
func WithBuildInfo(info BuildInfo) Option {
	return func(h *Handler) { h.info = info }
}

// WithHealthCheck 设置健康检查，例如数据库连通性
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(h *Handler) { h.health = check }
}

// New 创建处理器；reg 为空时使用全局指标注册表
func New(s *solver.Solver, store repository.RotaStore, reg *metrics.MetricsRegistry, opts ...Option) *Handler {
	if reg == nil {
		reg = metrics.GetRegistry()
	}
	h := &Handler{
		solver:   s,
		store:    store,
		metrics:  reg,
		fairness: stats.NewFairnessAnalyzer(),
		coverage: stats.NewCoverageAnalyzer(),
		info:     BuildInfo{Version: "dev"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RouteOptions 路由级访问控制
type RouteOptions struct {
	Guard        *security.KeyGuard
	Limiter      *security.RateLimiter
	MaxBodyBytes int64
	MetricsPath  string
}

// Routes 构建路由
func (h *Handler) Routes(opts RouteOptions) http.Handler {
	if opts.Guard == nil {
		opts.Guard = security.NewKeyGuard(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = security.NewRateLimiter(0, 0)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(h.metrics))
	r.Use(middleware.Recovery)
	r.Use(middleware.SecurityHeaders)

	r.Get("/healthz", h.Health)
	r.Get("/version", h.Version)
	if opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, h.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(opts.Guard))

		r.Get("/rules", h.ListRules)

		r.Route("/rotas", func(r chi.Router) {
			r.Get("/", h.ListRotas)
			r.With(middleware.MaxBody(opts.MaxBodyBytes)).Post("/validate", h.ValidateConfig)
			r.With(middleware.RateLimit(opts.Limiter), middleware.MaxBody(opts.MaxBodyBytes)).Post("/", h.CreateRota)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRota)
				r.Delete("/", h.DeleteRota)
				r.Get("/assignments", h.GetAssignments)
				r.Get("/stats", h.GetStats)
				r.With(middleware.MaxBody(opts.MaxBodyBytes)).Post("/swaps/evaluate", h.EvaluateSwap)
				r.Get("/swaps/recommend", h.RecommendSwap)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "接口不存在"))
	})
	return r
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "healthy",
		"version": h.info.Version,
		"engine":  h.solver.Name(),
	}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			logger.WithContext(r.Context()).Warn().Err(err).Msg("健康检查失败")
			status["status"] = "unhealthy"
			respondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	respondJSON(w, http.StatusOK, status)
}

// Version 构建信息
func (h *Handler) Version(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.info)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应；非 AppError 视为内部错误
func respondError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "内部错误")
	}
	respondJSON(w, appErr.HTTPStatus, map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}
