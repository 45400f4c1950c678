// Package metrics 提供 Prometheus 文本格式的监控指标
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry 指标注册表
type MetricsRegistry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

// 指标名称
const (
	HTTPRequestsTotal   = "callrota_http_requests_total"
	HTTPRequestDuration = "callrota_http_request_duration_seconds"
	SolveTotal          = "callrota_solve_total"
	SolveDuration       = "callrota_solve_duration_seconds"
	SolveObjective      = "callrota_solve_objective"
	PenaltyTotal        = "callrota_penalty_total"
	AuditConflictsTotal = "callrota_audit_conflicts_total"
	ActiveSolves        = "callrota_active_solves"
	FairnessGini        = "callrota_fairness_gini"
	CoverageRate        = "callrota_coverage_rate"
)

var (
	registry *MetricsRegistry
	once     sync.Once
)

// NewRegistry 创建带默认指标的注册表
func NewRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
	r.initDefaultMetrics()
	return r
}

// GetRegistry 获取全局注册表
func GetRegistry() *MetricsRegistry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

func (r *MetricsRegistry) initDefaultMetrics() {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})

	r.NewCounter(SolveTotal, "值班表求解次数", []string{"engine", "classification", "status"})
	r.NewHistogram(SolveDuration, "值班表求解耗时",
		[]string{"engine", "classification"},
		[]float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0})
	r.NewGauge(SolveObjective, "最近一次求解的目标函数值", []string{"classification"})
	r.NewCounter(PenaltyTotal, "各类惩罚累计值", []string{"kind"})
	r.NewCounter(AuditConflictsTotal, "复核发现的冲突数", []string{"type"})
	r.NewGauge(ActiveSolves, "当前进行中的求解数", []string{})

	r.NewGauge(FairnessGini, "公平性基尼系数", []string{"classification", "metric_type"})
	r.NewGauge(CoverageRate, "班次覆盖率", []string{"classification"})
}

// NewCounter 创建计数器
func (r *MetricsRegistry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *MetricsRegistry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *MetricsRegistry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *MetricsRegistry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *MetricsRegistry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *MetricsRegistry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Inc 增加
func (g *Gauge) Inc(labelValues ...string) {
	g.Add(1, labelValues...)
}

// Dec 减少
func (g *Gauge) Dec(labelValues ...string) {
	g.Add(-1, labelValues...)
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 只计入第一个满足的 bucket，输出时再累加
	placed := false
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
			placed = true
			break
		}
	}
	if !placed {
		h.counts[key][len(h.Buckets)]++
	}
	h.sums[key] += value
}

// Count 某组标签的观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, n := range h.counts[labelKey(labelValues)] {
		total += n
	}
	return total
}

func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// Handler 返回全局注册表的 Prometheus 格式处理器
func Handler() http.Handler {
	return GetRegistry().Handler()
}

// Handler 返回 Prometheus 格式的指标处理器，按名称排序输出
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		r.mu.RLock()
		defer r.mu.RUnlock()

		for _, name := range sortedKeys(r.counters) {
			counter := r.counters[name]
			fmt.Fprintf(w, "# HELP %s %s\n", counter.Name, counter.Help)
			fmt.Fprintf(w, "# TYPE %s counter\n", counter.Name)

			counter.mu.RLock()
			for _, key := range sortedKeys(counter.values) {
				fmt.Fprintf(w, "%s%s %s\n", counter.Name, braced(counter.Labels, key), formatValue(counter.values[key]))
			}
			counter.mu.RUnlock()
		}

		for _, name := range sortedKeys(r.gauges) {
			gauge := r.gauges[name]
			fmt.Fprintf(w, "# HELP %s %s\n", gauge.Name, gauge.Help)
			fmt.Fprintf(w, "# TYPE %s gauge\n", gauge.Name)

			gauge.mu.RLock()
			for _, key := range sortedKeys(gauge.values) {
				fmt.Fprintf(w, "%s%s %s\n", gauge.Name, braced(gauge.Labels, key), formatValue(gauge.values[key]))
			}
			gauge.mu.RUnlock()
		}

		for _, name := range sortedKeys(r.histograms) {
			histogram := r.histograms[name]
			fmt.Fprintf(w, "# HELP %s %s\n", histogram.Name, histogram.Help)
			fmt.Fprintf(w, "# TYPE %s histogram\n", histogram.Name)

			histogram.mu.RLock()
			for _, key := range sortedKeys(histogram.counts) {
				counts := histogram.counts[key]
				labels := ""
				if key != "" || len(histogram.Labels) > 0 {
					labels = formatLabels(histogram.Labels, key) + ","
				}
				cumulative := 0
				for i, bucket := range histogram.Buckets {
					cumulative += counts[i]
					fmt.Fprintf(w, "%s_bucket{%sle=\"%s\"} %d\n", histogram.Name, labels, formatValue(bucket), cumulative)
				}
				cumulative += counts[len(histogram.Buckets)]
				fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", histogram.Name, labels, cumulative)
				fmt.Fprintf(w, "%s_sum%s %s\n", histogram.Name, braced(histogram.Labels, key), formatValue(histogram.sums[key]))
				fmt.Fprintf(w, "%s_count%s %d\n", histogram.Name, braced(histogram.Labels, key), cumulative)
			}
			histogram.mu.RUnlock()
		}
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func braced(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	return "{" + formatLabels(names, key) + "}"
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	var vals []string
	if key != "" || len(names) == 1 {
		vals = strings.Split(key, ",")
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

// RecordRequestMetrics 记录请求指标
func (r *MetricsRegistry) RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	if counter := r.GetCounter(HTTPRequestsTotal); counter != nil {
		counter.Inc(method, path, strconv.Itoa(status))
	}
	if histogram := r.GetHistogram(HTTPRequestDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), method, path)
	}
}
