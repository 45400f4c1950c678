// 值班表批处理命令：读取排班配置，求解一次，输出 JSON
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/callrota/internal/config"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/logger"
	"github.com/paiban/callrota/pkg/model"
)

// 退出码
const (
	exitOK         = 0
	exitFailure    = 1
	exitConfig     = 2
	exitNoSolution = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rota", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rotaFile := fs.String("f", "", "排班配置文件 (YAML/JSON)")
	engineName := fs.String("engine", "cpsat", "求解引擎 (cpsat/pbsat)")
	timeLimit := fs.Duration("time-limit", 60*time.Second, "求解时间预算")
	workers := fs.Int("workers", 8, "并行搜索线程数")
	audit := fs.Bool("audit", true, "求解后复核值班表")
	searchLog := fs.Bool("search-log", false, "输出引擎搜索日志")
	logLevel := fs.String("log-level", "warn", "日志级别")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if *rotaFile == "" {
		fmt.Fprintln(stderr, "缺少 -f 参数")
		fs.Usage()
		return exitConfig
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = *logLevel
	logCfg.Output = "stderr"
	logger.Init(logCfg)

	solverCfg := config.SolverConfig{
		Engine:    *engineName,
		TimeLimit: *timeLimit,
		Workers:   *workers,
		SearchLog: *searchLog,
		Audit:     *audit,
	}
	s, err := solverCfg.NewSolver()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}

	cfg, err := model.LoadConfigFile(*rotaFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := s.Solve(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		if apperrors.Is(err, apperrors.CodeConfiguration) {
			return exitConfig
		}
		return exitFailure
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	if _, err := result.Roster(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitNoSolution
	}
	return exitOK
}
