package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logship/internal/appender"
	"logship/internal/config"
	"logship/internal/logger"
	"logship/internal/metrics"
	"logship/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
)

func main() {

	// ====================================================================
	// Config
	// ====================================================================
	//
	// env → --config YAML → 명시된 flag 순서로 덮어쓴다.
	// 형식이 잘못된 env 값은 config.Load 안에서 fail-fast.
	// ====================================================================
	cfg, opts, err := parseFlags(os.Args[1:], config.Load(), os.Stderr)
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid arguments")
	}
	if opts.help {
		return
	}

	logger.Init(cfg)
	m := metrics.New()

	// ====================================================================
	// Appender (Lifecycle Controller)
	// ====================================================================
	//
	// CLOUD_LOG_ENABLED=true 가 아니면 Disabled 로 만들어지고 모든 이벤트를 버린다.
	// 네트워크 작업(그룹 결정, 스트림 생성)은 첫 이벤트에서 background 로 시작된다.
	// ====================================================================
	app := appender.New(appender.Options{
		Config:  cfg,
		Enabled: config.Enabled(os.Environ()),
		Metrics: m,
	})

	// ====================================================================
	// HTTP (선택)
	// ====================================================================
	//
	//  - /collect      : 원격 라인 수집
	//  - /metrics      : name=value 텍스트
	//  - /metrics/prom : Prometheus exposition
	//  - /health       : lifecycle 상태
	// ====================================================================
	var srv *http.Server
	if cfg.HTTPAddr != "" {
		h := server.NewHandler(cfg, m, app)

		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector("logship", m))

		mux := http.NewServeMux()
		mux.HandleFunc("/collect", h.HandleCollect)
		mux.HandleFunc("/metrics", h.HandleMetrics)
		mux.Handle("/metrics/prom", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/health", h.HandleHealth)

		srv = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  8 * time.Second,
			WriteTimeout: 8 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			zlog.Info().Str("addr", cfg.HTTPAddr).Msg("http collect listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zlog.Fatal().Err(err).Msg("http server terminated")
			}
		}()
	}

	// ====================================================================
	// stdin producer
	// ====================================================================
	//
	// 한 줄 = 이벤트 하나. EOF 에 도달하면 종료 절차로 넘어간다.
	// ====================================================================
	stdinDone := make(chan struct{})
	if opts.stdin {
		go func() {
			defer close(stdinDone)
			err := readLines(os.Stdin, maxLineBytes, func(line string) {
				app.Append(time.Now(), line)
			})
			if err != nil {
				zlog.Error().Err(err).Msg("stdin read failed")
			}
		}()
	}

	// ====================================================================
	// Graceful Shutdown
	// ====================================================================
	//
	// SIGTERM/SIGINT 또는 stdin EOF 에서
	//   1) HTTP 서버를 먼저 멈추고 (새 이벤트 유입 차단)
	//   2) Appender 를 Stop (진행 중 tick 대기 → 마지막 flush)
	// ====================================================================
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		zlog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-stdinDone:
		zlog.Debug().Msg("stdin closed")
	}

	// HTTP drain 과 Appender 종료는 각자 deadline 을 가진다
	if srv != nil {
		httpCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(httpCtx); err != nil {
			zlog.Error().Err(err).Msg("http shutdown")
		}
		cancel()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait()+5*time.Second)
	defer cancel()

	app.Stop(stopCtx)
	zlog.Info().Str("state", app.State().String()).Msg("shutdown complete")
}
