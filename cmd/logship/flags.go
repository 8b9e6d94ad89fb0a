package main

import (
	"fmt"
	"io"
	"time"

	"logship/internal/config"

	"github.com/spf13/pflag"
)

// options 는 Config 에 들어가지 않는 실행 옵션.
type options struct {
	configPath string
	stdin      bool
	help       bool
}

// parseFlags 는 env 로 채워진 base 위에 --config 파일, 그 위에 명시된 flag 를 덮어쓴다.
func parseFlags(args []string, base config.Config, errOut io.Writer) (config.Config, options, error) {
	var (
		opts          options
		group, module string
		httpAddr      string
		flushInterval time.Duration
		debug         bool
	)

	fs := pflag.NewFlagSet("logship", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (overrides environment)")
	fs.StringVar(&group, "group", "", "CloudWatch log group (default: log_group_name in ~/.aws/config)")
	fs.StringVar(&module, "module", "", "module name used in the stream name module-<name>/<uuid>")
	fs.DurationVar(&flushInterval, "flush-interval", 0, "flush period (default 4s)")
	fs.BoolVar(&debug, "debug", false, "debug level local logging")
	fs.StringVar(&httpAddr, "http-addr", "", "listen address for /collect, /metrics, /health (empty: disabled)")
	fs.BoolVar(&opts.stdin, "stdin", true, "ship lines read from standard input")
	fs.BoolVarP(&opts.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			opts.help = true
			return base, opts, nil
		}
		return base, opts, err
	}
	if opts.help {
		fmt.Fprintf(errOut, "Usage:\n  logship [flags]\n\n%s", fs.FlagUsages())
		return base, opts, nil
	}
	if fs.NArg() > 0 {
		return base, opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg := base
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configPath, cfg); err != nil {
			return base, opts, err
		}
	}

	if fs.Changed("group") {
		cfg.LogGroup = group
	}
	if fs.Changed("module") {
		cfg.ModuleName = module
	}
	if fs.Changed("flush-interval") {
		cfg.FlushInterval = flushInterval
	}
	if fs.Changed("debug") {
		cfg.Debug = debug
	}
	if fs.Changed("http-addr") {
		cfg.HTTPAddr = httpAddr
	}
	return cfg.Normalize(), opts, nil
}
