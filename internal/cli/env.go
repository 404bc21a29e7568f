package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gzhole/opguard/internal/config"
	"github.com/gzhole/opguard/internal/heuristic"
	"github.com/gzhole/opguard/internal/logger"
	"github.com/gzhole/opguard/internal/policy"
	"github.com/gzhole/opguard/internal/rules"
)

// rulesSourceEmbedded names the built-in rule set in status output.
const rulesSourceEmbedded = "built-in"

// environment is what a command needs after flags and config are resolved.
type environment struct {
	cfg         *config.Config
	store       *rules.Store
	rulesSource string
	log         *slog.Logger
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Overrides{
		ConfigPath: o.configPath,
		RulesDir:   o.rulesDir,
		LogPath:    o.logPath,
		LogFormat:  o.logFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// load resolves config, builds the process logger and loads the rule set.
func (o *globalOptions) load(stderr io.Writer) (*environment, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	log := newProcessLogger(cfg.LogFormat, o.verbose, stderr)

	store, source, err := loadRules(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	for _, note := range store.Notes() {
		log.Warn("rule set note", "source", source, "note", note)
	}

	return &environment{cfg: cfg, store: store, rulesSource: source, log: log}, nil
}

// loadRules reads dir when it exists and falls back to the embedded rules.
func loadRules(dir string) (*rules.Store, string, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			store, err := rules.Load(dir)
			return store, dir, err
		}
	}
	store, err := rules.Default()
	return store, rulesSourceEmbedded, err
}

func newProcessLogger(format string, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h)
}

// newEngine builds an engine over the environment's rules.
func (env *environment) newEngine() (*policy.Engine, error) {
	var hopts []heuristic.Option
	if env.cfg.BulkThreshold > 0 {
		hopts = append(hopts, heuristic.WithBulkThreshold(env.cfg.BulkThreshold))
	}
	return policy.NewEngine(env.store,
		policy.WithLogger(env.log.With("component", "policy")),
		policy.WithHeuristicOptions(hopts...),
	)
}

// openSinks returns the assessment sink for the environment and a closer.
// The audit file is skipped when auditing is disabled.
func (env *environment) openSinks() (logger.Sink, *logger.AuditLogger, error) {
	sinks := []logger.Sink{logger.NewSlogSink(env.log)}
	if !env.cfg.Audit {
		return logger.Fanout(sinks...), nil, nil
	}
	audit, err := logger.New(env.cfg.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	return logger.Fanout(append(sinks, audit)...), audit, nil
}
