package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"sigmaspl/config"
	"sigmaspl/internal/llm"
	"sigmaspl/internal/logger"
	"sigmaspl/internal/metrics"
	"sigmaspl/internal/orchestrator"
	"sigmaspl/internal/profile"
	"sigmaspl/internal/store/memstore"
	"sigmaspl/internal/store/redisstore"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat("sigmaspl.yml"); err == nil {
		return "sigmaspl.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "sigmaspl.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "sigmaspl.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.SigmaSPL.Store.Backend == "" {
		cfg.SigmaSPL.Store.Backend = "memory"
	}
	if cfg.SigmaSPL.Store.Redis.Addr == "" {
		cfg.SigmaSPL.Store.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.SigmaSPL.Store.Redis.KeyPrefix == "" {
		cfg.SigmaSPL.Store.Redis.KeyPrefix = "sigmaspl"
	}

	if cfg.SigmaSPL.Metrics.Addr == "" {
		cfg.SigmaSPL.Metrics.Addr = ":9411"
	}

	if cfg.SigmaSPL.Logging.Level == "" {
		cfg.SigmaSPL.Logging.Level = "info"
	}
}

// profileFile is the on-disk shape of a seeded default profile; a thin
// YAML-tagged mirror of profile.Profile used only at load time, the same
// "decode into a tagged shadow struct, then project" pattern config.go uses.
type profileFile struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	DefaultIndex      string            `yaml:"default_index"`
	DefaultSourcetype string            `yaml:"default_sourcetype"`
	CimEnabled        bool              `yaml:"cim_enabled"`
	IsDefault         bool              `yaml:"is_default"`
	Macros            map[string]string `yaml:"macros"`
	Mappings          []struct {
		SigmaField  string `yaml:"sigma_field"`
		TargetField string `yaml:"target_field"`
		Transform   string `yaml:"transform"`
		Category    string `yaml:"category"`
		Notes       string `yaml:"notes"`
	} `yaml:"mappings"`
}

func loadSeedProfile(path string) (profile.Profile, error) {
	var pf profileFile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("read profile file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return profile.Profile{}, fmt.Errorf("parse profile file %s: %w", path, err)
	}
	p := profile.Profile{
		ID:                pf.ID,
		Name:              pf.Name,
		Description:       pf.Description,
		DefaultIndex:      pf.DefaultIndex,
		DefaultSourcetype: pf.DefaultSourcetype,
		CimEnabled:        pf.CimEnabled,
		IsDefault:         pf.IsDefault,
		Macros:            pf.Macros,
	}
	for _, m := range pf.Mappings {
		p.Mappings = append(p.Mappings, profile.Mapping{
			SigmaField:  m.SigmaField,
			TargetField: m.TargetField,
			Transform:   m.Transform,
			Category:    m.Category,
			Notes:       m.Notes,
		})
	}
	return p, nil
}

func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	metricsReg := metrics.New(reg)

	switch cfg.SigmaSPL.Store.Backend {
	case "redis":
		rcfg := redisstore.Config{
			Addr:      cfg.SigmaSPL.Store.Redis.Addr,
			Password:  cfg.SigmaSPL.Store.Redis.Password,
			DB:        cfg.SigmaSPL.Store.Redis.DB,
			KeyPrefix: cfg.SigmaSPL.Store.Redis.KeyPrefix,
			Timeout:   cfg.SigmaSPL.Store.Redis.Timeout,
		}
		ps, err := redisstore.NewProfileStore(rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect profile store: %w", err)
		}
		cs, err := redisstore.NewConfigStore(rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect config store: %w", err)
		}
		hs, err := redisstore.NewConversionHistoryStore(rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect history store: %w", err)
		}
		if cfg.SigmaSPL.Profiles.DefaultProfilePath != "" {
			seed, err := loadSeedProfile(cfg.SigmaSPL.Profiles.DefaultProfilePath)
			if err != nil {
				logger.Warnf("failed to load seed profile: %v", err)
			} else if err := ps.Save(seed); err != nil {
				logger.Warnf("failed to save seed profile: %v", err)
			}
		}
		return orchestrator.New(ps, cs, hs, metricsReg, resolveLLM(cfg)), reg, nil
	default:
		inner := profile.NewStore()
		if cfg.SigmaSPL.Profiles.DefaultProfilePath != "" {
			seed, err := loadSeedProfile(cfg.SigmaSPL.Profiles.DefaultProfilePath)
			if err != nil {
				logger.Warnf("failed to load seed profile: %v", err)
			} else if _, err := inner.Create(seed); err != nil {
				logger.Warnf("failed to create seed profile: %v", err)
			}
		}
		ps := memstore.NewProfileStore(inner)
		cs := memstore.NewConfigStore()
		hs := memstore.NewConversionHistoryStore()
		return orchestrator.New(ps, cs, hs, metricsReg, resolveLLM(cfg)), reg, nil
	}
}

func resolveLLM(cfg *config.Config) llm.Adapter {
	if !cfg.SigmaSPL.LLM.Enabled {
		return llm.NullAdapter{}
	}
	// No endpoint-backed adapter exists: an enabled LLM config also gets
	// NullAdapter, so text-to-Sigma requests report ErrUnavailable rather
	// than failing startup.
	return llm.NullAdapter{}
}

func runToSPL(args []string) int {
	fs := flag.NewFlagSet("to-spl", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sigmaspl.yml")
	input := fs.String("input", "", "Sigma YAML file to convert")
	profileID := fs.String("profile", "", "Profile id (empty uses the default profile)")
	index := fs.String("index", "", "Override index")
	sourcetype := fs.String("sourcetype", "", "Override sourcetype")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing -input")
		return 2
	}

	cfg, err := config.LoadConfig(findConfigFile(*configArg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	applyDefaults(cfg)
	if err := logger.Init(cfg.SigmaSPL.Logging.Enabled, cfg.SigmaSPL.Logging.Level, cfg.SigmaSPL.Logging.File, cfg.SigmaSPL.Logging.Console); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}

	orch, _, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build orchestrator: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", *input, err)
		return 1
	}

	resp, err := orch.SigmaToSPL(context.Background(), string(data), *profileID, orchestrator.Overrides{
		Index:      *index,
		Sourcetype: *sourcetype,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		return 1
	}

	fmt.Println(resp.OutputSPL)
	for _, note := range resp.CorrelationNotes {
		fmt.Fprintf(os.Stderr, "note: %s\n", note)
	}
	for _, g := range resp.Gaps {
		fmt.Fprintf(os.Stderr, "gap: %s (%s)\n", g.Field, g.Impact)
	}
	return 0
}

func runToSigma(args []string) int {
	fs := flag.NewFlagSet("to-sigma", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sigmaspl.yml")
	input := fs.String("input", "", "SPL query file to convert")
	profileID := fs.String("profile", "", "Profile id (empty uses the default profile)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing -input")
		return 2
	}

	cfg, err := config.LoadConfig(findConfigFile(*configArg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	applyDefaults(cfg)
	if err := logger.Init(cfg.SigmaSPL.Logging.Enabled, cfg.SigmaSPL.Logging.Level, cfg.SigmaSPL.Logging.File, cfg.SigmaSPL.Logging.Console); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}

	orch, _, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build orchestrator: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", *input, err)
		return 1
	}

	resp, err := orch.SPLToSigma(context.Background(), string(data), *profileID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		return 1
	}

	fmt.Println(resp.OutputSigma)
	for _, note := range resp.CorrelationNotes {
		fmt.Fprintf(os.Stderr, "note: %s\n", note)
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sigmaspl.yml")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := findConfigFile(*configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.SigmaSPL.Logging.Enabled, cfg.SigmaSPL.Logging.Level, cfg.SigmaSPL.Logging.File, cfg.SigmaSPL.Logging.Console); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	logger.Infof("sigmaspl starting")
	logger.Infof("config loaded from: %s", configPath)

	// serve only exposes the metrics registry; driving conversions through
	// an HTTP API is outside this module's scope (its adapter is a
	// collaborator's responsibility, not the core's).
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	mux := http.NewServeMux()
	if cfg.SigmaSPL.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{Addr: cfg.SigmaSPL.Metrics.Addr, Handler: mux}
	go func() {
		logger.Infof("metrics listening on %s", cfg.SigmaSPL.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("shutting down")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Infof("sigmaspl stopped")
	return 0
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sigmaspl <to-spl|to-sigma|serve> [flags]")
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "to-spl":
		code = runToSPL(os.Args[2:])
	case "to-sigma":
		code = runToSigma(os.Args[2:])
	case "serve":
		code = runServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		code = 2
	}
	os.Exit(code)
}
