package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/health-assessment/internal/biomarkers"
	"github.com/jonathan/health-assessment/internal/cache"
	"github.com/jonathan/health-assessment/internal/catalog"
	"github.com/jonathan/health-assessment/internal/config"
	"github.com/jonathan/health-assessment/internal/db"
	"github.com/jonathan/health-assessment/internal/intake"
	"github.com/jonathan/health-assessment/internal/logger"
	"github.com/jonathan/health-assessment/internal/observability"
	"github.com/jonathan/health-assessment/internal/scoring"
)

// runtime holds everything a command needs after configuration is resolved.
type runtime struct {
	cfg         config.Config
	log         *logger.Logger
	definitions *catalog.Definitions
	classifier  *biomarkers.Classifier
	pipeline    *scoring.Pipeline
	printer     *observability.Printer
	out         io.Writer
	verbose     bool
}

func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(merged.LogMode)
	if err != nil {
		return nil, err
	}

	definitions, err := loadDefinitions(merged.DefinitionsPath)
	if err != nil {
		return nil, err
	}
	ranges, err := loadRanges(merged.RangesPath)
	if err != nil {
		return nil, err
	}
	tables, err := loadAdjustments(merged.AdjustmentsPath)
	if err != nil {
		return nil, err
	}

	classifier := biomarkers.NewClassifier(ranges)
	out := cmd.OutOrStdout()
	return &runtime{
		cfg:         merged,
		log:         log,
		definitions: definitions,
		classifier:  classifier,
		pipeline:    scoring.NewPipeline(classifier, tables),
		printer:     observability.NewPrinter(cmd.ErrOrStderr()),
		out:         out,
		verbose:     verbose || merged.Verbose,
	}, nil
}

func loadDefinitions(path string) (*catalog.Definitions, error) {
	if path != "" {
		return catalog.LoadDefinitionsFile(path)
	}
	return catalog.DefaultDefinitions()
}

func loadRanges(path string) (*catalog.Ranges, error) {
	if path != "" {
		return catalog.LoadRangesFile(path)
	}
	return catalog.DefaultRanges()
}

func loadAdjustments(path string) (*catalog.Adjustments, error) {
	if path != "" {
		return catalog.LoadAdjustmentsFile(path)
	}
	return catalog.DefaultAdjustments()
}

// openStore builds the session store and score sink for the configured
// backend. The returned close func releases any connections.
func (r *runtime) openStore(ctx context.Context) (intake.SessionStore, intake.ScoreSink, func(), error) {
	switch strings.ToLower(r.cfg.Store) {
	case config.StorePostgres:
		database, err := db.Connect(ctx, r.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		return db.NewSessionStore(database), db.NewScoreSink(database), database.Close, nil

	case config.StoreRedis:
		client, err := cache.Connect(ctx, r.cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		store := cache.NewSessionStore(client,
			cache.WithPrefix(r.cfg.RedisPrefix),
			cache.WithRetention(r.cfg.SessionRetention.Std()),
		)
		closeFn := func() { _ = client.Close() }
		return store, intake.LogSink{Logger: r.log}, closeFn, nil

	default:
		return intake.NewMemoryStore(), intake.LogSink{Logger: r.log}, func() {}, nil
	}
}

// newManager wires an intake manager over the configured store.
func (r *runtime) newManager(ctx context.Context, opts ...intake.Option) (*intake.Manager, func(), error) {
	store, sink, closeFn, err := r.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]intake.Option{
		intake.WithLogger(r.log),
		intake.WithIdleTimeout(r.cfg.IdleTimeout.Std()),
	}, opts...)
	return intake.NewManager(r.definitions, store, sink, r.pipeline, opts...), closeFn, nil
}

func (r *runtime) close() {
	if r.log != nil {
		r.log.Sync()
	}
}

func (r *runtime) writeJSON(v any) error {
	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	_, err = r.out.Write(data)
	return err
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return append(data, '\n'), nil
}

// readJSONArg decodes a flag value that is either inline JSON or @path.
func readJSONArg(value string, target any) error {
	data := []byte(value)
	if strings.HasPrefix(value, "@") {
		path := strings.TrimPrefix(value, "@")
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		data = content
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
