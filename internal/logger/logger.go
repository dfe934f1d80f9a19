package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/local/soepipeline/internal/config"
)

const serviceName = "soepipeline"

var (
	global zerolog.Logger
	fwd    *axiomForwarder
)

// Init sets up the global logger: rotating file output, console (pretty in
// dev), and optional Axiom forwarding.
func Init(logCfg config.LoggingConfig, axCfg config.AxiomConfig) error {
	if logCfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(logCfg.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
	}

	var writers []io.Writer
	if logCfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logCfg.File,
			MaxSize:    logCfg.MaxSizeMB,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAgeDays,
			Compress:   logCfg.Compress,
		})
	}
	if logCfg.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, os.Stdout)
	}

	if axCfg.Send && axCfg.APIKey != "" {
		f, err := newAxiomForwarder(axCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			fwd = f
			writers = append(writers, f)
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(logCfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	log.Logger = global
	return nil
}

// Close flushes any buffered external forwarders.
func Close() {
	if fwd != nil {
		fwd.close()
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// axiomForwarder batches zerolog JSON lines to Axiom, dropping debug level.
type axiomForwarder struct {
	client  *axiom.Client
	dataset string
	ch      chan axiom.Event
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newAxiomForwarder(cfg config.AxiomConfig) (*axiomForwarder, error) {
	opts := []axiom.Option{axiom.SetToken(cfg.APIKey)}
	if cfg.OrgID != "" {
		opts = append(opts, axiom.SetOrganizationID(cfg.OrgID))
	}
	client, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &axiomForwarder{
		client:  client,
		dataset: cfg.Dataset,
		ch:      make(chan axiom.Event, 1000),
		cancel:  cancel,
	}
	flushEvery := cfg.FlushInterval
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	f.wg.Add(1)
	go f.loop(ctx, flushEvery)
	return f, nil
}

func (f *axiomForwarder) Write(p []byte) (int, error) {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && lvl == "debug" {
		return len(p), nil
	}
	ev["service"] = serviceName
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	select {
	case f.ch <- axiom.Event(ev):
	default:
		// drop when the buffer is full
	}
	return len(p), nil
}

func (f *axiomForwarder) loop(ctx context.Context, flushEvery time.Duration) {
	defer f.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]axiom.Event, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = f.client.IngestEvents(sendCtx, f.dataset, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case ev := <-f.ch:
			batch = append(batch, ev)
			if len(batch) >= 200 {
				flush()
			}
		}
	}
}

func (f *axiomForwarder) close() {
	f.cancel()
	f.wg.Wait()
}
