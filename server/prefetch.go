package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tidefall/cityscout/mcp"
	"github.com/tidefall/cityscout/weather"
)

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// Prefetcher warms the response cache on a schedule by dispatching weather
// lookups for the configured cities through the normal call path, so
// interactive callers hit a fresh cache instead of the upstream APIs.
type Prefetcher struct {
	cfg        PrefetchConfig
	dispatcher *mcp.Dispatcher
	logger     *slog.Logger
	runner     *cron.Cron
}

// NewPrefetcher builds a prefetcher; call Start to begin scheduling.
func NewPrefetcher(cfg PrefetchConfig, dispatcher *mcp.Dispatcher, logger *slog.Logger) *Prefetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start validates the schedule and begins periodic warming. With no
// schedule or no cities configured it is a no-op.
func (p *Prefetcher) Start() error {
	if p.cfg.Schedule == "" || len(p.cfg.Cities) == 0 {
		return nil
	}
	if _, err := standardCronParser.Parse(p.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid prefetch schedule %q: %w", p.cfg.Schedule, err)
	}

	p.runner = cron.New(cron.WithParser(standardCronParser), cron.WithLocation(time.UTC))
	if _, err := p.runner.AddFunc(p.cfg.Schedule, p.warm); err != nil {
		return err
	}
	p.runner.Start()
	p.logger.Info("prefetch scheduler started",
		"schedule", p.cfg.Schedule,
		"cities", len(p.cfg.Cities))
	return nil
}

// Stop halts scheduling and waits for a running warm pass to finish.
func (p *Prefetcher) Stop() {
	if p.runner == nil {
		return
	}
	<-p.runner.Stop().Done()
}

func (p *Prefetcher) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, city := range p.cfg.Cities {
		args, err := json.Marshal(map[string]any{"city": city})
		if err != nil {
			continue
		}
		if _, err := p.dispatcher.Dispatch(ctx, weather.ToolName, args); err != nil {
			p.logger.Warn("prefetch failed", "city", city, "error", err)
		}
	}
}
