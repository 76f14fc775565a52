// Command replay drives one or more market.Market instances from
// scripted instruction feeds, the way the teacher's cmd/client exercises
// its TCP server end to end, without a real host runtime backing it
// (spec §1 Non-goals: account loading, signature checks, instruction
// framing are all out of scope for clobcore itself).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nyxmarkets/clobcore/internal/book"
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/config"
	"github.com/nyxmarkets/clobcore/internal/market"
	"github.com/nyxmarkets/clobcore/internal/quantity"
	"github.com/nyxmarkets/clobcore/internal/replay"
	"github.com/nyxmarkets/clobcore/internal/trader"
)

func main() {
	configPath := flag.String("config", "configs/replay.yaml", "path to market config")
	scriptGlob := flag.String("scripts", "", "glob of replay script JSON files (overrides config)")
	concurrency := flag.Int("concurrency", 4, "max scripts replayed concurrently")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runID := uuid.New().String()
	log.Logger = log.With().Str("runId", runID).Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Logging.Level))

	pattern := *scriptGlob
	if pattern == "" {
		pattern = cfg.Replay.ScriptPath
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		log.Fatal().Err(err).Str("pattern", pattern).Msg("invalid script glob")
	}
	if len(paths) == 0 {
		log.Fatal().Str("pattern", pattern).Msg("no replay scripts matched")
	}

	jobs := make([]replay.Job, 0, len(paths))
	for _, path := range paths {
		script, err := replay.LoadScript(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load script")
		}
		m, clock := newMarket(cfg)
		jobs = append(jobs, replay.Job{
			Name:   path,
			Runner: replay.NewRunner(m, clock),
			Script: script,
		})
	}

	done := make(chan error, 1)
	go func() { done <- replay.RunPool(jobs, *concurrency) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("replay interrupted")
		os.Exit(1)
	case err := <-done:
		if err != nil {
			log.Fatal().Err(err).Msg("replay run failed")
		}
		log.Info().Int("jobs", len(jobs)).Msg("replay run complete")
	}
}

func newMarket(cfg *config.Config) (*market.Market, *market.FixedClock) {
	header := &clobtypes.MarketHeader{
		TickSize:              quantity.QuoteLotsPerBaseUnitPerTick(cfg.Market.TickSize),
		BaseLotsPerBaseUnit:   quantity.BaseLotsPerBaseUnit(cfg.Market.BaseLotsPerBaseUnit),
		BaseAtomsPerBaseLot:   quantity.BaseAtomsPerBaseLot(cfg.Market.BaseAtomsPerBaseLot),
		QuoteAtomsPerQuoteLot: quantity.QuoteAtomsPerQuoteLot(cfg.Market.QuoteAtomsPerQuoteLot),
		FeeBps:                cfg.Market.FeeBps,
		Status:                clobtypes.MarketStatusActive,
	}
	b := book.NewOrderBook(cfg.Capacity.OrderBookPerSide)
	traders := trader.NewRegistry(cfg.Capacity.Traders)
	clock := market.NewFixedClock(1, 0)
	return market.New(header, b, traders, clock, market.AllowAllAuthority{}), clock
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
