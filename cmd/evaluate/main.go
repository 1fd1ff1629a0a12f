// cmd/evaluate replays historical bars from SQLite through strategies loaded
// from YAML, journals indicator outputs back to SQLite and, when Redis is
// configured, caches the latest outputs and publishes signals.
//
// Usage:
//
//	go run ./cmd/evaluate --strategies=strategies.yaml --speed=0 --from=0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"tautils/config"
	"tautils/internal/indicator"
	"tautils/internal/logger"
	"tautils/internal/metrics"
	"tautils/internal/model"
	"tautils/internal/replay"
	redisstore "tautils/internal/store/redis"
	sqlitestore "tautils/internal/store/sqlite"
	"tautils/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[evaluate] config: %v\n", err)
		os.Exit(1)
	}

	speed := flag.Float64("speed", 0, "Playback speed multiplier (0=max, 1=realtime, 100=100x)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start replay from (0=all)")
	strategyPath := flag.String("strategies", cfg.StrategyPath, "Path to the strategy YAML file")
	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite database")
	resume := flag.Bool("resume", false, "Restore indicator state from the latest snapshots before replay")
	flag.Parse()

	log := logger.Init(cfg.ServiceName, cfg.LogLevel)

	if err := run(cfg, options{
		speed:        *speed,
		fromTS:       *fromTS,
		strategyPath: *strategyPath,
		dbPath:       *dbPath,
		resume:       *resume,
	}, log); err != nil {
		log.Fatal().Err(err).Msg("[evaluate] failed")
	}
}

type options struct {
	speed        float64
	fromTS       int64
	strategyPath string
	dbPath       string
	resume       bool
}

type summary struct {
	bars         int
	evaluations  int
	outputs      int
	signals      map[strategy.Action]int
	incomparable int
	failures     int
}

func run(cfg *config.Config, opts options, log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	strategies, err := strategy.Load(opts.strategyPath)
	if err != nil {
		return fmt.Errorf("load strategies: %w", err)
	}

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.MetricsAddr, health)
		if err != nil {
			return err
		}
		defer srv.Close()
		log.Info().Str("addr", srv.Addr).Msg("[evaluate] metrics listening")
	}

	reader, err := sqlitestore.NewReader(opts.dbPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: opts.dbPath, BatchSize: cfg.BatchSize, Metrics: m})
	if err != nil {
		return err
	}
	defer writer.Close()
	health.CheckSQLite(ctx, writer.DB())

	var (
		redisW *redisstore.Writer
		latest *redisstore.BufferedWriter
	)
	if cfg.RedisEnabled() {
		health.SetRedisEnabled(true)
		redisW, err = redisstore.New(redisstore.WriterConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			LatestTTL: cfg.LatestTTL,
			Metrics:   m,
		})
		if err != nil {
			return err
		}
		defer redisW.Close()
		health.CheckRedis(ctx, redisW.Client())

		cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
		cb.OnStateChange = func(from, to redisstore.State) {
			log.Warn().Stringer("from", from).Stringer("to", to).Msg("[evaluate] redis circuit breaker")
		}
		latest = redisstore.NewBufferedWriter(redisW, cb, 0)
	}
	var rdb *goredis.Client
	if redisW != nil {
		rdb = redisW.Client()
	}
	health.StartLivenessChecker(ctx, rdb, writer.DB(), 15*time.Second)

	engine := strategy.NewEngine(cfg.SignalBuffer, strategy.WithMetrics(m), strategy.WithLogger(log))
	for _, s := range strategies {
		if opts.resume {
			if err := restore(reader, s, log); err != nil {
				return err
			}
		}
		if err := engine.Register(s); err != nil {
			return err
		}
	}

	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		if symbols, err = reader.ReadSymbols(); err != nil {
			return err
		}
	}

	// Journal in the background; the writer flushes whatever is left when
	// rowCh closes.
	rowCh := make(chan sqlitestore.OutputRow, 4*cfg.BatchSize)
	journalDone := make(chan struct{})
	go func() {
		writer.Run(context.Background(), rowCh)
		close(journalDone)
	}()

	dataCh := make(chan model.MarketData, 10000)
	replayErr := make(chan error, 1)
	go func() {
		_, err := replay.New(reader).Run(ctx, symbols, opts.fromTS, opts.speed, dataCh)
		close(dataCh)
		replayErr <- err
	}()

	sum := summary{signals: make(map[strategy.Action]int)}
	for md := range dataCh {
		sum.bars++
		bar, _ := md.Bar()
		health.ObserveBar(bar.Time())

		var batch []redisstore.Latest
		for _, ev := range engine.Step(md) {
			if ev.Err != nil {
				sum.failures++
				continue
			}
			if !ev.Ready {
				continue
			}
			sum.evaluations++
			sum.incomparable += ev.Incomparable

			s := strategyByName(strategies, ev.Strategy)
			for _, out := range ev.Resolved {
				shape, _ := s.Indicators().Shape(out.Name)
				rowCh <- sqlitestore.OutputRow{
					Strategy: ev.Strategy, Indicator: out.Name, Symbol: ev.Symbol,
					TS: ev.Time, Value: out.Value, Shape: shape,
				}
				sum.outputs++
				if latest != nil {
					batch = append(batch, redisstore.Latest{
						Strategy: ev.Strategy, Indicator: out.Name, Symbol: ev.Symbol,
						TS: ev.Time, Value: out.Value, Shape: shape,
					})
				}
			}

			for _, sig := range ev.Signals {
				sum.signals[sig.Action]++
				fmt.Printf("  [%s] %-16s %-4s %-12s @ %.2f  %s\n",
					sig.Time.Format("2006-01-02 15:04:05"), sig.StrategyName, sig.Action, sig.Symbol, sig.Price, sig.Reason)
				if redisW != nil {
					if err := redisW.PublishSignal(ctx, sig); err != nil {
						log.Warn().Err(err).Msg("[evaluate] publish signal")
					}
				}
			}
		}

		if latest != nil && len(batch) > 0 {
			if err := latest.WriteLatest(ctx, batch); err != nil {
				log.Warn().Err(err).Int("pending", latest.PendingCount()).Msg("[evaluate] redis latest write")
			}
		}
	}

	close(rowCh)
	<-journalDone

	for _, s := range strategies {
		if err := writer.SaveSnapshot(s.Name(), indicator.SnapshotSet(s.Indicators())); err != nil {
			log.Warn().Err(err).Str("strategy", s.Name()).Msg("[evaluate] save snapshot")
		}
	}

	printSummary(sum, len(strategies), symbols)

	if err := <-replayErr; err != nil && ctx.Err() == nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}

func restore(reader *sqlitestore.Reader, s *strategy.Strategy, log zerolog.Logger) error {
	snap, err := reader.ReadLatestSnapshot(s.Name())
	if err != nil {
		return err
	}
	if snap == nil {
		log.Info().Str("strategy", s.Name()).Msg("[evaluate] no snapshot, cold start")
		return nil
	}
	n, err := indicator.RestoreSet(s.Indicators(), *snap)
	if err != nil {
		return fmt.Errorf("restore %s: %w", s.Name(), err)
	}
	log.Info().Str("strategy", s.Name()).Int("restored", n).Msg("[evaluate] restored indicators")
	return nil
}

func strategyByName(ss []*strategy.Strategy, name string) *strategy.Strategy {
	for _, s := range ss {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func printSummary(sum summary, strategies int, symbols []string) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        EVALUATION COMPLETE           ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Bars replayed:     %-16d ║\n", sum.bars)
	fmt.Printf("║  Strategies:        %-16d ║\n", strategies)
	fmt.Printf("║  Symbols:           %-16d ║\n", len(symbols))
	fmt.Printf("║  Evaluations:       %-16d ║\n", sum.evaluations)
	fmt.Printf("║  Outputs journaled: %-16d ║\n", sum.outputs)
	fmt.Printf("║  Incomparable:      %-16d ║\n", sum.incomparable)
	fmt.Printf("║  Failures:          %-16d ║\n", sum.failures)
	fmt.Printf("║  BUY / SELL / EXIT: %-16s ║\n", fmt.Sprintf("%d / %d / %d",
		sum.signals[strategy.ActionBuy], sum.signals[strategy.ActionSell], sum.signals[strategy.ActionExit]))
	fmt.Println("╚══════════════════════════════════════╝")
}
