package command

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/nodestore-go/internal/cli/output"
	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/infra/confloader"
	"github.com/yndnr/nodestore-go/internal/infra/shutdown"
	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
	"github.com/yndnr/nodestore-go/internal/telemetry/metric"
	"github.com/yndnr/nodestore-go/pkg/nodestore"
)

// recentKeys is how many written keys each worker remembers for reads.
const recentKeys = 1024

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Run a concurrent write/read load against the store",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 8, Usage: "Concurrent workers"},
			&cli.IntFlag{Name: "ops", Aliases: []string{"n"}, Value: 10000, Usage: "Total operations (0 = until --duration or interrupt)"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Stop after this long"},
			&cli.Float64Flag{Name: "rate", Usage: "Operations per second across all workers (0 = unlimited)"},
			&cli.Float64Flag{Name: "read-ratio", Value: 0.5, Usage: "Fraction of operations that read a written key"},
			&cli.IntFlag{Name: "value-size", Value: 256, Usage: "Approximate payload size in bytes"},
			&cli.DurationFlag{Name: "ttl", Usage: "TTL for written nodes (default: store.default_ttl)"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address during the run"},
			&cli.BoolFlag{Name: "progress", Usage: "Show a progress bar on stderr"},
		},
		Action: runBench,
	}
}

// benchOptions is the parsed bench configuration.
type benchOptions struct {
	Workers   int
	Ops       int64
	Duration  time.Duration
	Rate      float64
	ReadRatio float64
	ValueSize int
	TTL       time.Duration
	HasTTL    bool
}

func parseBenchOptions(c *cli.Context) (benchOptions, error) {
	o := benchOptions{
		Workers:   c.Int("workers"),
		Ops:       int64(c.Int("ops")),
		Duration:  c.Duration("duration"),
		Rate:      c.Float64("rate"),
		ReadRatio: c.Float64("read-ratio"),
		ValueSize: c.Int("value-size"),
		TTL:       c.Duration("ttl"),
		HasTTL:    c.IsSet("ttl"),
	}
	switch {
	case o.Workers <= 0:
		return o, errors.New("--workers must be positive")
	case o.Ops < 0:
		return o, errors.New("--ops must not be negative")
	case o.Ops == 0 && o.Duration <= 0:
		return o, errors.New("--ops 0 requires --duration")
	case o.Rate < 0:
		return o, errors.New("--rate must not be negative")
	case o.ReadRatio < 0 || o.ReadRatio > 1:
		return o, errors.New("--read-ratio must be between 0 and 1")
	case o.ValueSize < 0:
		return o, errors.New("--value-size must not be negative")
	}
	return o, nil
}

func runBench(c *cli.Context) error {
	opts, err := parseBenchOptions(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	reg := metric.NewRegistry()
	s, err := openSession(c, reg)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(10 * time.Second)
	workersDone := make(chan struct{})

	// Hooks run in reverse: metrics server and watcher stop first, the
	// store closes once the workers have drained.
	h.OnShutdown(func(ctx context.Context) error {
		select {
		case <-workersDone:
		case <-ctx.Done():
		}
		return s.store.Close()
	})

	if addr := c.String("metrics-addr"); addr != "" {
		srv, err := serveMetrics(addr, reg)
		if err != nil {
			h.Trigger()
			close(workersDone)
			return errors.Join(err, h.Wait(ctxOf(c)))
		}
		s.logger.Info("serving metrics", "addr", srv.Addr)
		h.OnShutdown(srv.Shutdown)
	}

	if path := ParseGlobalFlags(c).ConfigFile; path != "" {
		stop, err := watchLogLevel(c, path, s)
		if err != nil {
			s.logger.Warn("config watch disabled", "error", err)
		} else {
			h.OnShutdown(func(context.Context) error { return stop() })
		}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- h.Wait(ctxOf(c)) }()

	ctx := h.Context()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	var progress *output.ProgressBar
	if c.Bool("progress") {
		progress = output.NewProgressBar(c.App.ErrWriter, "bench")
		progress.SetTotal(opts.Ops)
	}

	result := runWorkers(ctx, s.store, opts, progress)
	close(workersDone)
	if progress != nil {
		progress.Finish()
	}

	h.Trigger()
	if err := <-waitErr; err != nil {
		s.logger.Warn("shutdown", "error", err)
	}

	return render(c, result.table())
}

// serveMetrics starts the Prometheus endpoint. The listener is bound
// before returning so address errors surface immediately.
func serveMetrics(addr string, reg *metric.Registry) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return srv, nil
}

// watchLogLevel reloads log.level from the config file on change.
func watchLogLevel(c *cli.Context, path string, s *session) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(s.logger))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	overrides := ParseGlobalFlags(c).overrides()
	w.OnChange(func(changed string) {
		cfg, err := config.Load(changed, overrides)
		if err != nil {
			s.logger.Warn("config reload rejected", "path", changed, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			s.logger.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}

// opStats collects latencies of one operation kind.
type opStats struct {
	latencies []time.Duration
	errors    int64
	misses    int64
}

func (s *opStats) merge(o *opStats) {
	s.latencies = append(s.latencies, o.latencies...)
	s.errors += o.errors
	s.misses += o.misses
}

// benchResult is the outcome of a run.
type benchResult struct {
	elapsed time.Duration
	writes  opStats
	reads   opStats
}

func runWorkers(ctx context.Context, store *nodestore.Store, opts benchOptions, progress *output.ProgressBar) *benchResult {
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), opts.Workers)
	}

	var setOpts []nodestore.SetOption
	if opts.HasTTL {
		setOpts = append(setOpts, nodestore.WithTTL(opts.TTL))
	}
	pad := strings.Repeat("x", opts.ValueSize)

	var claimed atomic.Int64
	claim := func() bool {
		if opts.Ops == 0 {
			return true
		}
		return claimed.Add(1) <= opts.Ops
	}

	results := make([]benchResult, opts.Workers)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(start.UnixNano() + int64(w)))
			entropy := ulid.Monotonic(rng, 0)
			res := &results[w]
			keys := make([]string, 0, recentKeys)
			seq := 0

			for ctx.Err() == nil && claim() {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}

				if len(keys) > 0 && rng.Float64() < opts.ReadRatio {
					id := keys[rng.Intn(len(keys))]
					t0 := time.Now()
					_, found, err := store.Get(ctx, id)
					res.reads.latencies = append(res.reads.latencies, time.Since(t0))
					switch {
					case err != nil:
						res.reads.errors++
					case !found:
						res.reads.misses++
					}
				} else {
					id := "bench-" + strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
					value := map[string]any{"worker": w, "seq": seq, "pad": pad}
					seq++

					t0 := time.Now()
					err := store.Set(ctx, id, value, setOpts...)
					res.writes.latencies = append(res.writes.latencies, time.Since(t0))
					if err != nil {
						res.writes.errors++
					} else if len(keys) < recentKeys {
						keys = append(keys, id)
					} else {
						keys[rng.Intn(recentKeys)] = id
					}
				}

				if progress != nil {
					progress.Increment(1)
				}
			}
		}(w)
	}
	wg.Wait()

	total := &benchResult{elapsed: time.Since(start)}
	for i := range results {
		total.writes.merge(&results[i].writes)
		total.reads.merge(&results[i].reads)
	}
	return total
}

// table renders the per-operation summary.
func (r *benchResult) table() *output.Table {
	t := &output.Table{Headers: []string{"OP", "COUNT", "ERRORS", "MISSES", "P50", "P99", "MAX", "OPS/S"}}
	t.AddRow(r.row("set", &r.writes)...)
	t.AddRow(r.row("get", &r.reads)...)

	var all opStats
	all.merge(&r.writes)
	all.merge(&r.reads)
	t.AddRow(r.row("total", &all)...)
	return t
}

func (r *benchResult) row(op string, s *opStats) []string {
	sorted := append([]time.Duration(nil), s.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return []string{
		op,
		fmt.Sprint(len(sorted)),
		fmt.Sprint(s.errors),
		fmt.Sprint(s.misses),
		percentile(sorted, 0.50).String(),
		percentile(sorted, 0.99).String(),
		percentile(sorted, 1).String(),
		fmt.Sprintf("%.0f", r.throughput(len(sorted))),
	}
}

func (r *benchResult) throughput(n int) float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(n) / r.elapsed.Seconds()
}

// percentile returns the p-th percentile of sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted))*p+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx].Round(time.Microsecond)
}
