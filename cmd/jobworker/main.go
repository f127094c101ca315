// jobworker runs one process's worker loops: it connects to RabbitMQ,
// registers the functions this process serves, and consumes task
// messages for each of them until told to stop.
//
// Worker:
//   - Pulls task messages off each registered function's task queue
//   - Executes the function body under a retry loop
//   - Publishes a result envelope back to the caller's reply queue
//
// Workers scale horizontally: any number of processes can register the
// same function name and RabbitMQ load-balances deliveries across them.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/envconfig"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/job"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/mqtransport"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/rabbitmq"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/telemetry"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "jobworker",
		Short:         "MediaCloud::JobManager worker — consumes tasks for its registered functions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWorker,
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registry builds the set of functions this process serves. A real
// deployment registers its own functions; this binary ships the one
// from the worked example so it is runnable out of the box.
func registry() *job.Registry {
	r := job.NewRegistry()
	_ = r.Register(job.New("Addition", func(ctx context.Context, args map[string]any) (any, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return a + b, nil
	}))
	return r
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := telemetry.SetupLogger()
	logger.Info("starting jobworker", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	pool := mqtransport.NewPool(logger)
	defer pool.CloseAll()

	b := rabbitmq.New(pool, envconfig.ConnConfig(), rabbitmq.Options{
		Metrics: metrics,
		Logger:  logger,
	})
	defer b.Close()

	cfg := job.Default()
	if err := cfg.SetBroker(b); err != nil {
		logger.Error("failed to set broker", "error", err)
		os.Exit(1)
	}
	cfg.Lock()

	reg := registry()

	var (
		wg        sync.WaitGroup
		errMu     sync.Mutex
		workerErr error
	)
	for _, name := range reg.Names() {
		fn, err := reg.Get(name)
		if err != nil {
			logger.Error("failed to look up registered function", "function", name, "error", err)
			os.Exit(1)
		}

		wg.Add(1)
		go func(fn *job.Function) {
			defer wg.Done()
			logger.Info("worker started", "function", fn.Name())
			if err := fn.StartWorker(ctx, cfg); err != nil && ctx.Err() == nil {
				logger.Error("worker stopped with error", "function", fn.Name(), "error", err)
				errMu.Lock()
				if workerErr == nil {
					workerErr = err
				}
				errMu.Unlock()
				cancel()
			}
		}(fn)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := envconfig.MetricsAddr()
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	wg.Wait()
	logger.Info("jobworker stopped")
	return workerErr
}
