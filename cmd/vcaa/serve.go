package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/orchestrator"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const maxRequestLine = 8 << 20

func newServeCommand(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Read pipeline requests as JSON lines on stdin and write results to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// lineMessenger writes each result as one JSON line.
type lineMessenger struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (m *lineMessenger) Send(_ context.Context, recipient string, msg schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enc.Encode(map[string]any{"recipient": recipient, "message": msg})
}

func (a *app) serve(ctx context.Context, metricsAddr string) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	policy, err := a.policy()
	if err != nil {
		return err
	}
	sessions, err := a.sessions()
	if err != nil {
		return err
	}
	defer sessions.Close()

	o := orchestrator.New(sessions, a.interpreter(client), a.planner(client), &lineMessenger{enc: json.NewEncoder(a.out)}, orchestrator.Options{
		JanitorInterval: a.cfg.Orchestrator.JanitorInterval,
		Policy:          policy,
		Events:          a.events,
		Logger:          a.logger.Named("orchestrator"),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	observability.PrintBanner(os.Stderr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		liveStatus(ctx, o)
	}()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("Metrics listening", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err = a.readRequests(ctx, o)
	cancel()
	wg.Wait()
	return err
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// readRequests feeds stdin lines to the orchestrator until EOF or ctx is done.
// A malformed line is logged and skipped.
func (a *app) readRequests(ctx context.Context, o *orchestrator.Orchestrator) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), maxRequestLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			var req schema.PipelineRequest
			if err := json.Unmarshal(line, &req); err != nil {
				a.logger.Warn("Skipping malformed request", zap.Error(err))
				continue
			}
			if err := o.Deliver(ctx, &req); err != nil {
				a.logger.Error("Request failed", zap.String("trace_id", req.TraceID), zap.Error(err))
			}
		}
	}
}

func liveStatus(ctx context.Context, o *orchestrator.Orchestrator) {
	if !observability.IsTerminal(os.Stderr) {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.PrintLiveStatus(os.Stderr, o.Sessions(ctx))
		}
	}
}
