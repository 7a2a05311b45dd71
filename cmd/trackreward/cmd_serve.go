package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/metrics"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/rpc"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reward function over gRPC with Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// #region serve
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var recorder rpc.Recorder
	if cfg.Server.Record {
		st, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			return &exitCodeError{code: 2, err: err}
		}
		defer st.Close()
		recorder = st
		logger.Info("recording steps", zap.String("db", cfg.Store.Path))
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)}
	}
	gs := grpc.NewServer()
	rpc.RegisterRewardServiceServer(gs, rpc.NewServer(logger.Named("rpc"), collector, recorder))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
		return gs.Serve(lis)
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", cfg.Server.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		gs.GracefulStop()
		if metricsSrv != nil {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return &exitCodeError{code: 2, err: err}
	}
	return nil
}

// #endregion serve
