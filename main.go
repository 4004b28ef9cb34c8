package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"duelsync/server"
)

// duelsync 入口：启动 WebSocket 对战服务与监控接口
func main() {
	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :4004")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path (rotated); empty logs to stderr")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	flag.IntVar(&cfg.TickRate, "tps", cfg.TickRate, "authoritative ticks per second")
	flag.Float64Var(&cfg.World.Width, "width", cfg.World.Width, "world width")
	flag.Float64Var(&cfg.World.Height, "height", cfg.World.Height, "world height")
	flag.Float64Var(&cfg.World.Step, "step", cfg.World.Step, "movement per command (clients must match)")
	flag.StringVar(&cfg.Codec, "codec", cfg.Codec, "frame codec: json|msgpack")
	flag.Float64Var(&cfg.MessagesPerSecond, "msg-rate", cfg.MessagesPerSecond, "inbound messages per second per connection")
	flag.IntVar(&cfg.MessageBurst, "msg-burst", cfg.MessageBurst, "inbound message burst per connection")
	flag.IntVar(&cfg.ConnectsPerMinute, "conn-rate", cfg.ConnectsPerMinute, "connections per minute per IP")
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg server.Config) error {
	log, err := server.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv, err := server.NewServer(cfg, log, server.UUIDGenerator{})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.Handler()}

	// 优雅退出（Ctrl+C）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("duelsync listening on %s (tps=%d codec=%s)", cfg.Addr, cfg.TickRate, cfg.Codec)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		srv.Shutdown()
		return err
	})
	return g.Wait()
}
