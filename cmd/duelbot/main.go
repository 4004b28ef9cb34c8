// duelbot 是一个无界面的压测/联调客户端：连上服务端后随机移动，
// 用与正式客户端相同的预测与对账逻辑，退出时打印最终位置。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"duelsync/client"
	"duelsync/game"
	"duelsync/server"
)

func main() {
	url := flag.String("url", "ws://localhost:4004/ws", "server websocket url")
	level := flag.String("log-level", "info", "debug|info|warn|error")
	color := flag.String("color", "", "appearance color sent after connecting")
	duration := flag.Duration("duration", 0, "exit after this long; 0 runs until interrupted")
	idle := flag.Float64("idle", 0.3, "probability of sending no input on a tick")
	step := flag.Float64("step", game.DefaultWorld().Step, "movement per command (must match the server)")
	flag.Parse()

	cfg := client.DefaultConfig()
	cfg.World.Step = *step
	if err := run(*url, *level, *color, *duration, *idle, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(url, level, color string, duration time.Duration, idle float64, cfg client.Config) error {
	log, err := server.NewLogger("", level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	tr, err := client.Dial(ctx, url, log)
	if err != nil {
		return err
	}
	defer tr.Close()

	c := client.New(cfg, log, tr, nil)
	if color != "" {
		if err := c.SetColor(color); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tr.ReadLoop(ctx) })
	g.Go(func() error { return c.Run(ctx, tr.Incoming(), randomWalk(idle)) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Infof("bot %s stopped, last position %+v", c.PublicID, c.Position())
		return nil
	}
	return err
}

// randomWalk 每次采样保持同一方向一段时间，偶尔停下
func randomWalk(idle float64) client.InputSource {
	dirs := []game.Command{game.CmdUp, game.CmdDown, game.CmdLeft, game.CmdRight}
	cur := dirs[rand.Intn(len(dirs))]
	left := 0
	return func() []game.Command {
		if left == 0 {
			cur = dirs[rand.Intn(len(dirs))]
			left = 10 + rand.Intn(30)
		}
		left--
		if rand.Float64() < idle {
			return nil
		}
		return []game.Command{cur}
	}
}
