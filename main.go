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

	"bouncybill/config"
	"bouncybill/physics"
	"bouncybill/server"
)

// Bouncy Bill 入口：启动 HTTP + WebSocket 服务、房间注册表与 60Hz 调度器
func main() {
	var addr, envFile string
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :3000 (overrides BOUNCY_ADDR)")
	flag.StringVar(&envFile, "env", ".env", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	consts, err := config.LoadPhysics(cfg.PhysicsFile, physics.Default())
	if err != nil {
		server.Log.Fatalf("physics: %v", err)
	}

	metrics := &server.Metrics{}
	reg := server.NewRegistry(server.Defaults{
		Constants:     consts,
		MatchDuration: cfg.MatchDuration,
		StartDelay:    cfg.StartDelay,
	}, time.Now, metrics)
	disp := server.NewDispatcher(reg, metrics)
	admin := &server.Admin{Registry: reg, Metrics: metrics, Check: config.Check}

	mux := http.NewServeMux()
	mux.Handle("/ws", &server.WSHandler{Registry: reg, Dispatcher: disp, Metrics: metrics})
	// 前后端分离：将 / 映射到静态资源目录
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", admin.HandleConfig)
	mux.HandleFunc("/admin/rooms", admin.HandleRooms)
	mux.HandleFunc("/metrics", admin.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := server.NewScheduler(reg, metrics, cfg.TickHz)
	go sched.Run(ctx)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		server.Log.Infof("Bouncy Bill listening on %s (tick %dHz, match %s)", cfg.Addr, cfg.TickHz, cfg.MatchDuration)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	server.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
