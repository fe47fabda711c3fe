package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"klv-monitor/internal/auth"
	"klv-monitor/internal/collector/cpu"
	"klv-monitor/internal/collector/filesystem"
	"klv-monitor/internal/collector/memory"
	"klv-monitor/internal/collector/network"
	"klv-monitor/internal/collector/process"
	"klv-monitor/internal/config"
	"klv-monitor/internal/domain"
	"klv-monitor/internal/history"
	"klv-monitor/internal/hub"
	"klv-monitor/internal/logger"
	"klv-monitor/internal/prefs"
	"klv-monitor/internal/sampler"
	"klv-monitor/internal/source"
	"klv-monitor/internal/storage/sqlite"
	"klv-monitor/internal/transport/rest"
	"klv-monitor/internal/transport/websocket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	appLog := logger.New(cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("FATAL: KLV_JWT_SECRET is missing in .env or system vars!")
	}

	db, err := sqlite.NewDB(cfg.DBPath, appLog)
	if err != nil {
		appLog.Error("failed to open sqlite", "error", err)
		log.Fatal(err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	sampleRepo := sqlite.NewSampleRepository(db)

	authSvc := auth.NewService(userRepo, cfg)
	if err := authSvc.Bootstrap(ctx); err != nil {
		appLog.Warn("user bootstrap skipped", "error", err)
	}

	prefsStore := prefs.NewStore(cfg.PrefsPath, appLog)
	p, err := prefsStore.Load()
	if err != nil {
		if errors.Is(err, domain.ErrCorruptConfig) {
			appLog.Warn("preferences unreadable, using defaults", "path", cfg.PrefsPath, "error", err)
		} else {
			appLog.Error("failed to load preferences", "error", err)
		}
	}

	src := source.NewHostSource(appLog)
	metricsHub := hub.New(appLog)
	sched := sampler.New(metricsHub, appLog)

	cpuCollector := cpu.NewCollector(src, func() bool {
		return prefsStore.Current().ShowCPUFreq
	})
	memCollector := memory.NewCollector(src)
	netCollector := network.NewCollector(src, func() (bool, float64, bool) {
		cur := prefsStore.Current()
		return cur.SmoothNetwork, cur.EMAAlpha, cur.ExtraSmoothing
	})
	procEnumerator := process.NewEnumerator(src)
	fsCollector := filesystem.NewCollector(src, func() time.Duration {
		return 3 * prefsStore.Current().FSInterval()
	})

	register := func(class domain.MetricClass, interval time.Duration, producer sampler.Producer) {
		// Gated classes start hidden and idle until a consumer reports
		// their view visible.
		reg := sched.Register
		if slices.Contains(websocket.GatedClasses, class) {
			reg = sched.RegisterHidden
		}
		if err := reg(ctx, class, interval, producer); err != nil {
			appLog.Error("failed to register sampler", "class", class, "error", err)
		}
	}
	register(domain.ClassCPU, p.PlotInterval(), cpuCollector.Collect)
	register(domain.ClassMemory, p.PlotInterval(), memCollector.Collect)
	register(domain.ClassNetwork, p.PlotInterval(), netCollector.Collect)
	register(domain.ClassProcess, p.ProcessInterval(), procEnumerator.Collect)
	register(domain.ClassFilesystem, p.FSInterval(), fsCollector.Collect)
	defer sched.StopAll()

	// Preference changes retune cadences live; one class's change never
	// perturbs the others.
	prefsStore.OnChange(func(p prefs.Preferences) {
		sched.SetInterval(domain.ClassCPU, p.PlotInterval())
		sched.SetInterval(domain.ClassMemory, p.PlotInterval())
		sched.SetInterval(domain.ClassNetwork, p.PlotInterval())
		sched.SetInterval(domain.ClassProcess, p.ProcessInterval())
		sched.SetInterval(domain.ClassFilesystem, p.FSInterval())
	})

	wsHub := websocket.NewHub(sched, appLog)
	websocket.StreamSamples(ctx, wsHub, metricsHub, domain.Classes())

	recorder := history.New(sampleRepo, metricsHub,
		[]domain.MetricClass{domain.ClassCPU, domain.ClassMemory, domain.ClassNetwork},
		cfg.HistoryRetention, appLog)

	wsHandler := websocket.NewHandler(wsHub, authSvc, cfg, appLog)
	router := rest.NewRouter(cfg, appLog, &rest.RouterDeps{
		WS:      wsHandler,
		Metrics: rest.NewMetricsHandler(metricsHub, sampleRepo),
		Prefs:   rest.NewPrefsHandler(prefsStore),
		Auth:    rest.NewAuthHandler(authSvc),
		AuthSvc: authSvc,
	})
	srv := rest.NewServer(router, cfg.Address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		err := recorder.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		appLog.Info("starting http server", "address", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("daemon failed unexpectedly", "error", err)
	}

	// Persist whatever the operator last configured.
	if err := prefsStore.Save(prefsStore.Current()); err != nil {
		appLog.Error("failed to persist preferences on shutdown", "error", err)
	}

	appLog.Info("daemon stopped gracefully")
}
