package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rizkyab/dicerita/internal/client/api"
	"github.com/rizkyab/dicerita/internal/client/config"
	"github.com/rizkyab/dicerita/internal/client/imagecache"
	"github.com/rizkyab/dicerita/internal/client/metrics"
	"github.com/rizkyab/dicerita/internal/client/offline"
	"github.com/rizkyab/dicerita/internal/client/store"
	"github.com/rizkyab/dicerita/internal/client/syncer"
	"github.com/rizkyab/dicerita/internal/logging"
)

// replNotifier prints drain summaries to the terminal so the user sees
// queued stories leave the device.
type replNotifier struct{}

func (replNotifier) SyncFinished(synced, failed int) {
	if synced == 0 && failed == 0 {
		return
	}
	fmt.Printf("\n[sync] %d operation(s) synced, %d failed\n", synced, failed)
}

type App struct {
	config   *config.Config
	log      logging.Logger
	store    *store.Store
	api      api.Client
	images   *imagecache.Manager
	sync     *syncer.Orchestrator
	facade   *offline.Facade
	userName string
	reader   *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	st := store.New(cfg.DatabasePath, log)
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing local database: %w", err)
	}

	apiClient := api.NewRESTClient(cfg.ServerBaseURL)

	orch := syncer.New(st, apiClient, replNotifier{}, log, syncer.Options{
		SettleDelay:     cfg.SyncSettleDelay,
		RefreshInterval: cfg.RefreshInterval,
	})

	images := imagecache.New(st, orch.Online, log, imagecache.Options{
		MaxCacheBytes:      cfg.MaxCacheBytes,
		EvictAge:           cfg.ImageEvictAge,
		PreloadConcurrency: cfg.PreloadConcurrency,
	})

	facade := offline.New(st, apiClient, images, orch, log)

	a := &App{
		config: cfg,
		log:    log,
		store:  st,
		api:    apiClient,
		images: images,
		sync:   orch,
		facade: facade,
		reader: bufio.NewReader(os.Stdin),
	}

	if facade.RestoreSession(ctx) {
		if s, _ := facade.CurrentSession(ctx); s != nil {
			a.userName = s.Name
		}
	}
	return a, nil
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.sync.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

// Run starts the background workers and the interactive loop, and blocks
// until the user exits.
func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.store.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	go a.sync.Run(ctx)

	if a.config.MetricsAddr != "" {
		go a.serveMetrics(ctx)
	}

	fmt.Println("Dicerita CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

// StartOnlineStatusWatcher probes the API on a fixed interval and feeds the
// result to the sync orchestrator, which owns the online/offline transition
// logic.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.api.Ping(pctx)
			cancel()
			a.sync.SetOnline(ctx, err == nil)

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: a.config.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Error(ctx, "metrics server failed", "addr", a.config.MetricsAddr, "error", err)
	}
}
