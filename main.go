// Command streamwatch is the main entrypoint for the live-status watcher.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres, runs idempotent migrations, and seeds platform
//     settings from bootstrap env credentials.
//   - Starts background loops: the poll cycle across Twitch/Kick/YouTube,
//     the newly-live notifier, and OAuth token refreshers for Twitch/Kick.
//   - Exposes an HTTP server with /healthz, /status, /settings, /poll,
//     /metrics, and the OAuth connect flows.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/streamwatch/config"
	"github.com/onnwee/streamwatch/db"
	"github.com/onnwee/streamwatch/kickapi"
	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/notify"
	"github.com/onnwee/streamwatch/oauth"
	"github.com/onnwee/streamwatch/poll"
	"github.com/onnwee/streamwatch/server"
	"github.com/onnwee/streamwatch/telemetry"
	"github.com/onnwee/streamwatch/twitchapi"
	"github.com/onnwee/streamwatch/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("streamwatch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	store := db.NewStore(database)

	// Seed platform settings from bootstrap env credentials. Merge semantics
	// keep anything already configured through the settings API.
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	for platform, seed := range cfg.PlatformSettings() {
		if err := store.SaveSettings(seedCtx, platform, seed); err != nil {
			slog.Error("failed to seed platform settings", slog.String("platform", platform), slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("seeded platform settings from env", slog.String("platform", platform), slog.Int("channels", len(seed.Channels)))
	}
	cancelSeed()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	twitchClient := &twitchapi.Client{Tokens: store}
	kickClient := &kickapi.Client{Tokens: store}
	poller := &poll.Service{
		Store:   store,
		Twitch:  twitchClient,
		Kick:    kickClient,
		YouTube: &youtubeapi.Client{},
	}
	go poller.Start(ctx, cfg.PollInterval)

	sinks := []notify.Sink{notify.LogSink{}}
	if sink, err := notify.NewTelegramSink(); err != nil {
		slog.Error("telegram sink init failed", slog.Any("err", err))
		os.Exit(1)
	} else if sink != nil {
		sinks = append(sinks, sink)
		slog.Info("telegram notifications enabled")
	}
	if sink, err := notify.NewDiscordSink(); err != nil {
		slog.Error("discord sink init failed", slog.Any("err", err))
		os.Exit(1)
	} else if sink != nil {
		sinks = append(sinks, sink)
		slog.Info("discord notifications enabled")
	}
	notifier := notify.New(store, sinks...)
	go notifier.Start(ctx, cfg.NotifyInterval)

	// Proactive token refreshers. The adapters also refresh lazily on 401,
	// so these only keep tokens warm between poll failures.
	oauth.StartRefresher(ctx, store, live.PlatformTwitch, cfg.TokenRefreshInterval, cfg.TokenRefreshWindow,
		func(rctx context.Context, st live.Settings) (string, string, time.Time, error) {
			res, err := twitchClient.Refresh(rctx, st.ClientID, st.ClientSecret, st.RefreshToken)
			if err != nil {
				return "", "", time.Time{}, err
			}
			return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), nil
		})
	oauth.StartRefresher(ctx, store, live.PlatformKick, cfg.TokenRefreshInterval, cfg.TokenRefreshWindow,
		func(rctx context.Context, st live.Settings) (string, string, time.Time, error) {
			res, err := kickClient.Refresh(rctx, st.ClientID, st.ClientSecret, st.RefreshToken)
			if err != nil {
				return "", "", time.Time{}, err
			}
			return res.AccessToken, res.RefreshToken, kickapi.ComputeExpiry(res.ExpiresIn), nil
		})

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	go func() {
		deps := server.Deps{Store: store, Poller: poller, Twitch: twitchClient}
		if err := server.Start(ctx, database, cfg.ListenAddr, deps); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}
