package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signaling-relay/internal/database"
	"signaling-relay/internal/handler/ws"
	"signaling-relay/internal/repository/memory"
	redisRepo "signaling-relay/internal/repository/redis"
	"signaling-relay/internal/service/signaling"
	"signaling-relay/internal/service/turn"
	"signaling-relay/pkg/auth"
	"signaling-relay/pkg/config"
	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/logger"
	"signaling-relay/pkg/metrics"
)

var baseFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "port",
		Usage:   "HTTP and WebSocket listen port",
		EnvVars: []string{"PORT"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "debug, info, warn or error",
		EnvVars: []string{"LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:  "dev",
		Usage: "console logging at debug level and gin debug mode",
	},
}

func main() {
	app := &cli.App{
		Name:   "signaling-server",
		Usage:  "WebRTC call signaling relay with TURN credential vending",
		Flags:  baseFlags,
		Action: startServer,
		Commands: []*cli.Command{
			{
				Name:   "create-token",
				Usage:  "create a signed JWT for local testing (AUTH_MODE=jwt)",
				Action: createToken,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user-id",
						Usage:    "identity carried by the token",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "optional email claim",
					},
					&cli.DurationFlag{
						Name:  "valid-for",
						Usage: "token lifetime",
						Value: 24 * time.Hour,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func getConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if c.Bool("dev") {
		cfg.Server.Environment = "development"
		cfg.Log.Format = "console"
		cfg.Log.Output = "stdout"
		if !c.IsSet("log-level") {
			cfg.Log.Level = "debug"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func startServer(c *cli.Context) error {
	cfg, err := getConfig(c)
	if err != nil {
		return err
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		ServiceName: cfg.Server.ServiceName,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if !c.Bool("dev") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(cfg.Server.ServiceName)

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create credential verifier: %w", err)
	}

	var mirror signaling.PresenceMirror
	if cfg.RedisEnabled() {
		redisClient, err := database.NewRedisDB(&database.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Timeout:  cfg.Redis.Timeout,
		}, m)
		if err != nil {
			logger.Warn("Presence mirror disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			if err := redisClient.HealthCheck(ctx); err != nil {
				logger.Warn("Redis unreachable at startup, mirroring in degraded mode", zap.Error(err))
			}
			redisClient.StartHealthCheck(ctx, 10*time.Second)

			store := redisRepo.NewPresenceRepository(redisClient, constants.PresenceTTL)
			pm := redisRepo.NewPresenceMirror(store, constants.PresenceMirrorBuffer, constants.PresenceTTL/2, m)
			pm.Start()
			defer pm.Stop()
			mirror = pm
		}
	}

	relay := signaling.NewService(memory.NewPresenceRepository(), memory.NewCallRepository(), signaling.Options{
		CallTimeout: cfg.Signaling.CallTimeout,
		Mirror:      mirror,
		Recorder:    m,
	})
	defer relay.Shutdown()

	credentials := turn.NewService(turn.ProvidersFromConfig(cfg.TURN, nil), cfg.TURN.ProviderTimeout, m)

	hub := ws.NewHub(relay, ws.HubConfig{
		AllowedOrigins: cfg.Signaling.AllowedOrigins,
		MaxConnections: cfg.Signaling.MaxConnections,
	}, m)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: newRouter(routerDeps{
			cfg:         cfg,
			metrics:     m,
			verifier:    verifier,
			relay:       relay,
			credentials: credentials,
			hub:         hub,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Signaling server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("auth_mode", cfg.Auth.Mode),
			zap.Bool("redis", mirror != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down signaling server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
		defer cancel()

		// Hijacked WebSockets are not tracked by http.Server
		hub.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Signaling server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Signaling server exited")
	return nil
}
