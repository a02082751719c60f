package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/amachi/voicedeck/internal/infrastructure/configs"
	"github.com/amachi/voicedeck/internal/infrastructure/logging"
	"github.com/amachi/voicedeck/internal/infrastructure/metrics"
	"github.com/amachi/voicedeck/internal/infrastructure/ratelimiter"
	healthHandler "github.com/amachi/voicedeck/internal/presentation/handler/health"
	roomHandler "github.com/amachi/voicedeck/internal/presentation/handler/rooms"
	tokenHandler "github.com/amachi/voicedeck/internal/presentation/handler/tokens"
)

type Application struct {
	config         configs.Config
	roomHandler    *roomHandler.Handler
	healthHandler  *healthHandler.Handler
	tokenHandler   *tokenHandler.Handler
	metricsHandler http.Handler
	roomMetrics    *metrics.RoomMetrics
	logger         logging.Logger
	ratelimiter    ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	tokenHandler *tokenHandler.Handler,
	metricsHandler http.Handler,
	roomMetrics *metrics.RoomMetrics,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:         config,
		roomHandler:    roomHandler,
		healthHandler:  healthHandler,
		tokenHandler:   tokenHandler,
		metricsHandler: metricsHandler,
		roomMetrics:    roomMetrics,
		logger:         logger,
		ratelimiter:    ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.enableCors)
	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(app.rateLimiterMiddleware)

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", app.roomHandler.CreateRoomHandler)
				r.Get("/", app.roomHandler.ListRoomsHandler)
				r.Get("/{roomId}", app.roomHandler.GetRoomHandler)
				r.Delete("/{roomId}", app.roomHandler.CloseRoomHandler)

				r.Post("/{roomId}/join", app.roomHandler.JoinRoomHandler)
				r.Post("/{roomId}/leave", app.roomHandler.LeaveRoomHandler)
				r.Post("/{roomId}/hand", app.roomHandler.SetHandRaisedHandler)
				r.Post("/{roomId}/promote", app.roomHandler.PromoteHandler)
				r.Post("/{roomId}/demote", app.roomHandler.DemoteHandler)
				r.Post("/{roomId}/mute", app.roomHandler.MuteHandler)
				r.Post("/{roomId}/moderators", app.roomHandler.GrantModeratorHandler)
				r.Delete("/{roomId}/moderators/{uid}", app.roomHandler.RevokeModeratorHandler)
			})

			r.Get("/token", app.tokenHandler.IssueTokenHandler)
		})

		// The WebSocket feed outlives any request window, so it skips
		// the rate limiter entirely.
		r.Get("/rooms/{roomId}/subscribe", app.roomHandler.SubscribeHandler)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetReady)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Handle("/metrics", app.metricsHandler)

	return r
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      otelhttp.NewHandler(mux, "voicedeck-http"),
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
