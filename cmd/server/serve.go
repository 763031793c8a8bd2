package main

import (
	"alcyxob/plan-tracker/internal/api"
	"alcyxob/plan-tracker/internal/service"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			startCtx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			a, err := newApp(startCtx, cfg, log)
			cancel()
			if err != nil {
				return err
			}
			defer a.Close()

			// --- Services ---
			svc := api.Services{
				Users:       service.NewUserService(a.repos.Users, log),
				Plans:       service.NewPlanService(a.repos.Plans, a.files, a.locker, log),
				Assignments: service.NewAssignmentService(a.repos.Plans, a.repos.Assignments, a.locker, log),
				Progress:    service.NewProgressService(a.repos.Plans, a.repos.Assignments, a.repos.Progress, a.locker, log),
			}

			gin.SetMode(gin.ReleaseMode)
			router := gin.New()
			router.Use(gin.Recovery())
			api.SetupRoutes(router, api.RouterConfig{
				JWTSecret:      cfg.JWT.Secret,
				JWTIssuer:      cfg.JWT.Issuer,
				RequestTimeout: cfg.Server.RequestTimeout,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
			}, log, svc)

			server := &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  120 * time.Second,
			}

			// --- Graceful Shutdown ---
			serveErr := make(chan error, 1)
			go func() {
				log.Info("server starting", zap.String("addr", cfg.Server.Address), zap.String("version", Version))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-serveErr:
				if err != nil {
					return err
				}
				return nil
			case sig := <-quit:
				log.Info("shutting down server", zap.String("signal", sig.String()))
			}

			ctx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancelShutdown()
			if err := server.Shutdown(ctx); err != nil {
				return err
			}
			log.Info("server exited")
			return nil
		},
	}
}
