package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jo-hoe/gogallery/internal/backend"
	"github.com/jo-hoe/gogallery/internal/common"
	"github.com/jo-hoe/gogallery/internal/core"
	frontend "github.com/jo-hoe/gogallery/internal/frontend"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	// Load configuration
	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	core.ConfigureLogging(config.LogLevel)

	coreService, err := core.NewCoreService(context.Background(), config)
	if err != nil {
		slog.Error("failed to initialize core service", "error", err)
		os.Exit(1)
	}
	server := defineServer()

	apiService := backend.NewAPIService(config, coreService)
	apiService.SetRoutes(server)
	frontendService := frontend.NewFrontendService(config, coreService)
	frontendService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// event streams never end on their own
	frontendService.Close()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := coreService.Close(); err != nil {
		slog.Error("core service close error", "error", err)
	}
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Configure request logger to skip the probe endpoint
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogHost:      true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"host", v.Host,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				slog.Error("request failed", append(attrs, "error", v.Error)...)
			} else {
				slog.Info("request", attrs...)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = &common.RequestValidator{}

	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	return e
}
