package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/viper"

	"github.com/Veraticus/quotewright/internal/app"
	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/config"
)

// openApp loads the configuration and builds the application context.
// Callers close it with closeApp.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

// closeApp flushes pending preference saves even when ctx was canceled.
func closeApp(ctx context.Context, a *app.App) {
	if err := a.Close(context.WithoutCancel(ctx)); err != nil {
		common.LogError(slog.Default(), err, "Failed to close application", nil)
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("%q is not a valid %s id", s, what), common.ErrInvalidInput)
	}
	return id, nil
}
