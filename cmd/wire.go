package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/stars-relay/internal/adapters/httpapi"
	statusadapter "github.com/bnema/stars-relay/internal/adapters/render/status"
	"github.com/bnema/stars-relay/internal/adapters/state/jsonfile"
	redisstore "github.com/bnema/stars-relay/internal/adapters/state/redis"
	"github.com/bnema/stars-relay/internal/config"
	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/logx"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type rootFlags struct {
	configFile string
	envFile    string
}

type app struct {
	settings       config.Settings
	settingsPath   string
	store          ports.StateStore
	statusRenderer func([]domain.BuyerState, statusadapter.RenderOptions) (string, error)
	closers        []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *rootFlags) loadOptions() (config.LoadOptions, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.LoadOptions{}, fmt.Errorf("resolve working directory: %w", err)
	}
	return config.LoadOptions{ConfigFile: f.configFile, WorkDir: wd, EnvFile: f.envFile}, nil
}

func (f *rootFlags) settingsPath() (string, error) {
	if f.configFile != "" {
		return f.configFile, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return filepath.Join(wd, config.FileName), nil
}

// wireApp loads settings and opens the configured state store.
func wireApp(ctx context.Context, flags *rootFlags) (*app, error) {
	opts, err := flags.loadOptions()
	if err != nil {
		return nil, err
	}

	settings, path, err := config.Load(opts)
	if err != nil {
		return nil, err
	}

	a := &app{
		settings:       settings,
		settingsPath:   path,
		statusRenderer: statusadapter.Render,
	}

	store, closer, err := openStore(ctx, settings.State)
	if err != nil {
		return nil, fmt.Errorf("wire state store: %w", err)
	}
	a.store = store
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	return a, nil
}

func openStore(ctx context.Context, s config.StateSettings) (ports.StateStore, io.Closer, error) {
	switch s.Backend {
	case config.BackendRedis:
		client, err := redisstore.Config{URL: s.RedisURL, Prefix: s.RedisPrefix}.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client, s.RedisPrefix), client, nil
	default:
		store, err := jsonfile.Open(s.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

func initLogging(s config.LogSettings) (zerolog.Logger, io.Closer, error) {
	closer, err := logx.Init(logx.Options{Format: s.Format, Level: s.Level, File: s.File})
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("init logging: %w", err)
	}
	return logx.Logger(), closer, nil
}

func newRetrier(s config.APISettings, metrics ports.Metrics) httpapi.Retrier {
	return httpapi.Retrier{
		Attempts:      s.RetryAttempts,
		BackoffFactor: s.BackoffFactor,
		Clock:         ports.SystemClock{},
		Metrics:       metrics,
	}
}

func newLimiter(s config.ChatSettings) *rate.Limiter {
	if s.RateLimit <= 0 {
		return nil
	}
	burst := s.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.RateLimit), burst)
}
