package main

import (
	"fmt"
	stdslog "log/slog"
	"os"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/swrcache"
	swrlogrus "github.com/unkn0wn-root/swrcache/log/logrus"
	swrslog "github.com/unkn0wn-root/swrcache/log/slog"
	swrzap "github.com/unkn0wn-root/swrcache/log/zap"
)

type logging struct {
	cache swrcache.Logger
	// hooks receives sampled self-heal and storage fault records.
	hooks *stdslog.Logger
	sync  func()
}

func newLogging(backend, level string) (logging, error) {
	var sl stdslog.Level
	if err := sl.UnmarshalText([]byte(level)); err != nil {
		return logging{}, fmt.Errorf("log level %q: %w", level, err)
	}
	hooks := stdslog.New(stdslog.NewJSONHandler(os.Stderr, &stdslog.HandlerOptions{Level: sl}))

	switch backend {
	case "zap":
		zc := zap.NewProductionConfig()
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return logging{}, fmt.Errorf("log level %q: %w", level, err)
		}
		zc.Level = lvl
		zl, err := zc.Build()
		if err != nil {
			return logging{}, err
		}
		return logging{
			cache: swrzap.New(zl, "swrcache"),
			hooks: hooks,
			sync:  func() { _ = zl.Sync() },
		}, nil
	case "logrus":
		ll := logrus.New()
		ll.SetFormatter(&logrus.JSONFormatter{})
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return logging{}, fmt.Errorf("log level %q: %w", level, err)
		}
		ll.SetLevel(lvl)
		return logging{cache: swrlogrus.New(ll, "swrcache"), hooks: hooks, sync: func() {}}, nil
	case "slog":
		return logging{cache: swrslog.Logger{L: hooks.With("component", "swrcache")}, hooks: hooks, sync: func() {}}, nil
	}
	return logging{}, fmt.Errorf("unknown log backend %q", backend)
}
