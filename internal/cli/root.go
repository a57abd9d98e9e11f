// Package cli implements the refcache command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/refcache"
	"github.com/unkn0wn-root/refcache/codec"
	"github.com/unkn0wn-root/refcache/config"
	zaplog "github.com/unkn0wn-root/refcache/log/zap"
)

// ErrNotFound is returned by commands whose key did not resolve.
var ErrNotFound = errors.New("not found")

// ErrExists is returned by add when the key already holds a value.
var ErrExists = errors.New("already exists")

// Opener builds a Setup from a config path.
type Opener func(path string) (*config.Setup, error)

// OpenFile loads path (or $REFCACHE_CONFIG) and opens it. With neither set it
// opens an in-memory store.
func OpenFile(path string) (*config.Setup, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNoPath) {
		cfg = &config.Config{}
	} else if err != nil {
		return nil, err
	}
	return config.Open(cfg)
}

type app struct {
	open    Opener
	cfgPath string
	debug   bool
	ttl     time.Duration

	log   *zap.Logger
	setup *config.Setup
	cache refcache.Cache[string]
}

// NewRootCmd returns the root command. open is called once per invocation.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "refcache",
		Short:         "Inspect and edit a refcache store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.start()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.stop(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Config file (default $"+config.EnvFile+")")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Debug logging")
	root.PersistentFlags().DurationVar(&a.ttl, "ttl", refcache.DefaultTTL, "TTL for writes; 0 never expires")

	root.AddCommand(a.getCmd(), a.setCmd(), a.addCmd(), a.delCmd(), a.hasCmd(), a.clearCmd(), a.groupCmd())
	return root
}

func (a *app) start() error {
	var err error
	if a.debug {
		a.log, err = zap.NewDevelopment()
	} else {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		a.log, err = zc.Build()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.setup, err = a.open(a.cfgPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.cache, err = refcache.New[string](refcache.Options[string]{
		Store:  a.setup.Store,
		Codec:  codec.String{},
		Logger: zaplog.New(a.log),
		Refs:   a.setup.Refs,
	})
	return err
}

func (a *app) stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if a.setup != nil {
		err = a.setup.Close(ctx)
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}
