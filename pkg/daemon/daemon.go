// Package daemon implements the xrcfgd daemon lifecycle.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/api"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/configstore"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/grpcapi"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
)

// Daemon is the main xrcfg daemon.
type Daemon struct {
	opts    Options
	store   *configstore.Store
	events  *logging.EventBuffer
	handler *logging.Handler
	closer  io.Closer // SQL backend, when used
}

// New creates a new Daemon.
func New(opts Options) *Daemon {
	opts.setDefaults()
	return &Daemon{
		opts:   opts,
		events: logging.NewEventBuffer(opts.EventBufferSize),
	}
}

// Store returns the daemon's configuration store. It is nil until Run has
// opened the backend.
func (d *Daemon) Store() *configstore.Store {
	return d.store
}

func (d *Daemon) openStore(ctx context.Context) error {
	if d.opts.DSN == "" {
		d.store = configstore.New(configstore.NewFileBackend(d.opts.BaseFile))
		return nil
	}
	b, err := configstore.OpenSQLBackend(ctx, d.opts.DSN)
	if err != nil {
		return err
	}
	if err := b.EnsureSchema(ctx); err != nil {
		b.Close()
		return err
	}
	d.store = configstore.New(b)
	d.closer = b
	return nil
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	level := slog.LevelInfo
	if d.opts.Debug {
		level = slog.LevelDebug
	}
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	d.handler = logging.NewHandler(base, d.events)
	prev := slog.Default()
	slog.SetDefault(slog.New(d.handler))
	defer func() {
		d.handler.Close()
		slog.SetDefault(prev)
	}()
	d.applySyslog()

	slog.Info("starting xrcfg daemon",
		"base", d.opts.BaseFile,
		"sql", d.opts.DSN != "",
		"pid", os.Getpid())

	if err := d.openStore(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if d.closer != nil {
		defer d.closer.Close()
	}
	d.loadBase(ctx)

	// Handle signals for clean shutdown
	ctx, stop := signal.NotifyContext(ctx, unix.SIGTERM, unix.SIGINT)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, unix.SIGHUP)
	defer signal.Stop(hup)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if d.opts.APIAddr != "" {
		srv := api.NewServer(api.Config{
			Addr:      d.opts.APIAddr,
			HTTPSAddr: d.opts.HTTPSAddr,
			TLS:       d.opts.TLS,
			CertDir:   d.opts.CertDir,
			Auth:      d.opts.apiAuth(),
			Store:     d.store,
			EventBuf:  d.events,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				errCh <- fmt.Errorf("HTTP API: %w", err)
			}
		}()
	}
	if d.opts.GRPCAddr != "" {
		srv := grpcapi.NewServer(d.opts.GRPCAddr, grpcapi.Config{
			Store:    d.store,
			EventBuf: d.events,
			Version:  d.opts.Version,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				errCh <- fmt.Errorf("gRPC API: %w", err)
			}
		}()
	}

	var runErr error
loop:
	for {
		select {
		case <-hup:
			slog.Info("SIGHUP received, reloading base configuration")
			d.loadBase(ctx)
			d.applySyslog()
		case err := <-errCh:
			runErr = err
			break loop
		case <-ctx.Done():
			slog.Info("signal received, shutting down")
			break loop
		}
	}

	// Cancel context to stop the servers, then wait for them.
	stop()
	wg.Wait()

	slog.Info("shutdown complete")
	return runErr
}

func (d *Daemon) loadBase(ctx context.Context) {
	if err := d.store.Load(ctx); err != nil {
		slog.Warn("failed to load base configuration, starting with empty config",
			"err", err)
		return
	}
	m := d.store.Model()
	slog.Info("base configuration loaded",
		"interfaces", len(m.Interfaces),
		"bridge_domains", len(m.Domains))
	d.events.Add(logging.EventRecord{
		Type:    logging.EventSetBase,
		Source:  "daemon",
		Message: "base configuration loaded",
	})
}

// applySyslog constructs syslog clients from the options and installs them
// on the log handler.
func (d *Daemon) applySyslog() {
	if d.handler == nil {
		return
	}
	var clients []*logging.SyslogClient
	for _, target := range d.opts.Syslog {
		tag := target.Tag
		if tag == "" {
			tag = "xrcfgd"
		}
		client, err := logging.NewSyslogClient(target.Address, tag)
		if err != nil {
			slog.Warn("failed to create syslog client",
				"address", target.Address, "err", err)
			continue
		}
		client.MinSeverity = logging.ParseSeverity(target.Severity)
		clients = append(clients, client)
	}
	d.handler.SetClients(clients)
	if len(clients) > 0 {
		slog.Info("syslog targets configured", "count", len(clients))
	}
}
