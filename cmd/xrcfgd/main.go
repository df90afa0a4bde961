// xrcfgd is the IOS-XR switch configuration daemon.
//
// It keeps the active base configuration of a switch, accepts
// switchport-style change inputs and serves the generated IOS-XR commands
// over HTTP and gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/daemon"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configFile := flag.String("config", "", "YAML options file")
	baseFile := flag.String("base", daemon.DefaultBaseFile, "base configuration file path")
	apiAddr := flag.String("api-addr", daemon.DefaultAPIAddr, "HTTP API listen address (empty to disable)")
	grpcAddr := flag.String("grpc-addr", daemon.DefaultGRPCAddr, "gRPC API listen address (empty to disable)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN for revision storage (replaces -base)")
	syslogAddr := flag.String("syslog", "", "remote syslog server host[:port]")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	opts := daemon.Options{
		BaseFile: *baseFile,
		APIAddr:  *apiAddr,
		GRPCAddr: *grpcAddr,
	}
	if *configFile != "" {
		var err error
		if opts, err = daemon.LoadOptions(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "xrcfgd: %v\n", err)
			os.Exit(1)
		}
	}

	// Explicit flags win over the options file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base":
			opts.BaseFile = *baseFile
		case "api-addr":
			opts.APIAddr = *apiAddr
		case "grpc-addr":
			opts.GRPCAddr = *grpcAddr
		case "dsn":
			opts.DSN = *dsn
		case "debug":
			opts.Debug = *debug
		case "syslog":
			opts.Syslog = append(opts.Syslog, daemon.SyslogOptions{Address: *syslogAddr})
		}
	})
	opts.Version = version

	d := daemon.New(opts)
	if err := d.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "xrcfgd: %v\n", err)
		os.Exit(1)
	}
}
