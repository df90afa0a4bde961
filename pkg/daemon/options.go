package daemon

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/api"
)

// Default listen addresses.
const (
	DefaultBaseFile = "/etc/xrcfg/base.conf"
	DefaultAPIAddr  = "127.0.0.1:8080"
	DefaultGRPCAddr = "127.0.0.1:50051"
)

// Options configures the daemon.
type Options struct {
	BaseFile string `yaml:"base_file"` // base configuration file (file backend)
	DSN      string `yaml:"dsn"`       // PostgreSQL DSN; replaces the file backend when set

	APIAddr   string `yaml:"api_addr"` // empty disables the HTTP API
	HTTPSAddr string `yaml:"https_addr"`
	TLS       bool   `yaml:"tls"`
	CertDir   string `yaml:"cert_dir"`
	GRPCAddr  string `yaml:"grpc_addr"` // empty disables the gRPC API

	Auth   *AuthOptions    `yaml:"auth"`
	Syslog []SyslogOptions `yaml:"syslog"`

	EventBufferSize int  `yaml:"event_buffer_size"`
	Debug           bool `yaml:"debug"`

	Version string `yaml:"-"`
}

// AuthOptions lists API credentials. ReadOnlyKeys cannot change the
// configuration store.
type AuthOptions struct {
	Users        map[string]string `yaml:"users"`
	APIKeys      []string          `yaml:"api_keys"`
	ReadOnlyKeys []string          `yaml:"read_only_keys"`
}

// SyslogOptions is one remote syslog target.
type SyslogOptions struct {
	Address  string `yaml:"address"`
	Tag      string `yaml:"tag"`
	Severity string `yaml:"severity"` // error, warning, info; empty sends everything
}

// LoadOptions reads options from a YAML file. Unknown keys are rejected.
func LoadOptions(path string) (Options, error) {
	var opts Options
	f, err := os.Open(path)
	if err != nil {
		return opts, fmt.Errorf("reading options file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return opts, fmt.Errorf("parsing options %s: %w", path, err)
	}
	return opts, nil
}

func (o *Options) setDefaults() {
	if o.BaseFile == "" && o.DSN == "" {
		o.BaseFile = DefaultBaseFile
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = 1000
	}
	if o.CertDir == "" {
		o.CertDir = "/etc/xrcfg/certs"
	}
}

func (o *Options) apiAuth() *api.AuthConfig {
	a := o.Auth
	if a == nil || (len(a.Users) == 0 && len(a.APIKeys) == 0 && len(a.ReadOnlyKeys) == 0) {
		return nil
	}
	return &api.AuthConfig{
		Users:        a.Users,
		APIKeys:      lo.SliceToMap(a.APIKeys, func(k string) (string, bool) { return k, true }),
		ReadOnlyKeys: lo.SliceToMap(a.ReadOnlyKeys, func(k string) (string, bool) { return k, true }),
	}
}
