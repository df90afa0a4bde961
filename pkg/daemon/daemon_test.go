package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadOptions(t *testing.T) {
	path := writeFile(t, "xrcfgd.yaml", `base_file: /var/lib/xrcfg/base.conf
api_addr: 0.0.0.0:8080
grpc_addr: ""
auth:
  users:
    admin: secret
  api_keys: [k1, k2]
  read_only_keys: [dash]
syslog:
  - address: 192.0.2.10
    severity: warning
event_buffer_size: 200
`)
	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/xrcfg/base.conf", opts.BaseFile)
	assert.Equal(t, "0.0.0.0:8080", opts.APIAddr)
	assert.Empty(t, opts.GRPCAddr)
	assert.Equal(t, 200, opts.EventBufferSize)
	require.Len(t, opts.Syslog, 1)
	assert.Equal(t, "warning", opts.Syslog[0].Severity)

	auth := opts.apiAuth()
	require.NotNil(t, auth)
	assert.Equal(t, "secret", auth.Users["admin"])
	assert.True(t, auth.APIKeys["k2"])
	assert.True(t, auth.ReadOnlyKeys["dash"])
	assert.False(t, auth.APIKeys["dash"])
}

func TestLoadOptionsUnknownKey(t *testing.T) {
	path := writeFile(t, "bad.yaml", "api_address: 1.2.3.4:80\n")
	_, err := LoadOptions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_address")
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "reading options file")
}

func TestDefaults(t *testing.T) {
	var opts Options
	opts.setDefaults()
	assert.Equal(t, DefaultBaseFile, opts.BaseFile)
	assert.Equal(t, 1000, opts.EventBufferSize)
	assert.Nil(t, opts.apiAuth())

	sql := Options{DSN: "postgres://localhost/xrcfg"}
	sql.setDefaults()
	assert.Empty(t, sql.BaseFile)
}

func TestRunLoadsBase(t *testing.T) {
	base := writeFile(t, "base.conf", `interface FortyGigE0/0/0/46
 description To:server1
!
l2vpn
 bridge group VLAN
  bridge-domain VLAN300
  !
 !
!
`)
	d := New(Options{BaseFile: base})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	m := d.Store().Model()
	assert.Len(t, m.Interfaces, 1)
	assert.Len(t, m.Domains, 1)

	loaded := d.events.LatestFiltered(10, logging.EventFilter{Type: logging.EventSetBase})
	require.Len(t, loaded, 1)
	assert.Equal(t, "daemon", loaded[0].Source)
}

func TestRunMissingBase(t *testing.T) {
	d := New(Options{BaseFile: filepath.Join(t.TempDir(), "absent.conf")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Empty(t, d.Store().ShowActive())
}
