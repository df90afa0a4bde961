package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

const summaryBase = `interface FortyGigE0/0/0/46
 description To:server1
!
interface FortyGigE0/0/0/46.300 l2transport
 encapsulation dot1q 300
!
interface FortyGigE0/0/0/46.301 l2transport
 encapsulation dot1q 301
!
interface FortyGigE0/0/0/46.302 l2transport
 encapsulation dot1q 302
!
interface FortyGigE0/0/0/46.305 l2transport
 encapsulation dot1q 305
!
interface TenGigE0/0/0/1
 description uplink
!`

func summaryRows(t *testing.T, out string) [][]string {
	t.Helper()
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		rows = append(rows, strings.Fields(line))
	}
	return rows
}

func TestWriteSummary(t *testing.T) {
	m := config.Extract(config.Parse(summaryBase))

	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, m, ""))
	assert.Equal(t, [][]string{
		{"Interface", "VLANs", "Description"},
		{"FortyGigE0/0/0/46", "300-302", "305", "To:server1"},
		{"TenGigE0/0/0/1", "-", "uplink"},
	}, summaryRows(t, buf.String()))

	buf.Reset()
	require.NoError(t, writeSummary(&buf, m, "TenGigE"))
	assert.Equal(t, [][]string{
		{"Interface", "VLANs", "Description"},
		{"TenGigE0/0/0/1", "-", "uplink"},
	}, summaryRows(t, buf.String()))
}

func TestWriteSummaryUnknownType(t *testing.T) {
	m := config.Extract(config.Parse(summaryBase))
	var buf bytes.Buffer
	err := writeSummary(&buf, m, "HundredGigE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no interfaces of type HundredGigE")
	assert.Empty(t, buf.String())
}
