package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/webforge/backend/internal/infrastructure/config"
)

func TestBuildServiceInfo(t *testing.T) {
	info := BuildServiceInfo(8000, "1.2.3", true)

	assert.True(t, strings.HasPrefix(info.InstanceName, "webforge-"))
	assert.Equal(t, 8000, info.Port)
	assert.Equal(t, "1.2.3", info.TxtRecords["version"])
	assert.Equal(t, "/mcp/sse", info.TxtRecords["mcp"])

	off := BuildServiceInfo(8000, "1.2.3", false)
	assert.Equal(t, "off", off.TxtRecords["mcp"])
}

func TestTxtRecordsSorted(t *testing.T) {
	got := txtRecords(map[string]string{"version": "1", "api": "/api", "mcp": "off"})
	assert.Equal(t, []string{"api=/api", "mcp=off", "version=1"}, got)
}

func TestAdvertiser_StopWithoutStart(t *testing.T) {
	a := NewMDNSAdvertiser(&config.ServerConfig{Advertise: false})
	assert.False(t, a.Enabled())
	assert.False(t, a.IsRunning())
	a.Stop()
}
