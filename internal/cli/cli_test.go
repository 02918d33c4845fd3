package cli

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huereka/huereka/internal/config"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"127 1 0", []byte{0x7f, 0x01, 0x00}, false},
		{"0x7f,0x21, 0 0xFF", []byte{0x7f, 0x21, 0x00, 0xff}, false},
		{"010", []byte{10}, false},
		{"256", nil, true},
		{"zz", nil, true},
		{"", []byte{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBytes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, " (render, reset)", describe([]byte{0x7f, 35, 0, 0x7f, 99}))
	assert.Equal(t, "", describe([]byte{1, 2, 3}))
}

func TestParseAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	got, err := parseAt("", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = parseAt("21:30", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 21, 30, 0, 0, time.UTC), got)

	got, err = parseAt("2026-03-03T06:15:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 6, 15, 0, 0, time.UTC), got)

	_, err = parseAt("tonight", now)
	assert.Error(t, err)
}

const resolveConfig = `
database:
  path: %s
scheduler:
  timezone: UTC
managers:
  - id: porch
    port: /dev/null
    led_count: 10
  - id: hall
    port: /dev/null
    led_count: 10
    brightness: 40
profiles:
  - id: warm
    colors: ["#ff9600"]
schedules:
  - id: evening
    name: Evening
    manager: porch
    brightness: 120
    routines:
      - id: dusk
        profile: warm
        days: all
        start: "18:00"
        end: "23:00"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(resolveConfig, filepath.Join(dir, "huereka.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestResolveCommand(t *testing.T) {
	path := writeConfig(t)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resolve", "-c", path, "--at", "2026-03-02T19:00:00Z"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "2026-03-02T19:00:00Z (Monday)")
	assert.Regexp(t, `porch\s+evening\s+dusk\s+warm\s+120`, text)
	assert.Regexp(t, `hall\s+-\s+-\s+off\s+40`, text)
}

func TestResolveUnknownManager(t *testing.T) {
	path := writeConfig(t)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	opts := &ResolveOptions{RootOptions: &RootOptions{}, Manager: "garage"}
	err = runResolve(opts, cfg, &bytes.Buffer{}, time.Now())
	assert.ErrorContains(t, err, "garage")
}

func TestSendCommandOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		received <- buf[:n]
	}()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"send", "-c", filepath.Join(t.TempDir(), "absent.yaml"), "--port", "tcp://" + ln.Addr().String(), "0x7f", "35", "0"})
	require.NoError(t, cmd.Execute())

	select {
	case got := <-received:
		assert.Equal(t, []byte{0x7f, 35, 0}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no bytes received")
	}
	assert.Contains(t, out.String(), "sent 7f 23 00 (render)")
}
