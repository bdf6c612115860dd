package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/joeycumines/go-udpflood/flood"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseArgs runs the root command with args, returning the settings that
// would have been used.
func parseArgs(t *testing.T, args ...string) (*settings, error) {
	t.Helper()
	var result *settings
	cmd := newRootCommand(func(_ context.Context, s *settings, _ *cobra.Command) error {
		v := *s
		result = &v
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	return result, nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), `udp-flood.toml`)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFlags_defaults(t *testing.T) {
	s, err := parseArgs(t)
	require.NoError(t, err)
	if diff := cmp.Diff(defaultSettings(), s, cmp.AllowUnexported(settings{})); diff != `` {
		t.Errorf("unexpected settings (-want +got):\n%s", diff)
	}
	cfg, err := s.floodConfig(4)
	require.NoError(t, err)
	assert.Equal(t, flood.DefaultConfig(), cfg)
	assert.Equal(t, logiface.LevelInformational, s.logLevel())
}

func TestFlags_ranges(t *testing.T) {
	for _, tc := range [...]struct {
		name     string
		args     []string
		min, max int
	}{
		{`port`, []string{`-p`, `80`}, 80, 80},
		{`port long`, []string{`--port=8080`}, 8080, 8080},
		{`port min max`, []string{`--port-min`, `1000`, `--port-max`, `2000`}, 1000, 2000},
		{`port then min`, []string{`-p`, `80`, `--port-min`, `10`}, 10, 80},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := parseArgs(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.min, s.PortMin)
			assert.Equal(t, tc.max, s.PortMax)
		})
	}

	s, err := parseArgs(t, `-s`, `100`, `--size-max`, `200`)
	require.NoError(t, err)
	assert.Equal(t, 100, s.SizeMin)
	assert.Equal(t, 200, s.SizeMax)
}

func TestFlags_all(t *testing.T) {
	s, err := parseArgs(t,
		`-a`, `10.0.*.*`,
		`-t`, `250`,
		`-w`, `0`,
		`-v`,
		`--raw-stats`,
		`--log-format`, `console`,
		`--send-buffer`, `65536`,
		`--cpu-affinity`,
	)
	require.NoError(t, err)
	assert.Equal(t, `10.0.*.*`, s.Address)
	assert.True(t, s.RawStats)
	assert.True(t, s.CPUAffinity)
	assert.Equal(t, 65536, s.SendBuffer)
	assert.Equal(t, logiface.LevelTrace, s.logLevel())

	cfg, err := s.floodConfig(3)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestFlags_verboseQuietExclusive(t *testing.T) {
	_, err := parseArgs(t, `-v`, `-q`)
	require.Error(t, err)

	s, err := parseArgs(t, `-q`, `--log-level`, `debug`)
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelError, s.logLevel())
}

func TestFlags_invalid(t *testing.T) {
	_, err := parseArgs(t, `--log-level`, `loud`)
	require.Error(t, err)

	_, err = parseArgs(t, `-p`, `eighty`)
	require.Error(t, err)

	_, err = parseArgs(t, `extra`)
	require.Error(t, err)
}

func TestSettings_floodConfig_invalid(t *testing.T) {
	s := defaultSettings()
	s.PortMin = 0
	s.SizeMax = 5000
	s.Timeout = -1
	s.Workers = 1025
	s.Address = `1.2.3.4:5`
	s.Log.Format = `xml`
	s.SendBuffer = -1

	_, err := s.floodConfig(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, flood.ErrInvalidConfig)
	for _, msg := range [...]string{
		`invalid minimal 0 or maximal port 55555`,
		`invalid minimal 4096 or maximal size 5000`,
		`invalid timeout -1`,
		`invalid workers count 1025`,
		`invalid address 1.2.3.4:5`,
		`invalid log format "xml"`,
		`invalid send buffer -1`,
	} {
		assert.ErrorContains(t, err, msg)
	}
}

func TestSettings_loadFile(t *testing.T) {
	path := writeConfig(t, `
address = "192.168.*.1"
port = 9000
port_max = 9100
size = 512
timeout = 10
workers = 4
raw_stats = true

[log]
level = "debug"
format = "console"
max_backups = 1
`)

	s, err := parseArgs(t, `--config`, path)
	require.NoError(t, err)
	assert.Equal(t, `192.168.*.1`, s.Address)
	assert.Equal(t, 9000, s.PortMin)
	assert.Equal(t, 9100, s.PortMax)
	assert.Equal(t, 512, s.SizeMin)
	assert.Equal(t, 512, s.SizeMax)
	assert.Equal(t, 10, s.Timeout)
	assert.Equal(t, 4, s.Workers)
	assert.True(t, s.RawStats)
	assert.Equal(t, logiface.LevelDebug, s.logLevel())
	assert.Equal(t, logFormatConsole, s.Log.Format)
	assert.Equal(t, 1, s.Log.MaxBackups)
	assert.Equal(t, 7, s.Log.MaxAge)
	assert.Equal(t, path, s.configFile)
}

func TestSettings_loadFile_flagsOverride(t *testing.T) {
	path := writeConfig(t, `
address = "::1"
port = 9000
workers = 4

[log]
level = "debug"
`)

	s, err := parseArgs(t, `--config`, path, `-p`, `53`, `--port-max`, `54`, `-w`, `2`, `-q`)
	require.NoError(t, err)
	assert.Equal(t, `::1`, s.Address)
	assert.Equal(t, 53, s.PortMin)
	assert.Equal(t, 54, s.PortMax)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, logiface.LevelError, s.logLevel())
}

func TestSettings_loadFile_errors(t *testing.T) {
	for _, tc := range [...]struct {
		name    string
		content string
		err     string
	}{
		{`unknown key`, "address = \"::1\"\nbogus = 1\n", `unsupported key bogus`},
		{`bad level`, "[log]\nlevel = \"loud\"\n", `unknown log level "loud"`},
		{`syntax`, "address = \n", `config file`},
		{`type`, "port = \"80\"\n", `config file`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseArgs(t, `--config`, writeConfig(t, tc.content))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.err)
		})
	}

	_, err := parseArgs(t, `--config`, filepath.Join(t.TempDir(), `missing.toml`))
	require.Error(t, err)
}

func TestRootCommand_version(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand(func(context.Context, *settings, *cobra.Command) error {
		t.Error(`unexpected run`)
		return nil
	})
	cmd.SetArgs([]string{`--version`})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Version 2.0, (c) 2021\n", out.String())
}

func TestRootCommand_help(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand(func(context.Context, *settings, *cobra.Command) error {
		t.Error(`unexpected run`)
		return nil
	})
	cmd.SetArgs([]string{`--help`})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	for _, s := range [...]string{
		`Notes:`,
		`Defaults:`,
		`    --port       55555`,
		`Limits:`,
		`    --timeout    0 <= timeout <= 3600000`,
		`    --workers    1 <= workers <= 1024`,
		`-p, --port int`,
		`--log-level level`,
	} {
		assert.Contains(t, out.String(), s)
	}
}

func TestSettings_floodConfig_timeoutRange(t *testing.T) {
	for _, tc := range [...]struct {
		timeout int
		valid   bool
	}{
		{0, true},
		{3600000, true},
		{3600001, false},
		{-1, false},
		// wraps into range if converted to a duration first
		{18446744073710, false},
	} {
		t.Run(strconv.Itoa(tc.timeout), func(t *testing.T) {
			s := defaultSettings()
			s.Timeout = tc.timeout
			cfg, err := s.floodConfig(1)
			if !tc.valid {
				require.Error(t, err)
				assert.ErrorIs(t, err, flood.ErrInvalidConfig)
				assert.ErrorContains(t, err, `invalid timeout `+strconv.Itoa(tc.timeout))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.Duration(tc.timeout)*time.Millisecond, cfg.Timeout)
		})
	}
}
