package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_json(t *testing.T) {
	var buf bytes.Buffer
	s := defaultSettings()

	logger, closeLog, err := newLogger(s, &buf)
	require.NoError(t, err)
	defer closeLog()

	logger.Info().Int(`worker`, 2).Log(`hello`)
	logger.Debug().Log(`hidden`)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, `info`, line[logLevelField])
	assert.Equal(t, `hello`, line[logMessageField])
	assert.Equal(t, float64(2), line[`worker`])
	assert.Contains(t, line, logTimeField)
	assert.NotContains(t, buf.String(), `hidden`)
}

func TestNewLogger_levels(t *testing.T) {
	for _, tc := range [...]struct {
		name   string
		set    func(s *settings)
		trace  bool
		info   bool
		errors bool
	}{
		{`default`, func(*settings) {}, false, true, true},
		{`verbose`, func(s *settings) { s.verbose = true }, true, true, true},
		{`quiet`, func(s *settings) { s.quiet = true }, false, false, true},
		{`disabled`, func(s *settings) { require.NoError(t, s.Log.Level.Set(`disabled`)) }, false, false, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := defaultSettings()
			tc.set(s)

			logger, _, err := newLogger(s, &buf)
			require.NoError(t, err)

			logger.Trace().Log(`trace message`)
			logger.Info().Log(`info message`)
			logger.Err().Log(`error message`)

			assert.Equal(t, tc.trace, bytes.Contains(buf.Bytes(), []byte(`trace message`)))
			assert.Equal(t, tc.info, bytes.Contains(buf.Bytes(), []byte(`info message`)))
			assert.Equal(t, tc.errors, bytes.Contains(buf.Bytes(), []byte(`error message`)))
		})
	}
}

func TestNewLogger_console(t *testing.T) {
	var buf bytes.Buffer
	s := defaultSettings()
	s.Log.Format = logFormatConsole

	logger, _, err := newLogger(s, &buf)
	require.NoError(t, err)

	logger.Warning().Int(`worker`, 3).Str(`op`, `send`).Log(`worker halted`)

	out := buf.String()
	assert.Contains(t, out, `WARNING`)
	assert.Contains(t, out, `worker halted`)
	assert.Contains(t, out, `worker=3`)
	assert.Contains(t, out, `op=send`)
	assert.NotContains(t, out, `{`)
}

func TestNewLogger_file(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), `udp-flood.log`)
	s := defaultSettings()
	s.Log.File = path

	logger, closeLog, err := newLogger(s, &buf)
	require.NoError(t, err)

	logger.Info().Log(`to file`)
	require.NoError(t, closeLog())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"to file"`)
	assert.Zero(t, buf.Len())
}

func TestNewLogger_invalidFormat(t *testing.T) {
	s := defaultSettings()
	s.Log.Format = `xml`
	_, _, err := newLogger(s, new(bytes.Buffer))
	assert.EqualError(t, err, `invalid log format "xml"`)
}

func TestFormatConsoleLevel(t *testing.T) {
	assert.Equal(t, `INFO   `, formatConsoleLevel(`info`))
	assert.Equal(t, `ERR    `, formatConsoleLevel(`err`))
	assert.Equal(t, `???    `, formatConsoleLevel(nil))
}
