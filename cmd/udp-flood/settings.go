package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/go-udpflood/flood"
	"github.com/joeycumines/logiface"
	"github.com/spf13/pflag"
)

const (
	logFormatJSON    = `json`
	logFormatConsole = `console`
)

type (
	// settings models everything that may be configured, via flags or a TOML
	// file. Flags that were set explicitly take precedence over the file.
	settings struct {
		Address     string      `toml:"address"`
		PortMin     int         `toml:"port_min"`
		PortMax     int         `toml:"port_max"`
		SizeMin     int         `toml:"size_min"`
		SizeMax     int         `toml:"size_max"`
		Timeout     int         `toml:"timeout"`
		Workers     int         `toml:"workers"`
		SendBuffer  int         `toml:"send_buffer"`
		Log         logSettings `toml:"log"`
		CPUAffinity bool        `toml:"cpu_affinity"`
		RawStats    bool        `toml:"raw_stats"`

		// flag only
		configFile string
		verbose    bool
		quiet      bool
	}

	logSettings struct {
		Format     string     `toml:"format"`
		File       string     `toml:"file"`
		MaxSize    int        `toml:"max_size"`
		MaxAge     int        `toml:"max_age"`
		MaxBackups int        `toml:"max_backups"`
		Level      levelValue `toml:"level"`
	}

	// fileSettings adds the shorthand keys, that set both ends of a range.
	fileSettings struct {
		Port *int `toml:"port"`
		Size *int `toml:"size"`
		settings
	}

	// rangeValue is the value of a flag that sets both ends of a range.
	rangeValue struct {
		min   *int
		max   *int
		value int
	}
)

var _ pflag.Value = (*rangeValue)(nil)

func defaultSettings() *settings {
	return &settings{
		Address: flood.DefaultAddress,
		PortMin: flood.DefaultPort,
		PortMax: flood.DefaultPort,
		SizeMin: flood.DefaultSize,
		SizeMax: flood.DefaultSize,
		Timeout: int(flood.DefaultTimeout / time.Millisecond),
		Workers: flood.DefaultWorkers,
		Log: logSettings{
			Format:     logFormatJSON,
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
			Level:      levelValue(logiface.LevelInformational),
		},
	}
}

func newRangeValue(lo, hi *int) *rangeValue {
	return &rangeValue{min: lo, max: hi, value: *lo}
}

func (x *rangeValue) String() string {
	return strconv.Itoa(x.value)
}

func (x *rangeValue) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	x.value = v
	*x.min = v
	*x.max = v
	return nil
}

func (x *rangeValue) Type() string {
	return `int`
}

// loadFile decodes the TOML file at path over x, then re-applies every
// flag set on flags, so the command line wins. Unknown keys are an error.
func (x *settings) loadFile(path string, flags *pflag.FlagSet) error {
	type flagValue struct{ name, value string }
	var changed []flagValue
	// lexicographic, so "port" is re-applied before "port-min"
	flags.Visit(func(f *pflag.Flag) {
		changed = append(changed, flagValue{f.Name, f.Value.String()})
	})

	file := fileSettings{settings: *x}
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return fmt.Errorf(`config file %s: %w`, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf(`config file %s: unsupported key %s`, path, undecoded[0])
	}
	if file.Port != nil {
		if !md.IsDefined(`port_min`) {
			file.PortMin = *file.Port
		}
		if !md.IsDefined(`port_max`) {
			file.PortMax = *file.Port
		}
	}
	if file.Size != nil {
		if !md.IsDefined(`size_min`) {
			file.SizeMin = *file.Size
		}
		if !md.IsDefined(`size_max`) {
			file.SizeMax = *file.Size
		}
	}

	// flag values are bound to fields of x, so the file must be copied in
	// before re-applying them
	configFile, verbose, quiet := x.configFile, x.verbose, x.quiet
	*x = file.settings
	x.configFile, x.verbose, x.quiet = configFile, verbose, quiet

	for _, f := range changed {
		if err := flags.Set(f.name, f.value); err != nil {
			return fmt.Errorf(`flag --%s: %w`, f.name, err)
		}
	}

	return nil
}

// logLevel returns the effective level, after -v and -q.
func (x *settings) logLevel() logiface.Level {
	switch {
	case x.quiet:
		return logiface.LevelError
	case x.verbose:
		return logiface.LevelTrace
	default:
		return logiface.Level(x.Log.Level)
	}
}

// floodConfig builds the worker configuration. A worker count of 0 is
// replaced by cpus.
func (x *settings) floodConfig(cpus int) (flood.Config, error) {
	workers := x.Workers
	if workers == 0 {
		workers = cpus
	}
	cfg := flood.Config{
		Address: x.Address,
		PortMin: x.PortMin,
		PortMax: x.PortMax,
		SizeMin: x.SizeMin,
		SizeMax: x.SizeMax,
		Workers: workers,
	}
	var errs []error
	// checked in milliseconds, as the conversion may overflow
	if int64(x.Timeout) < flood.MinTimeout.Milliseconds() || int64(x.Timeout) > flood.MaxTimeout.Milliseconds() {
		errs = append(errs, fmt.Errorf(`%w: invalid timeout %d`, flood.ErrInvalidConfig, x.Timeout))
	} else {
		cfg.Timeout = time.Duration(x.Timeout) * time.Millisecond
	}
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch x.Log.Format {
	case logFormatJSON, logFormatConsole:
	default:
		errs = append(errs, fmt.Errorf(`invalid log format %q`, x.Log.Format))
	}
	if x.SendBuffer < 0 {
		errs = append(errs, fmt.Errorf(`invalid send buffer %d`, x.SendBuffer))
	}
	if err := errors.Join(errs...); err != nil {
		return flood.Config{}, err
	}
	return cfg, nil
}
