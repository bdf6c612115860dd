package main

import (
	"fmt"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/spf13/pflag"
)

// levelValue is a logiface.Level that may be set from a flag or a config
// file, using the level's keyword, e.g. "info" or "err".
type levelValue logiface.Level

var (
	_ pflag.Value = (*levelValue)(nil)

	levelAliases = map[string]logiface.Level{
		`error`:       logiface.LevelError,
		`warn`:        logiface.LevelWarning,
		`information`: logiface.LevelInformational,
		`critical`:    logiface.LevelCritical,
		`emergency`:   logiface.LevelEmergency,
		`none`:        logiface.LevelDisabled,
	}
)

func parseLevel(s string) (logiface.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	if level, ok := levelAliases[s]; ok {
		return level, nil
	}
	return 0, fmt.Errorf(`unknown log level %q`, s)
}

func (x *levelValue) String() string {
	return logiface.Level(*x).String()
}

func (x *levelValue) Set(s string) error {
	level, err := parseLevel(s)
	if err != nil {
		return err
	}
	*x = levelValue(level)
	return nil
}

func (x *levelValue) Type() string {
	return `level`
}

// UnmarshalText implements encoding.TextUnmarshaler, for config files.
func (x *levelValue) UnmarshalText(text []byte) error {
	return x.Set(string(text))
}
