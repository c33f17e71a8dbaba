// SPDX-License-Identifier:Apache-2.0

// Package logging sets up structured logging in a uniform way, and
// redirects stdlib log statements into the structured log.
package logging

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Level is a log verbosity accepted by Init.
type Level string

const (
	LevelAll   Level = "all"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelNone  Level = "none"
)

type levelSlice []Level

func (l levelSlice) String() string {
	strs := make([]string, 0, len(l))
	for _, v := range l {
		strs = append(strs, string(v))
	}
	return strings.Join(strs, ", ")
}

// Levels lists every level Init understands.
var Levels = levelSlice{LevelAll, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelNone}

// Init returns a logger configured with common settings like
// timestamping and source code locations. The stdlib logger is
// reconfigured to push logs into this logger.
func Init(lvl string) (log.Logger, error) {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))

	opt, err := parseLevel(lvl)
	if err != nil {
		return nil, err
	}

	stdlog.SetOutput(log.NewStdlibAdapter(level.Info(log.With(l, "caller", log.Caller(5)))))
	stdlog.SetFlags(0)

	l = level.NewFilter(l, opt)
	return log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

func parseLevel(lvl string) (level.Option, error) {
	switch Level(lvl) {
	case LevelAll:
		return level.AllowAll(), nil
	case LevelDebug:
		return level.AllowDebug(), nil
	case LevelInfo:
		return level.AllowInfo(), nil
	case LevelWarn:
		return level.AllowWarn(), nil
	case LevelError:
		return level.AllowError(), nil
	case LevelNone:
		return level.AllowNone(), nil
	}

	return nil, fmt.Errorf("failed to parse log level: %s, must be one of: [%s]", lvl, Levels)
}
