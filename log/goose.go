package log

import (
	"strings"

	"github.com/pressly/goose/v3"
)

// gooseLogger implements goose.Logger, logging migration progress at Debug
// level.
type gooseLogger struct{}

var _ goose.Logger = (*gooseLogger)(nil)

func (*gooseLogger) Fatalf(format string, v ...any) { Fatalf(strings.TrimSuffix(format, "\n"), v...) }
func (*gooseLogger) Printf(format string, v ...any) { Debugf(strings.TrimSuffix(format, "\n"), v...) }

// GooseLogger provides access to a goose compatible logger.
func GooseLogger() goose.Logger { return &gooseLogger{} }
