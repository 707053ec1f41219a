// Package console is the terminal backend of pkg/logger.
package console

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/OFFIS-RIT/chronograph/pkg/logger"
)

type ConsoleLogger struct {
	logger *log.Logger
}

var _ logger.LoggerInstance = (*ConsoleLogger)(nil)

type ConsoleLoggerParams struct {
	Debug bool
	// JSON writes one object per line instead of colored text. graphctl
	// enables it with --json-logs.
	JSON bool
	// Writer defaults to stderr so command output on stdout stays clean.
	Writer io.Writer
	Prefix string
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Formatter:       log.TextFormatter,
		Prefix:          params.Prefix,
	}
	if params.Debug {
		opts.Level = log.DebugLevel
	}
	if params.JSON {
		opts.Formatter = log.JSONFormatter
	}

	w := params.Writer
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleLogger{logger: log.NewWithOptions(w, opts)}
}

// Log prints without a level, so it is never filtered.
func (c *ConsoleLogger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

func (c *ConsoleLogger) Debug(message string, keyvals ...any) {
	c.logger.Log(log.DebugLevel, message, keyvals...)
}

func (c *ConsoleLogger) Info(message string, keyvals ...any) {
	c.logger.Log(log.InfoLevel, message, keyvals...)
}

func (c *ConsoleLogger) Warn(message string, keyvals ...any) {
	c.logger.Log(log.WarnLevel, message, keyvals...)
}

func (c *ConsoleLogger) Error(message string, keyvals ...any) {
	c.logger.Log(log.ErrorLevel, message, keyvals...)
}

// Fatal exits the process with status 1 after writing the message.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
