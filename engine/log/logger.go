package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

// Level is the verbosity threshold applied to every named logger.
type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// format is the record layout shared by all loggers.
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

// leveledBackend is the backend currently installed by SetSink.
var leveledBackend logging.LeveledBackend

// currentLevel is re-applied whenever the sink changes.
var currentLevel = logging.NOTICE

// Logger is the leveled logging interface used across the engine.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a named logger. The name shows up as the module column of each record.
//
// Parameters:
//   - name: the module name, typically the package name
//
// Returns:
//   - Logger: the named logger
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink redirects all logger output to the given writer.
//
// Parameters:
//   - sink: the destination for formatted log records
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(backendWithFormatter)
	leveledBackend.SetLevel(currentLevel, "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity for all loggers.
//
// Parameters:
//   - level: the minimum level that will be emitted
func SetLevel(level Level) {
	switch level {
	case Debug:
		currentLevel = logging.DEBUG
	case Info:
		currentLevel = logging.INFO
	case Notice:
		currentLevel = logging.NOTICE
	case Warning:
		currentLevel = logging.WARNING
	case Error:
		currentLevel = logging.ERROR
	}

	leveledBackend.SetLevel(currentLevel, "")
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
