// Leveled logging on top of the standard log package. Suppressed
// levels write to a null writer so call sites never need level
// checks.
package logger

import (
	"io"
	"log"
)

const (
	DebugLevel = iota
	InfoLevel
	WarningLevel
	ErrorLevel
	logLevelsCount // not a real log level, but simplifies some code
)

type Logger struct {
	loggers [logLevelsCount]*log.Logger
}

func logLevelString(level int) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	default:
		return "?????"
	}
}

func logLevelPrefix(level int) string {
	switch level {
	case DebugLevel:
		return "[DBG] "
	case InfoLevel:
		return "[INF] "
	case WarningLevel:
		return "[WRN] "
	case ErrorLevel:
		return "[ERR] "
	default:
		return "[???] "
	}
}

// New builds a logger writing levels at or above level to the given
// writers. A *JSONWriter in the list is special, it needs to know the
// level of every entry, so one copy per level is created for it.
func New(level int, writers ...io.Writer) *Logger {
	var jsonOut io.Writer
	w := []io.Writer{}
	for _, onewriter := range writers {
		switch typewr := onewriter.(type) {
		case *JSONWriter:
			jsonOut = typewr.out
		default:
			w = append(w, typewr)
		}
	}

	nullWriter := &nullWritter{}
	lgr := Logger{}

	makeWriters := func(wrs ...io.Writer) io.Writer {
		switch {
		case len(wrs) == 0:
			return nullWriter
		case len(wrs) == 1:
			return wrs[0]
		default:
			return io.MultiWriter(wrs...)
		}
	}

	for i := 0; i < logLevelsCount; i++ {
		if i >= level {
			if jsonOut != nil {
				lgr.loggers[i] = log.New(makeWriters(append(w,
					&JSONWriter{out: jsonOut, level: logLevelString(i)})...),
					logLevelPrefix(i), log.Ldate|log.Ltime)
			} else {
				lgr.loggers[i] = log.New(makeWriters(w...), logLevelPrefix(i), log.Ldate|log.Ltime)
			}
		} else {
			lgr.loggers[i] = log.New(nullWriter, "", log.Ldate|log.Ltime)
		}
	}
	return &lgr
}

func (lgr *Logger) Debug() *log.Logger {
	return lgr.loggers[DebugLevel]
}

func (lgr *Logger) Info() *log.Logger {
	return lgr.loggers[InfoLevel]
}

func (lgr *Logger) Warning() *log.Logger {
	return lgr.loggers[WarningLevel]
}

func (lgr *Logger) Error() *log.Logger {
	return lgr.loggers[ErrorLevel]
}
