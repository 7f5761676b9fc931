package stream

import (
	"log"
	"os"
)

// Logger is the logging interface used by the streaming client. It is
// satisfied by most levelled loggers, e.g. a logrus entry or a zap
// sugared logger.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type stdLog struct {
	logger *log.Logger
}

var _ Logger = (*stdLog)(nil)

func (s *stdLog) Infof(format string, v ...interface{}) {
	// NOTE: there is no concept of levels in the stdlib log package.
	// For less noise, the default implementation only prints errors.
	// To see these, plug in a levelled logger via WithLogger.
}

func (s *stdLog) Warnf(format string, v ...interface{}) {
	// See the note on Infof.
}

func (s *stdLog) Errorf(format string, v ...interface{}) {
	s.logger.Printf(format, v...)
}

// DefaultLogger returns a Logger backed by the standard library that only
// prints error level messages.
func DefaultLogger() Logger {
	return &stdLog{logger: log.New(os.Stderr, "", log.LstdFlags)}
}
