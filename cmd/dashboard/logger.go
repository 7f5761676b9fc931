package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func newLogger(cfg config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}

	return log
}

// streamLogger adapts a logrus entry to the stream package's Logger.
type streamLogger struct {
	entry *logrus.Entry
}

func newStreamLogger(log *logrus.Logger) *streamLogger {
	return &streamLogger{entry: log.WithField("component", "pricestream")}
}

func (l *streamLogger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *streamLogger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *streamLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}
