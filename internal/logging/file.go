package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// UseFileLogger replaces the global logger with one that writes to a
// rotating log file.
func UseFileLogger(filepath string) {
	writer := &lumberjack.Logger{
		Filename:   filepath,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     28, // days
	}

	L = newLogger(writer)
}
