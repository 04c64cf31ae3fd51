package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/lnroute/core/chanverifier"
	"github.com/lnroute/core/channeldb"
	"github.com/lnroute/core/discovery"
	"github.com/lnroute/core/internal/build"
	"github.com/lnroute/core/routing"
)

var (
	logWriter  = &build.LogWriter{}
	backendLog = btclog.NewBackend(logWriter)
	logRotator *rotator.Rotator

	rtclLog = build.NewSubLogger("RTCL", backendLog.Logger)
	chdbLog = build.NewSubLogger("CHDB", backendLog.Logger)
	discLog = build.NewSubLogger("DISC", backendLog.Logger)
	crtrLog = build.NewSubLogger("CRTR", backendLog.Logger)
	cvfyLog = build.NewSubLogger("CVFY", backendLog.Logger)
)

var subsystemLoggers = map[string]btclog.Logger{
	"RTCL": rtclLog,
	"CHDB": chdbLog,
	"DISC": discLog,
	"CRTR": crtrLog,
	"CVFY": cvfyLog,
}

func init() {
	channeldb.UseLogger(chdbLog)
	discovery.UseLogger(discLog)
	routing.UseLogger(crtrLog)
	chanverifier.UseLogger(cvfyLog)
}

// initLogRotator creates logFile's directory if needed and starts streaming
// every subsystem logger's output into it, alongside stdout. maxFileSizeMB
// is converted to the rotator's kilobyte-granularity threshold here so
// callers can keep speaking in whole megabytes.
func initLogRotator(logFile string, maxFileSizeMB int64, maxFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("unable to create log directory: %w", err)
	}

	r, err := rotator.New(logFile, maxFileSizeMB*1024, false, maxFiles)
	if err != nil {
		return fmt.Errorf("unable to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logWriter.SetRotatorPipe(pw)
	logRotator = r
	return nil
}

// setLogLevels sets every subsystem logger to level, creating the level
// from its string form; an unrecognized level defaults to info.
func setLogLevels(levelStr string) {
	level, _ := btclog.LevelFromString(levelStr)
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
