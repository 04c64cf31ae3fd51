package main

import (
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lnroutectl.log"
	defaultMaxLogFileSize = 10 // MB
	defaultMaxLogFiles    = 3
	defaultDebugLevel     = "info"
	defaultVerifyInterval = "30s"
)

var defaultHomeDir = filepath.Join(appDataDir(), "lnroutectl")

// config holds every flag this binary accepts. It's populated by flags.Parse
// in main, following the same options-struct idiom the rest of the
// ecosystem's daemons use for their top-level config.
type config struct {
	DataDir string `long:"datadir" description:"Directory to store the channel graph database in"`
	LogDir  string `long:"logdir" description:"Directory to log output to"`

	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems"`

	Network string `long:"network" description:"Hex-encoded genesis hash to accept announcements for"`

	VerifyInterval string `long:"verifyinterval" description:"How often to retry unresolved channel verifications"`

	TrustAllAnnouncements bool `long:"trust-all" description:"Skip on-chain funding verification and accept channel announcements directly (test/dev use only)"`
}

func defaultConfig() config {
	return config{
		DataDir:        filepath.Join(defaultHomeDir, defaultDataDirname),
		LogDir:         filepath.Join(defaultHomeDir, defaultLogDirname),
		DebugLevel:     defaultDebugLevel,
		VerifyInterval: defaultVerifyInterval,
	}
}

// loadConfig parses command-line flags over top of the default
// configuration.
func loadConfig() (*config, []string, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	rest, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	return &cfg, rest, nil
}

// appDataDir returns $LNROUTECTL_HOME if set, otherwise the user's home
// directory, or "." if that can't be determined. No per-OS application
// data directory is looked up.
func appDataDir() string {
	if dir := os.Getenv("LNROUTECTL_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
