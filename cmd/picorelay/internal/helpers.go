package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tinyland-inc/picorelay/pkg/config"
	"github.com/tinyland-inc/picorelay/pkg/logger"
)

const Logo = "📨"

// ConfigEnv overrides the config file location.
const ConfigEnv = "PICORELAY_CONFIG"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func GetConfigPath() string {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".picorelay", "config.json")
}

// LoadConfig reads .env from the working directory, then the config file.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}
	return config.LoadConfig(GetConfigPath())
}

// SetupLogging applies the logging section. debug forces DEBUG level.
func SetupLogging(cfg *config.Config, debug bool) error {
	if err := logger.Configure(os.Stderr, cfg.Logging.Format); err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)
	return nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
