// Package config loads the ftpc command configuration.
//
// Values are resolved with the following precedence, highest first:
// command line flags, FTPC_* environment variables, the config file
// (--config, else ~/.ftpc.yaml when present) and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys, shared by flags, environment variables and the config file.
const (
	KeyTimeout    = "timeout"
	KeyVerbose    = "verbose"
	KeyQuiet      = "quiet"
	KeyLimitRate  = "limit-rate"
	KeyProgress   = "progress"
	KeyKeepSource = "keep-source"
)

// EnvPrefix is prepended to every key to form its environment variable,
// with dashes turned into underscores: FTPC_LIMIT_RATE.
const EnvPrefix = "FTPC"

// DefaultFile is the config file read when none is given explicitly.
const DefaultFile = "~/.ftpc.yaml"

// DefaultTimeout applies to dialing and to every control or data channel
// read and write.
const DefaultTimeout = 30 * time.Second

// Config is the resolved command configuration.
type Config struct {
	Timeout time.Duration
	Verbose bool
	Quiet   bool

	// BandwidthLimit is in bytes per second, zero means unlimited
	BandwidthLimit int64

	Progress   bool
	KeepSource bool

	// File is the config file that was read, empty if none
	File string
}

// Loader resolves a Config from its layered sources.
type Loader struct {
	v  *viper.Viper
	fs afero.Fs
}

// NewLoader returns a Loader reading config files from fs.
func NewLoader(fs afero.Fs) *Loader {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyLimitRate, "0")
	v.SetDefault(KeyProgress, false)
	v.SetDefault(KeyKeepSource, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, fs: fs}
}

// BindFlags makes flags that were set on the command line override every
// other source. Unset flags do not shadow the environment or the file.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	return l.v.BindPFlags(flags)
}

// Load reads the config file and returns the resolved configuration.
// An explicit file must exist; the default file is optional.
func (l *Loader) Load(file string) (*Config, error) {
	used, err := l.readFile(file)
	if err != nil {
		return nil, err
	}

	limit, err := ParseRate(l.v.GetString(KeyLimitRate))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Timeout:        l.v.GetDuration(KeyTimeout),
		Verbose:        l.v.GetBool(KeyVerbose),
		Quiet:          l.v.GetBool(KeyQuiet),
		BandwidthLimit: limit,
		Progress:       l.v.GetBool(KeyProgress),
		KeepSource:     l.v.GetBool(KeyKeepSource),
		File:           used,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) readFile(file string) (string, error) {
	explicit := file != ""
	if !explicit {
		expanded, err := homedir.Expand(DefaultFile)
		if err != nil {
			// No home directory: run on flags, env and defaults.
			return "", nil
		}
		file = expanded
	}

	exists, err := afero.Exists(l.fs, file)
	if err != nil {
		return "", fmt.Errorf("config file %s: %w", file, err)
	}
	if !exists {
		if explicit {
			return "", fmt.Errorf("config file %s: not found", file)
		}
		return "", nil
	}

	l.v.SetConfigFile(file)
	if err := l.v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("config file %s: %w", file, err)
	}
	return file, nil
}

// Validate checks the resolved values for consistency.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%s must not be negative, got %v", KeyTimeout, c.Timeout)
	}
	if c.Verbose && c.Quiet {
		return errors.New("verbose and quiet are mutually exclusive")
	}
	return nil
}

// ParseRate parses a bandwidth such as "512k", "1.5MB" or "1048576" into
// bytes per second. Empty and "0" mean unlimited.
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLimitRate, s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("invalid %s %q: too large", KeyLimitRate, s)
	}
	return int64(n), nil
}
