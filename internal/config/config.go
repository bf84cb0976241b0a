// Package config loads easyupdate settings from defaults, an optional
// YAML file, EASYUPDATE_* environment variables and command-line flags.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperr "github.com/extsync/easyupdate/pkg/errors"
	"github.com/extsync/easyupdate/pkg/httputil"
	"github.com/extsync/easyupdate/pkg/integrations/bioconductor"
	"github.com/extsync/easyupdate/pkg/integrations/cran"
	"github.com/extsync/easyupdate/pkg/integrations/pypi"
	"github.com/extsync/easyupdate/pkg/marker"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// EnvPrefix prefixes environment overrides, e.g. EASYUPDATE_WORKERS.
const EnvPrefix = "EASYUPDATE"

// PythonConfig overrides marker variables of the target interpreter.
type PythonConfig struct {
	SysPlatform     string `mapstructure:"sys_platform"`
	PlatformMachine string `mapstructure:"platform_machine"`
}

// Config holds the runtime settings of one invocation.
type Config struct {
	CRANURL         string        `mapstructure:"cran_url"`
	BioconductorURL string        `mapstructure:"bioconductor_url"`
	PyPIURL         string        `mapstructure:"pypi_url"`
	Workers         int           `mapstructure:"workers"`
	Timeout         time.Duration `mapstructure:"timeout"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RobotPaths      []string      `mapstructure:"robot_paths"`
	DropDuplicates  bool          `mapstructure:"drop_duplicates"`
	Python          PythonConfig  `mapstructure:"python"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cran_url", cran.DefaultURL)
	v.SetDefault("bioconductor_url", bioconductor.DefaultURL)
	v.SetDefault("pypi_url", pypi.DefaultURL)
	v.SetDefault("workers", resolve.DefaultWorkers)
	v.SetDefault("timeout", 0)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("retry_attempts", httputil.DefaultPolicy.Attempts)
	v.SetDefault("retry_delay", httputil.DefaultPolicy.Delay)
	v.SetDefault("robot_paths", []string{})
	v.SetDefault("drop_duplicates", false)
	v.SetDefault("python.sys_platform", "")
	v.SetDefault("python.platform_machine", "")
}

// New returns a viper instance with defaults and environment bindings.
// cfgFile, when set, must exist; otherwise config.yaml is looked up in
// the user config directory and may be absent.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "reading config %s", cfgFile)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "easyupdate"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "reading config")
		}
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "decoding config")
	}
	cfg.RobotPaths = splitPaths(cfg.RobotPaths)
	if len(cfg.RobotPaths) == 0 {
		// EasyBuild's own setting.
		cfg.RobotPaths = splitPaths([]string{os.Getenv("EASYBUILD_ROBOT_PATHS")})
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and URLs.
func (c Config) Validate() error {
	for _, u := range []string{c.CRANURL, c.BioconductorURL, c.PyPIURL} {
		if err := apperr.ValidateURL(u); err != nil {
			return err
		}
	}
	if c.Workers < 1 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "workers must be at least 1, got %d", c.Workers)
	}
	if c.RetryAttempts < 1 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "retry_attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.Timeout < 0 || c.HTTPTimeout < 0 || c.RetryDelay < 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "durations must not be negative")
	}
	return nil
}

// RetryPolicy returns the registry retry policy.
func (c Config) RetryPolicy() httputil.Policy {
	return httputil.Policy{Attempts: c.RetryAttempts, Delay: c.RetryDelay}
}

// MarkerEnvironment returns the PEP 508 environment for pythonVersion
// with the configured platform overrides.
func (c Config) MarkerEnvironment(pythonVersion string) marker.Environment {
	return marker.NewEnvironment(pythonVersion).
		With("sys_platform", c.Python.SysPlatform).
		With("platform_machine", c.Python.PlatformMachine)
}

// splitPaths flattens colon-separated entries, as found in environment
// variables, and drops empty ones.
func splitPaths(in []string) []string {
	var out []string
	for _, p := range in {
		for _, s := range filepath.SplitList(p) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
