package config

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Error is the class of configuration failures.
var Error = errs.Class("config")

// Config is the server configuration. Values come from RDMC_* environment
// variables; command line flags override them.
type Config struct {
	HTTPAddr               string        `env:"RDMC_HTTP_ADDR" envDefault:":8080"`
	RPCSocket              string        `env:"RDMC_RPC_SOCKET" envDefault:"/tmp/rdmc.sock"`
	DBPath                 string        `env:"RDMC_DB_PATH" envDefault:"rdmc.db"`
	UploadDir              string        `env:"RDMC_UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadBytes         int64         `env:"RDMC_MAX_UPLOAD_BYTES" envDefault:"104857600"`
	SessionSecret          string        `env:"RDMC_SESSION_SECRET"`
	SessionTTL             time.Duration `env:"RDMC_SESSION_TTL" envDefault:"30m"`
	BootstrapAdminUsername string        `env:"RDMC_BOOTSTRAP_ADMIN_USERNAME" envDefault:"admin"`
	BootstrapAdminEmail    string        `env:"RDMC_BOOTSTRAP_ADMIN_EMAIL" envDefault:"admin@rdmc.local"`
	BootstrapAdminPassword string        `env:"RDMC_BOOTSTRAP_ADMIN_PASSWORD"`
	LogLevel               string        `env:"RDMC_LOG_LEVEL" envDefault:"info"`
	LogDevelopment         bool          `env:"RDMC_LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads the environment. It does not validate, so flags can still fix
// values before Validate runs.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, Error.Wrap(err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var group errs.Group
	if c.HTTPAddr == "" {
		group.Add(Error.New("http address is required"))
	}
	if c.DBPath == "" {
		group.Add(Error.New("database path is required"))
	}
	if c.UploadDir == "" {
		group.Add(Error.New("upload directory is required"))
	}
	if c.MaxUploadBytes <= 0 {
		group.Add(Error.New("max upload size must be positive"))
	}
	if c.SessionTTL <= 0 {
		group.Add(Error.New("session ttl must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		group.Add(Error.Wrap(err))
	}
	return group.Err()
}

// EnsureSessionSecret fills in a random secret when none is configured.
// Sessions then do not survive a restart. It reports whether it generated one.
func (c *Config) EnsureSessionSecret() (bool, error) {
	if c.SessionSecret != "" {
		return false, nil
	}
	secret, err := randomHex(32)
	if err != nil {
		return false, err
	}
	c.SessionSecret = secret
	return true, nil
}

// EnsureBootstrapPassword fills in a random first admin password when none
// is configured. It reports whether it generated one.
func (c *Config) EnsureBootstrapPassword() (bool, error) {
	if c.BootstrapAdminPassword != "" {
		return false, nil
	}
	password, err := randomHex(12)
	if err != nil {
		return false, err
	}
	c.BootstrapAdminPassword = password
	return true, nil
}

func randomHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", Error.Wrap(err)
	}
	return hex.EncodeToString(raw), nil
}

// NewLogger builds the process logger. Development mode logs human readable
// lines at debug level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	log, err := zc.Build()
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return log, nil
}
