// Package config loads the connection settings and wire-format toggles of a
// FlexiBee deployment.
//
// Values come from, in increasing priority: built-in defaults, an optional
// flexiq.yaml file and FLEXIQ_* environment variables (FLEXIQ_HOST,
// FLEXIQ_COMPANY, FLEXIQ_CODE_AS_ID, ...).
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/flexiq/internal/engine"
	"github.com/roach88/flexiq/internal/querywire"
	"github.com/roach88/flexiq/internal/transport"
)

// FileName is the config file looked up in a config directory, without
// extension.
const FileName = "flexiq"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLEXIQ"

// Keys understood in the config file and environment.
const (
	KeyHost                     = "host"
	KeyCompany                  = "company"
	KeyUser                     = "user"
	KeyPassword                 = "password"
	KeyAuthUser                 = "auth_user"
	KeySSLVersion               = "ssl_version"
	KeyInsecure                 = "insecure"
	KeyTimeout                  = "timeout"
	KeyDetailFullOnAssociations = "detail_full_on_associations"
	KeyLikeWithSimilar          = "like_with_similar"
	KeyCodeAsID                 = "code_as_id"
	KeyJournal                  = "journal"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved configuration.
type Config struct {
	Host     string
	Company  string
	User     string
	Password string
	AuthUser string

	// SSLVersion is the minimum TLS version: "1.0", "1.1", "1.2" or "1.3".
	// Empty keeps the Go default.
	SSLVersion string
	Insecure   bool
	Timeout    time.Duration

	DetailFullOnAssociations bool
	LikeWithSimilar          bool
	CodeAsID                 bool

	// Journal is the SQLite file executed requests are recorded in.
	// Empty disables the journal.
	Journal string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	opts := engine.DefaultOptions()
	return Config{
		Timeout:                  transport.DefaultTimeout,
		DetailFullOnAssociations: opts.DetailFullOnAssociations,
		LikeWithSimilar:          opts.Dialect.LikeWithSimilar,
		CodeAsID:                 opts.CodeAsID,
	}
}

// Load resolves the configuration. path may name a config file or a
// directory searched for flexiq.yaml; an empty path searches the working
// directory. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	if err := configure(v, path); err != nil {
		return cfg, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment", "path", path)
	} else {
		slog.Debug("loaded config file", "file", v.ConfigFileUsed())
	}

	if v.IsSet(KeyHost) {
		cfg.Host = v.GetString(KeyHost)
	}
	if v.IsSet(KeyCompany) {
		cfg.Company = v.GetString(KeyCompany)
	}
	if v.IsSet(KeyUser) {
		cfg.User = v.GetString(KeyUser)
	}
	if v.IsSet(KeyPassword) {
		cfg.Password = v.GetString(KeyPassword)
	}
	if v.IsSet(KeyAuthUser) {
		cfg.AuthUser = v.GetString(KeyAuthUser)
	}
	if v.IsSet(KeySSLVersion) {
		cfg.SSLVersion = v.GetString(KeySSLVersion)
	}
	if v.IsSet(KeyInsecure) {
		cfg.Insecure = v.GetBool(KeyInsecure)
	}
	if v.IsSet(KeyTimeout) {
		cfg.Timeout = v.GetDuration(KeyTimeout)
	}
	if v.IsSet(KeyDetailFullOnAssociations) {
		cfg.DetailFullOnAssociations = v.GetBool(KeyDetailFullOnAssociations)
	}
	if v.IsSet(KeyLikeWithSimilar) {
		cfg.LikeWithSimilar = v.GetBool(KeyLikeWithSimilar)
	}
	if v.IsSet(KeyCodeAsID) {
		cfg.CodeAsID = v.GetBool(KeyCodeAsID)
	}
	if v.IsSet(KeyJournal) {
		cfg.Journal = v.GetString(KeyJournal)
	}

	return cfg, nil
}

// configure points v at an explicit file or at a directory to search.
func configure(v *viper.Viper, path string) error {
	if path == "" {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config path: %w", err)
	}
	if info.IsDir() {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(path)
		return nil
	}
	v.SetConfigFile(path)
	return nil
}

// Validate reports the first problem that would prevent connecting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, KeyHost)
	}
	if strings.TrimSpace(c.Company) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, KeyCompany)
	}
	if c.User != "" && c.Password == "" {
		return fmt.Errorf("%w: %s is required if %s is set", ErrInvalid, KeyPassword, KeyUser)
	}
	if _, err := tlsVersion(c.SSLVersion); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyTimeout)
	}
	return nil
}

// Transport converts c into a transport configuration.
func (c Config) Transport() (transport.Config, error) {
	if err := c.Validate(); err != nil {
		return transport.Config{}, err
	}
	version, _ := tlsVersion(c.SSLVersion)
	return transport.Config{
		Host:               c.Host,
		Company:            c.Company,
		User:               c.User,
		Password:           c.Password,
		AuthUser:           c.AuthUser,
		MinTLSVersion:      version,
		InsecureSkipVerify: c.Insecure,
		Timeout:            c.Timeout,
	}, nil
}

// EngineOptions returns the wire-format toggles for engine.New.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		CodeAsID:                 c.CodeAsID,
		DetailFullOnAssociations: c.DetailFullOnAssociations,
		Dialect:                  querywire.Dialect{LikeWithSimilar: c.LikeWithSimilar},
	}
}

func tlsVersion(s string) (uint16, error) {
	switch strings.TrimSpace(s) {
	case "":
		return 0, nil
	case "1.0":
		return tls.VersionTLS10, nil
	case "1.1":
		return tls.VersionTLS11, nil
	case "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalid, KeySSLVersion, s)
	}
}
