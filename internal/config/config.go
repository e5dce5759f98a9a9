// Package config resolves the options of a run from CLI flags, environment,
// a TOML config file and built-in defaults.
package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pokerjest/rbit/internal/errs"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName         = "rbit"
	LocalConfigFile = "rbit.toml"
	EnvPrefix       = "RBIT"

	DefaultHost    = "http://127.0.0.1:8080"
	DefaultTimeout = 10 * time.Second
)

// Options is the resolved configuration of one invocation. It is built once
// by Load and only read afterwards.
type Options struct {
	SavePath   string // empty means the WebUI default
	ConfigFile string // file the values were read from, empty if none
	Host       string // absolute URL without trailing slash
	Username   string
	Password   string
	Timeout    time.Duration
	DryRun     bool
	Verbose    bool
}

// Authenticated reports whether a login is required before adding torrents.
func (o Options) Authenticated() bool {
	return o.Username != "" || o.Password != ""
}

// fileConfig mirrors the config file layout.
type fileConfig struct {
	DefaultSavePath string            `mapstructure:"default_save_path"`
	QBittorrent     QBittorrentConfig `mapstructure:"qbittorrent"`
}

type QBittorrentConfig struct {
	Host     string        `mapstructure:"host"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"dest":     "default_save_path",
	"host":     "qbittorrent.host",
	"username": "qbittorrent.username",
	"password": "qbittorrent.password",
	"timeout":  "qbittorrent.timeout",
}

// BindFlags registers the command line surface on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP("dest", "d", "", "destination folder for the torrent content")
	fs.StringP("config", "c", "", "path to config file (default ./"+LocalConfigFile+", then the user config dir)")
	fs.String("host", "", "qBittorrent WebUI URL (overrides config)")
	fs.String("username", "", "qBittorrent username (overrides config)")
	fs.String("password", "", "qBittorrent password (overrides config)")
	fs.Duration("timeout", 0, "connect and read timeout per request (default 10s)")
	fs.Bool("dry-run", false, "do not send requests; print what would be sent")
	fs.BoolP("verbose", "v", false, "print HTTP requests and responses")
}

// DefaultSearchPaths lists the config files tried when --config is not given,
// in lookup order.
func DefaultSearchPaths() []string {
	paths := []string{LocalConfigFile}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, AppName, "config.toml"))
	}
	return paths
}

// Load resolves Options from the parsed flag set. Precedence, highest first:
// changed flag, RBIT_* environment variable, config file, default.
func Load(fs *pflag.FlagSet, searchPaths []string) (Options, error) {
	v := viper.New()

	v.SetDefault("qbittorrent.host", DefaultHost)
	v.SetDefault("qbittorrent.timeout", DefaultTimeout)

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return Options{}, errs.Config(err, "cannot bind flag --%s", name)
		}
	}

	// RBIT_QBITTORRENT_PASSWORD=... overrides qbittorrent.password
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit, _ := fs.GetString("config")
	path, err := findConfigFile(explicit, searchPaths)
	if err != nil {
		return Options{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Options{}, errs.Config(err, "failed to read config file %s", path)
		}
		log.Debugf("Loaded config file %s", path)
	} else {
		log.Debug("No config file found, using defaults")
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		if path == "" {
			return Options{}, errs.Config(err, "failed to decode configuration from flags and %s_* environment", EnvPrefix)
		}
		return Options{}, errs.Config(err, "failed to decode configuration from %s", path)
	}

	opts := Options{
		SavePath:   strings.TrimSpace(fc.DefaultSavePath),
		ConfigFile: path,
		Username:   fc.QBittorrent.Username,
		Password:   fc.QBittorrent.Password,
		Timeout:    fc.QBittorrent.Timeout,
	}
	opts.DryRun, _ = fs.GetBool("dry-run")
	opts.Verbose, _ = fs.GetBool("verbose")

	if opts.Host, err = normalizeHost(fc.QBittorrent.Host); err != nil {
		return Options{}, err
	}
	if opts.Timeout <= 0 {
		return Options{}, errs.Config(nil, "qbittorrent.timeout must be positive, got %s", opts.Timeout)
	}
	if (opts.Username == "") != (opts.Password == "") {
		return Options{}, errs.Config(nil, "qbittorrent.username and qbittorrent.password must be set together")
	}

	return opts, nil
}

func findConfigFile(explicit string, searchPaths []string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", errs.Config(err, "config file %s is not readable", explicit)
		}
		if info.IsDir() {
			return "", errs.Config(nil, "config file %s is a directory", explicit)
		}
		return explicit, nil
	}

	for _, p := range searchPaths {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", errs.Config(err, "config file %s is not readable", p)
		}
	}
	return "", nil
}

// normalizeHost validates the WebUI URL and strips trailing slashes. A path
// prefix is kept for WebUIs served behind a reverse proxy.
func normalizeHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errs.Config(nil, "qbittorrent.host is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errs.Config(err, "qbittorrent.host %q is not a valid URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errs.Config(nil, "qbittorrent.host %q must be an absolute http or https URL", raw)
	}
	if u.Hostname() == "" {
		return "", errs.Config(nil, "qbittorrent.host %q has no host name", raw)
	}
	// http://http://127.0.0.1:8080 parses with "http:" as the host.
	// u.Scheme is lowercased, the raw prefix may not be.
	rest := raw
	if prefix := u.Scheme + "://"; len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		rest = raw[len(prefix):]
	}
	if strings.Contains(rest, "://") {
		return "", errs.Config(nil, "qbittorrent.host %q repeats the URL scheme", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", errs.Config(nil, "qbittorrent.host %q must not carry a query or fragment", raw)
	}

	return strings.TrimRight(u.String(), "/"), nil
}
