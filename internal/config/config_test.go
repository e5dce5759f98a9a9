package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pokerjest/rbit/internal/errs"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
default_save_path = "/a"

[qbittorrent]
host = "http://qbt.lan:8080/"
username = "admin"
password = "adminadmin"
timeout = "3s"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func load(t *testing.T, searchPaths []string, args ...string) (Options, error) {
	t.Helper()
	fs := pflag.NewFlagSet("rbit", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return Load(fs, searchPaths)
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, opts.Host)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Empty(t, opts.SavePath)
	assert.Empty(t, opts.ConfigFile)
	assert.False(t, opts.Authenticated())
	assert.False(t, opts.DryRun)
	assert.False(t, opts.Verbose)
}

func TestLoad_SavePathPrecedence(t *testing.T) {
	path := writeConfig(t, "config.toml", sampleConfig)

	opts, err := load(t, nil, "--config", path, "--dest=/b")
	require.NoError(t, err)
	assert.Equal(t, "/b", opts.SavePath)

	opts, err = load(t, nil, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "/a", opts.SavePath)
}

func TestLoad_ConfigFileValues(t *testing.T) {
	path := writeConfig(t, "config.toml", sampleConfig)

	opts, err := load(t, nil, "-c", path, "--dry-run", "-v")
	require.NoError(t, err)

	assert.Equal(t, path, opts.ConfigFile)
	assert.Equal(t, "http://qbt.lan:8080", opts.Host)
	assert.Equal(t, "admin", opts.Username)
	assert.Equal(t, "adminadmin", opts.Password)
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.True(t, opts.Authenticated())
	assert.True(t, opts.DryRun)
	assert.True(t, opts.Verbose)
}

func TestLoad_FlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, "config.toml", sampleConfig)

	opts, err := load(t, nil, "-c", path,
		"--host", "https://seedbox.example.com/qbt/",
		"--username", "alice",
		"--password", "secret",
		"--timeout", "750ms",
	)
	require.NoError(t, err)

	assert.Equal(t, "https://seedbox.example.com/qbt", opts.Host)
	assert.Equal(t, "alice", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 750*time.Millisecond, opts.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "config.toml", sampleConfig)
	t.Setenv("RBIT_QBITTORRENT_PASSWORD", "from-env")
	t.Setenv("RBIT_DEFAULT_SAVE_PATH", "/env")

	opts, err := load(t, nil, "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", opts.Password)
	assert.Equal(t, "/env", opts.SavePath)

	// flags still win over the environment
	opts, err = load(t, nil, "-c", path, "--password", "from-flag", "--dest", "/flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", opts.Password)
	assert.Equal(t, "/flag", opts.SavePath)
}

func TestLoad_SearchPaths(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "rbit.toml")
	first := writeConfig(t, "first.toml", "default_save_path = \"/first\"\n")
	second := writeConfig(t, "second.toml", "default_save_path = \"/second\"\n")

	opts, err := load(t, []string{missing, first, second})
	require.NoError(t, err)
	assert.Equal(t, first, opts.ConfigFile)
	assert.Equal(t, "/first", opts.SavePath)

	opts, err = load(t, []string{missing})
	require.NoError(t, err)
	assert.Empty(t, opts.ConfigFile)
	assert.Equal(t, DefaultHost, opts.Host)
}

func TestDefaultSearchPaths(t *testing.T) {
	paths := DefaultSearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, LocalConfigFile, paths[0])
	if len(paths) > 1 {
		assert.True(t, strings.HasSuffix(paths[1], filepath.Join(AppName, "config.toml")), paths[1])
	}
}

func TestLoad_Errors(t *testing.T) {
	broken := writeConfig(t, "broken.toml", "[qbittorrent\nhost = ")
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"missing explicit config", []string{"--config", filepath.Join(dir, "nope.toml")}},
		{"config is a directory", []string{"--config", dir}},
		{"unparseable config", []string{"--config", broken}},
		{"double scheme", []string{"--host", "http://http://127.0.0.1:8080"}},
		{"relative host", []string{"--host", "127.0.0.1:8080"}},
		{"ftp host", []string{"--host", "ftp://127.0.0.1"}},
		{"host with query", []string{"--host", "http://127.0.0.1:8080/?a=b"}},
		{"username without password", []string{"--username", "admin"}},
		{"password without username", []string{"--password", "adminadmin"}},
		{"zero timeout", []string{"--timeout", "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, errs.CodeConfig, errs.GetCode(err))
		})
	}
}

func TestLoad_HostNormalization(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"HTTP://127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"Https://qbt.lan/", "https://qbt.lan"},
		{"http://127.0.0.1:8080/qbt/", "http://127.0.0.1:8080/qbt"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			opts, err := load(t, nil, "--host", tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.Host)
		})
	}

	_, err := load(t, nil, "--host", "HTTP://http://127.0.0.1:8080")
	assert.Equal(t, errs.CodeConfig, errs.GetCode(err))
}

func TestLoad_MalformedEnvValue(t *testing.T) {
	t.Setenv("RBIT_QBITTORRENT_TIMEOUT", "abc")

	_, err := load(t, nil)
	require.Error(t, err)
	assert.Equal(t, errs.CodeConfig, errs.GetCode(err))
	assert.Contains(t, err.Error(), "RBIT_* environment")
	assert.NotContains(t, err.Error(), "config file")
}
