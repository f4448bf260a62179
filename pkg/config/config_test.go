package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hurrahdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing string
		wantErr bool
	}{
		{name: "none", cfg: Config{Kind: KindNone}},
		{name: "none ignores log settings", cfg: Config{Kind: KindNone, Log: &LogConfig{}}},
		{name: "log complete", cfg: Config{Kind: KindLog, Log: &LogConfig{Path: "f", SyncInterval: time.Second}}},
		{name: "log without settings", cfg: Config{Kind: KindLog}, missing: "aof settings", wantErr: true},
		{name: "log without path", cfg: Config{Kind: KindLog, Log: &LogConfig{SyncInterval: time.Second}}, missing: "aof file path", wantErr: true},
		{name: "log without interval", cfg: Config{Kind: KindLog, Log: &LogConfig{Path: "f"}}, missing: "aof sync interval", wantErr: true},
		{name: "bad log level", cfg: Config{Kind: KindNone, LogLevel: "loud"}, wantErr: true},
		{name: "bad kind", cfg: Config{Kind: Kind(7)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var missing *MissingConfigurationError
			if tt.missing == "" {
				assert.False(t, errors.As(err, &missing))
				return
			}
			require.ErrorAs(t, err, &missing)
			assert.ErrorIs(t, err, ErrMissingConfiguration)
			assert.Equal(t, tt.missing, missing.Field)
			assert.Contains(t, err.Error(), "aof persistence type")
		})
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindNone, "none": KindNone, "AOF": KindLog, "log": KindLog} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("redis")
	assert.Error(t, err)
}

func TestParseCorruptPolicy(t *testing.T) {
	p, err := ParseCorruptPolicy("Quarantine")
	require.NoError(t, err)
	assert.Equal(t, CorruptQuarantine, p)
	assert.Equal(t, "quarantine", p.String())

	p, err = ParseCorruptPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CorruptFail, p)

	_, err = ParseCorruptPolicy("ignore")
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "ERROR"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "bogus"}).SlogLevel())
}

func TestLoadFile(t *testing.T) {
	path := writeYAML(t, `
persistence: aof
log_level: debug
on_corrupt: quarantine
aof:
  file: /tmp/app.aof
  sync_interval: 250ms
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, KindLog, cfg.Kind)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, CorruptQuarantine, cfg.OnCorrupt)
	require.NotNil(t, cfg.Log)
	assert.Equal(t, "/tmp/app.aof", cfg.Log.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Log.SyncInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "persistence: [unclosed"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "persistence: tape"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "aof:\n  sync_interval: soon\n"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	cfg, args, err := Load([]string{"get", "k"})
	require.NoError(t, err)

	assert.Equal(t, []string{"get", "k"}, args)
	assert.Equal(t, KindNone, cfg.Kind)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultSyncInterval, cfg.Log.SyncInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeYAML(t, `
persistence: aof
log_level: warn
aof:
  file: from-file.aof
  sync_interval: 5s
`)
	t.Setenv("HURRAHDB_CONFIG", path)
	t.Setenv("HURRAHDB_AOF_FILE", "from-env.aof")
	t.Setenv("HURRAHDB_LOG_LEVEL", "error")

	cfg, args, err := Load([]string{"-log-level", "debug", "dump"})
	require.NoError(t, err)

	assert.Equal(t, []string{"dump"}, args)
	assert.Equal(t, KindLog, cfg.Kind)
	assert.Equal(t, "from-env.aof", cfg.Log.Path)
	assert.Equal(t, 5*time.Second, cfg.Log.SyncInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFlags(t *testing.T) {
	cfg, _, err := Load([]string{
		"-persistence", "aof",
		"-aof-file", "cli.aof",
		"-sync-interval", "100ms",
		"-on-corrupt", "quarantine",
	})
	require.NoError(t, err)

	assert.Equal(t, KindLog, cfg.Kind)
	assert.Equal(t, "cli.aof", cfg.Log.Path)
	assert.Equal(t, 100*time.Millisecond, cfg.Log.SyncInterval)
	assert.Equal(t, CorruptQuarantine, cfg.OnCorrupt)
}

func TestLoadInvalidValues(t *testing.T) {
	_, _, err := Load([]string{"-persistence", "tape"})
	assert.Error(t, err)

	_, _, err = Load([]string{"-unknown-flag"})
	assert.Error(t, err)

	t.Setenv("HURRAHDB_SYNC_INTERVAL", "often")
	_, _, err = Load(nil)
	assert.Error(t, err)
}
