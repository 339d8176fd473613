package options

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/ethtrie/pkg/config"
	"github.com/nspcc-dev/ethtrie/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zapcore"
)

func TestGetConfigFromContext(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		cfg, err := GetConfigFromContext(ctx)
		require.NoError(t, err)
		require.Equal(t, config.Default(), cfg)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yml")
		require.NoError(t, os.WriteFile(path, []byte("Storage:\n  Type: boltdb\n  BoltDBOptions:\n    FilePath: ./x.bolt\n"), 0644))
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.String("config-file", path, "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		cfg, err := GetConfigFromContext(ctx)
		require.NoError(t, err)
		require.Equal(t, dbconfig.BoltDB, cfg.Storage.Type)
	})

	t.Run("missing file", func(t *testing.T) {
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.String("config-file", filepath.Join(t.TempDir(), "none.yml"), "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		_, err := GetConfigFromContext(ctx)
		require.Error(t, err)
	})
}

func TestHandleLoggingParams(t *testing.T) {
	d := t.TempDir()
	testLog := filepath.Join(d, "file.log")

	t.Run("logdir is a file", func(t *testing.T) {
		logfile := filepath.Join(d, "logdir")
		require.NoError(t, os.WriteFile(logfile, []byte{1, 2, 3}, os.ModePerm))
		cfg := config.Logger{
			LogPath: filepath.Join(logfile, "file.log"),
		}
		_, lvl, closer, err := HandleLoggingParams(false, cfg)
		require.Error(t, err)
		require.Nil(t, lvl)
		require.Nil(t, closer)
	})

	t.Run("broken level", func(t *testing.T) {
		cfg := config.Logger{
			LogPath:  testLog,
			LogLevel: "qwerty",
		}
		_, lvl, closer, err := HandleLoggingParams(false, cfg)
		require.Error(t, err)
		require.Nil(t, lvl)
		require.Nil(t, closer)
	})

	t.Run("default", func(t *testing.T) {
		cfg := config.Logger{
			LogPath: testLog,
		}
		logger, lvl, closer, err := HandleLoggingParams(false, cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			if closer != nil {
				require.NoError(t, closer())
			}
		})
		require.Equal(t, zapcore.InfoLevel, lvl.Level())
		require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("warn", func(t *testing.T) {
		cfg := config.Logger{
			LogPath:  testLog,
			LogLevel: "warn",
		}
		logger, lvl, closer, err := HandleLoggingParams(false, cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			if closer != nil {
				require.NoError(t, closer())
			}
		})
		require.Equal(t, zapcore.WarnLevel, lvl.Level())
		require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
		require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("debug", func(t *testing.T) {
		cfg := config.Logger{
			LogPath:  testLog,
			LogLevel: "warn",
		}
		logger, lvl, closer, err := HandleLoggingParams(true, cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			if closer != nil {
				require.NoError(t, closer())
			}
		})
		require.Equal(t, zapcore.DebugLevel, lvl.Level())
		require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})
}
