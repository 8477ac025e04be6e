package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ifrederico/shopify-bulkexport/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("unknown level falls back to info", func(t *testing.T) {
		closer := logging.Setup(logging.Options{Env: "PROD", Level: "chatty"})
		defer closer.Close()
		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("writes to the rotating file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "server.log")
		closer := logging.Setup(logging.Options{Env: "PROD", Level: "debug", File: file})

		log.Info().Str("shop", "demo.myshopify.com").Msg("install complete")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		require.Contains(t, string(data), "install complete")
		require.Contains(t, string(data), "demo.myshopify.com")
		require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})
}
