package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/walletregistry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func setWebhookEnv(t *testing.T) {
	t.Setenv("DEPOSITWATCH_WEBHOOK_CALLBACK_URL", "https://example.com/callback")
	t.Setenv("DEPOSITWATCH_WEBHOOK_API_KEY", "key")
	t.Setenv("DEPOSITWATCH_WEBHOOK_API_SECRET", "secret")
}

func writeWallets(t *testing.T, dir string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, "wallets.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func TestApp_Close(t *testing.T) {
	t.Run("close before setup does not panic", func(t *testing.T) {
		a := newApp()

		assert.NotPanics(t, func() { a.close(context.Background()) })
	})

	t.Run("close after a failed setup does not panic", func(t *testing.T) {
		isolate(t)
		t.Setenv("DEPOSITWATCH_MODE", "bogus")

		a := newApp()
		require.Error(t, a.setup(context.Background()))

		assert.NotPanics(t, func() { a.close(context.Background()) })
	})
}

func TestApp_Setup(t *testing.T) {
	t.Run("reports config errors", func(t *testing.T) {
		isolate(t)
		t.Setenv("DEPOSITWATCH_MODE", "bogus")

		err := newApp().setup(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "load config")
	})

	t.Run("error is kept for later calls", func(t *testing.T) {
		isolate(t)
		t.Setenv("DEPOSITWATCH_MODE", "bogus")

		a := newApp()
		first := a.setup(context.Background())

		assert.Same(t, first, a.setup(context.Background()))
	})
}

func TestApp_WalletService(t *testing.T) {
	t.Run("requires the redis wallet source", func(t *testing.T) {
		isolate(t)
		setWebhookEnv(t)

		_, err := newApp().WalletService(context.Background())

		assert.ErrorIs(t, err, ErrRedisWalletSourceRequired)
	})
}

func TestApp_Cycler(t *testing.T) {
	t.Run("builds a native watcher from a wallets file", func(t *testing.T) {
		dir := isolate(t)
		setWebhookEnv(t)
		t.Setenv("DEPOSITWATCH_WALLETS_FILE", writeWallets(t, dir, "0x"+strings.Repeat("a", 40)))

		a := newApp()
		cycler, store, err := a.Cycler(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, cycler)
		assert.Equal(t, depositwatch.NopStateStore(), store)
	})

	t.Run("missing wallets file", func(t *testing.T) {
		dir := isolate(t)
		setWebhookEnv(t)
		t.Setenv("DEPOSITWATCH_WALLETS_FILE", filepath.Join(dir, "missing.txt"))

		_, _, err := newApp().Cycler(context.Background())

		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty wallets file", func(t *testing.T) {
		dir := isolate(t)
		setWebhookEnv(t)
		t.Setenv("DEPOSITWATCH_WALLETS_FILE", writeWallets(t, dir, ""))

		_, _, err := newApp().Cycler(context.Background())

		assert.ErrorIs(t, err, walletregistry.ErrNoWallets)
	})
}

func TestApp_Runner(t *testing.T) {
	t.Run("wraps the configured cycler", func(t *testing.T) {
		dir := isolate(t)
		setWebhookEnv(t)
		t.Setenv("DEPOSITWATCH_WALLETS_FILE", writeWallets(t, dir, "0x"+strings.Repeat("b", 40)))

		r, err := newApp().Runner(context.Background(), depositwatch.WithFromBlock(10))

		require.NoError(t, err)
		assert.NotNil(t, r)
	})
}
