package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/audio/audiotest"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/service"
	"github.com/aussiebroadwan/voxgate/pkg/cryptox"
)

var cheapHash = cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

func testConfig(t *testing.T, driver string) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.StoreDriver = driver
	cfg.DatabaseFile = filepath.Join(dir, "voxgate.db")
	cfg.BadgerDir = filepath.Join(dir, "badger")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.Env = "test"
	return cfg
}

func TestApplication_EndToEnd(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			app, err := New(testConfig(t, driver), Options{LogOutput: io.Discard, HashParams: cheapHash})
			require.NoError(t, err)
			defer app.Close()

			alice := audiotest.WAV(t, 16000, audiotest.Harmonic(16000, 2, 140, 1, 0.6, 0.3))
			bob := audiotest.WAV(t, 22050, audiotest.Harmonic(22050, 2, 900, 0.1, 1, 0.05, 0.4))

			require.NoError(t, app.Enrollment().Enroll(ctx, "alice", []byte("pw"), alice))

			d, err := app.Verification().Verify(ctx, "alice", []byte("pw"), alice)
			require.NoError(t, err)
			require.True(t, d.Accepted)
			require.InDelta(t, 1.0, d.Similarity, 1e-6)

			other, err := app.Verification().Verify(ctx, "alice", []byte("pw"), bob)
			require.NoError(t, err)
			require.Less(t, other.Similarity, d.Similarity)

			silent := audiotest.WAV(t, 16000, audiotest.Silence(16000, 2))
			d, err = app.Verification().Verify(ctx, "alice", []byte("pw"), silent)
			require.NoError(t, err)
			require.Equal(t, domain.ReasonInsufficientSignal, d.Reason)

			_, err = app.Verification().Verify(ctx, "alice", []byte("wrong"), alice)
			require.ErrorIs(t, err, service.ErrInvalidCredentials)
		})
	}
}

func TestApplication_Handler(t *testing.T) {
	app, err := New(testConfig(t, DriverSQLite), Options{LogOutput: io.Discard, HashParams: cheapHash})
	require.NoError(t, err)
	defer app.Close()

	for _, path := range []string{"/livez", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestApplication_PepperPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, DriverSQLite)
	voice := audiotest.WAV(t, 16000, audiotest.Harmonic(16000, 1.5, 200, 1, 0.5))

	app, err := New(cfg, Options{LogOutput: io.Discard, HashParams: cheapHash})
	require.NoError(t, err)
	require.NoError(t, app.Enrollment().Enroll(ctx, "alice", []byte("pw"), voice))
	require.NoError(t, app.Close())

	app, err = New(cfg, Options{LogOutput: io.Discard, HashParams: cheapHash})
	require.NoError(t, err)
	defer app.Close()

	d, err := app.Verification().Verify(ctx, "alice", []byte("pw"), voice)
	require.NoError(t, err)
	require.True(t, d.Accepted)
}

func TestNew_BadModel(t *testing.T) {
	cfg := testConfig(t, DriverSQLite)
	cfg.Model = "sherpa"
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	_, err := New(cfg, Options{LogOutput: io.Discard})
	require.Error(t, err)
}
