package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, err := newRootCmd()
	require.NoError(t, err)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), err
}

func TestTrackStatusAndVersions(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	store := []string{"--store", "sqlite", "--store-path", db}

	_, err := runCLI(t, append(store, "track", "tech_gtm_detected", "1")...)
	require.NoError(t, err)
	_, err = runCLI(t, append(store, "track", "tech_pixel_detected", "1")...)
	require.NoError(t, err)

	out, err := runCLI(t, append(store, "--json", "status")...)
	require.NoError(t, err)
	var view orchestrator.SystemView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view.RecentEvents, 2)
	assert.Equal(t, 1, view.Stats.Partial)

	out, err = runCLI(t, append(store, "--json", "versions")...)
	require.NoError(t, err)
	var versions []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	assert.Len(t, versions, 2)

	out, err = runCLI(t, append(store, "passes")...)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "track"))

	out, err = runCLI(t, append(store, "verify")...)
	require.NoError(t, err)
	assert.Contains(t, out, "all checks passed")
}

func TestRollback(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	store := []string{"--store", "sqlite", "--store-path", db}

	_, err := runCLI(t, append(store, "track", "login")...)
	require.NoError(t, err)
	out, err := runCLI(t, append(store, "--json", "versions")...)
	require.NoError(t, err)
	var versions []struct{ VersionID string }
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	require.Len(t, versions, 1)
	first := versions[0].VersionID

	_, err = runCLI(t, append(store, "track", "login")...)
	require.NoError(t, err)
	_, err = runCLI(t, append(store, "rollback", first)...)
	require.NoError(t, err)

	out, err = runCLI(t, append(store, "--json", "status")...)
	require.NoError(t, err)
	var view orchestrator.SystemView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view.RecentEvents, 1)
}

func TestVersionsNeedSQLite(t *testing.T) {
	_, err := runCLI(t, "--store", "memory", "versions")
	assert.ErrorIs(t, err, errNotVersioned)
}

func TestDecideValidation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	_, err := runCLI(t, "--store-path", db, "decide", "--name", "x", "--category", "horoscope")
	assert.Error(t, err)

	out, err := runCLI(t, "--store-path", db, "decide", "--name", "Scale ads", "--category", "scaling",
		"--signals", "sig_signal_integrity")
	require.NoError(t, err)
	assert.Contains(t, out, "created dec_")
}

func TestTrackInvalidValue(t *testing.T) {
	_, err := runCLI(t, "--store", "memory", "track", "login", "lots")
	assert.Error(t, err)
}

func TestReplayFixture(t *testing.T) {
	fixture := filepath.Join("..", "..", "internal", "replay", "testdata", "scan_sequence.json")
	out, err := runCLI(t, "replay", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "4/4 steps passed")
}
