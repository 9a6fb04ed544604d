package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queryYAML = `operator: AND
operands:
  - operator: EQ
    operands: [sector, Technology]
  - operator: GT
    operands: [eodprice, 5]
`

// execute runs the root command with args inside dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeQuery(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "query.yaml")
	require.NoError(t, os.WriteFile(path, []byte(queryYAML), 0o600))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "screenq", cmd.Use)

	for _, name := range []string{"repl", "render", "fetch", "screen"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "log-level", "timeout", "user-agent", "engine", "dsn", "size", "offset", "sort-field", "sort-type", "quote-type", "region"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeQuery(t, dir)

	out, err := execute(t, dir, "render", path, "--format", "sql")
	require.NoError(t, err)
	assert.Equal(t, `"sector" = 'Technology' AND "eodprice" > 5`, strings.TrimSpace(out))

	out, err = execute(t, dir, "render", path, "--format", "sql", "--dialect", "sqlite", "--params", "--region", "us")
	require.NoError(t, err)
	assert.Contains(t, out, `("sector" = ? AND "eodprice" > ?) AND "region" = ?`)
	assert.Contains(t, out, "-- params: [Technology 5 us]")

	out, err = execute(t, dir, "render", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"operator": "AND"`)

	_, err = execute(t, dir, "render", path, "--dialect", "oracle")
	assert.Error(t, err)
}

func TestScreenCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeQuery(t, dir)
	dsn := filepath.Join(dir, "quotes.db")

	out, err := execute(t, dir, "screen", path, "--dsn", dsn, "--explain", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, `SELECT * FROM "quotes" WHERE "sector" = ? AND "eodprice" > ? LIMIT 10`)

	_, err = execute(t, dir, "screen", path)
	assert.ErrorContains(t, err, "no store DSN")
}

func TestFetchRequiresInput(t *testing.T) {
	_, err := execute(t, t.TempDir(), "fetch")
	assert.ErrorContains(t, err, "query file or --predefined")
}

func TestConfigFileIsRead(t *testing.T) {
	dir := t.TempDir()
	path := writeQuery(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "screenq.yaml"), []byte("body:\n  size: 500\n"), 0o600))

	_, err := execute(t, dir, "render", path)
	assert.ErrorContains(t, err, "size")
}
