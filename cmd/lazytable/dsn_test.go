package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/rebeliceyang/lazytable/internal/config"
	"github.com/rebeliceyang/lazytable/internal/credentials"
)

func runDSN(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newDSNCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestDSNCommand(t *testing.T) {
	keyring.MockInit()
	creds := credentials.NewStore()

	out, err := runDSN(t, "", "set", "shop", "postgres://app:secret@db/shop")
	require.NoError(t, err)
	assert.Contains(t, out, "source.keyring: shop")
	dsn, err := creds.DSN("shop")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:secret@db/shop", dsn)

	_, err = runDSN(t, "  postgres://app:rotated@db/shop  \n", "set", "shop")
	require.NoError(t, err)
	dsn, err = creds.DSN("shop")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:rotated@db/shop", dsn)

	_, err = runDSN(t, "\n", "set", "shop")
	assert.Error(t, err)

	_, err = runDSN(t, "", "delete", "shop")
	require.NoError(t, err)
	_, err = creds.DSN("shop")
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestSourceDSN(t *testing.T) {
	keyring.MockInit()
	creds := credentials.NewStore()
	require.NoError(t, creds.SaveDSN("shop", "postgres://from-keyring"))

	cfg := config.GetDefaults()
	cfg.Source.DSN = "postgres://from-config"
	cfg.Source.Keyring = "shop"
	dsn, err := sourceDSN(cfg, creds)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-config", dsn)

	cfg.Source.DSN = ""
	dsn, err = sourceDSN(cfg, creds)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-keyring", dsn)

	cfg.Source.Keyring = "missing"
	_, err = sourceDSN(cfg, creds)
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	cfg.Source.Keyring = ""
	dsn, err = sourceDSN(cfg, creds)
	require.NoError(t, err)
	assert.Empty(t, dsn)
}
