package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goAuthClient/internal/authtest"
)

type cli struct {
	t    *testing.T
	args []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	auth := authtest.New(authtest.Options{})
	auth.AddUser("alice", "secret1", "USER")
	auth.AddUser("root", "secret1", "ADMIN")
	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)

	return &cli{t: t, args: []string{
		"--base-url", srv.URL,
		"--storage", "sqlite",
		"--sqlite-path", filepath.Join(t.TempDir(), "creds.db"),
	}}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, c.args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "login", "-u", "alice", "-p", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Username:")
	assert.Contains(t, out, "alice")

	out, err = c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "valid for")

	out, err = c.run("", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Token is valid for alice")

	_, err = c.run("", "refresh")
	require.NoError(t, err)

	_, err = c.run("", "logout")
	require.NoError(t, err)

	_, err = c.run("", "whoami")
	assert.Error(t, err)

	out, err = c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored token")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("secret1\n", "login", "-u", "alice")
	require.NoError(t, err)

	_, err = c.run("wrong\n", "login", "-u", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), authtest.MsgInvalidCredentials)
}

func TestUsersRequiresAdmin(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "login", "-u", "alice", "-p", "secret1")
	require.NoError(t, err)
	_, err = c.run("", "users")
	require.Error(t, err)

	_, err = c.run("", "login", "-u", "root", "-p", "secret1")
	require.NoError(t, err)
	out, err := c.run("", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "root")
}

func TestRegisterValidatesLocally(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "register", "-u", "bo", "-e", "bo@example.com", "-p", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username must be at least 3 characters")

	out, err := c.run("", "register", "-u", "carol", "-e", "carol@example.com", "-p", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "carol")
}
