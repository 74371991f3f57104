package jsonrpc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/client/jsonrpc"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/nsotest"
)

func startClient(t *testing.T) (*jsonrpc.Client, *nsotest.Server) {
	t.Helper()
	logger := logrus.NewEntry(logrus.New())
	srv, ts := nsotest.StartTest("", "", logger)
	c := jsonrpc.New(jsonrpc.Options{
		Host:     strings.TrimPrefix(ts.URL, "http://"),
		Username: "admin",
		Password: "admin",
		Timeout:  5 * time.Second,
	})
	t.Cleanup(func() {
		c.Close()
		ts.Close()
		srv.Close()
	})
	return c, srv
}

func TestLoginAndTransactions(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransReadWrite)
	require.NoError(t, err)
	assert.Greater(t, th, 0)

	trans, err := c.GetTrans(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(trans), `"th"`)

	require.NoError(t, c.DeleteTrans(ctx, th))
	require.NoError(t, c.Logout(ctx))
}

func TestCallsWithoutLoginAreRejected(t *testing.T) {
	c, _ := startClient(t)
	_, err := c.NewTrans(context.Background(), jsonrpc.TransRead)
	require.Error(t, err)
}

func TestGetValueDataNotFound(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))
	th, err := c.NewTrans(ctx, jsonrpc.TransRead)
	require.NoError(t, err)

	_, err = c.GetValue(ctx, th, "/devices/device{none}/address")
	require.Error(t, err)
	assert.True(t, jsonrpc.IsDataNotFound(err))
	assert.Equal(t, -32000, jsonrpc.ErrorCode(err))

	// LookupValue maps the error to a missing value
	_, found, err := c.LookupValue(ctx, th, "/devices/device{none}/address")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadCommitAndRead(t *testing.T) {
	c, srv := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransReadWrite)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, th, "/devices/device{ce0}/address", "10.0.0.1", "json", "merge"))
	_, err = c.Commit(ctx, th, []string{"no-networking"})
	require.NoError(t, err)

	// committed data is visible to a fresh read transaction
	readTH, err := c.NewTrans(ctx, jsonrpc.TransRead)
	require.NoError(t, err)
	value, err := c.GetValue(ctx, readTH, "/devices/device{ce0}/address")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", value)

	_, ok := srv.Store.Get("devices/device=ce0/address")
	assert.True(t, ok)
}

func TestWriteInReadTransactionIsRejected(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransRead)
	require.NoError(t, err)
	err = c.Load(ctx, th, "/x", "1", "json", "merge")
	require.Error(t, err)
	assert.False(t, jsonrpc.IsDataNotFound(err))
}

func TestDeleteRemovesSubtree(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransReadWrite)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, th, "/services/vlan{100}/vid", "100", "json", "merge"))
	_, err = c.Delete(ctx, th, "/services/vlan{100}")
	require.NoError(t, err)

	_, err = c.GetValue(ctx, th, "/services/vlan{100}/vid")
	assert.True(t, jsonrpc.IsDataNotFound(err))
}

func TestShowConfigAndGetValues(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransReadWrite)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, th, "/devices/device{ce0}/address", "10.0.0.1", "json", "merge"))
	require.NoError(t, c.Load(ctx, th, "/devices/device{ce0}/port", "830", "json", "merge"))

	cfg, err := c.ShowConfig(ctx, th, "/devices", "json", -1, false)
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "ce0")

	values, err := c.GetValues(ctx, th, "/devices/device{ce0}", []string{"address", "port"})
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestRunAction(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransRead)
	require.NoError(t, err)
	out, err := c.RunAction(ctx, th, "/devices/check-sync", nil)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "result", out[0].Name)
}

func TestGetSchemaAndAttrs(t *testing.T) {
	c, _ := startClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	th, err := c.NewTrans(ctx, jsonrpc.TransReadWrite)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, th, "/devices/device{ce0}", "{}", "json", "merge"))

	schema, err := c.GetSchema(ctx, jsonrpc.GetSchemaRequest{TH: th, Path: "/devices"})
	require.NoError(t, err)
	assert.Contains(t, string(schema), "devices")

	attrs, err := c.GetAttrs(ctx, th, "/devices/device{ce0}", []string{"tags"})
	require.NoError(t, err)
	assert.Contains(t, string(attrs), "tags")
}
