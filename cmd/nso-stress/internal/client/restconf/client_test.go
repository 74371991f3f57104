package restconf_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/client/restconf"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/nsotest"
)

func startMock(t *testing.T) (*nsotest.Server, string) {
	t.Helper()
	logger := logrus.NewEntry(logrus.New())
	srv, ts := nsotest.StartTest("admin", "admin", logger)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func newClient(host string) *restconf.Client {
	return restconf.New(restconf.Options{
		Host:     host,
		Username: "admin",
		Password: "admin",
		Timeout:  5 * time.Second,
	})
}

func TestCreateReadUpdateDelete(t *testing.T) {
	_, host := startMock(t)
	c := newClient(host)
	ctx := context.Background()

	res := c.Do(ctx, restconf.Request{
		Op:       restconf.OpCreate,
		Resource: "/devices/device=ce0",
		Data:     `{"device": {"name": "ce0"}}`,
	})
	assert.Equal(t, restconf.ClassOK, res.Class)
	assert.Equal(t, 201, res.Status)

	res = c.Do(ctx, restconf.Request{Op: restconf.OpRead, Resource: "/devices/device=ce0"})
	assert.Equal(t, restconf.ClassOK, res.Class)
	assert.Equal(t, 200, res.Status)
	assert.Contains(t, res.Body, "ce0")

	res = c.Do(ctx, restconf.Request{
		Op:       restconf.OpUpdate,
		Resource: "/devices/device=ce0",
		Data:     `{"device": {"name": "ce0", "port": 830}}`,
	})
	assert.Equal(t, restconf.ClassOK, res.Class)

	res = c.Do(ctx, restconf.Request{Op: restconf.OpDelete, Resource: "/devices/device=ce0"})
	assert.Equal(t, restconf.ClassOK, res.Class)

	res = c.Do(ctx, restconf.Request{Op: restconf.OpRead, Resource: "/devices/device=ce0"})
	assert.Equal(t, restconf.ClassWrong, res.Class)
	assert.Equal(t, 404, res.Status)
}

func TestSetIsIdempotent(t *testing.T) {
	_, host := startMock(t)
	c := newClient(host)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res := c.Do(ctx, restconf.Request{
			Op:       restconf.OpSet,
			Resource: "/services/vlan=100",
			Data:     `{"vlan": {"id": 100}}`,
		})
		assert.Equal(t, restconf.ClassOK, res.Class)
		assert.Equal(t, 204, res.Status)
	}
}

func TestCreateConflictIsWrongStatus(t *testing.T) {
	_, host := startMock(t)
	c := newClient(host)
	ctx := context.Background()

	req := restconf.Request{Op: restconf.OpCreate, Resource: "/x=1", Data: `{}`}
	res := c.Do(ctx, req)
	require.Equal(t, restconf.ClassOK, res.Class)

	res = c.Do(ctx, req)
	assert.Equal(t, restconf.ClassWrong, res.Class)
	assert.Equal(t, 409, res.Status)
}

func TestAction(t *testing.T) {
	_, host := startMock(t)
	c := newClient(host)

	res := c.Do(context.Background(), restconf.Request{
		Op:           restconf.OpAction,
		Resource:     "/devices/check-sync",
		ResourceType: "operations",
	})
	assert.Equal(t, restconf.ClassOK, res.Class)
	assert.Contains(t, res.Body, "output")
}

func TestBadCredentialsAreWrongStatus(t *testing.T) {
	_, host := startMock(t)
	c := restconf.New(restconf.Options{
		Host:     host,
		Username: "admin",
		Password: "wrong",
		Timeout:  5 * time.Second,
	})
	res := c.Do(context.Background(), restconf.Request{Op: restconf.OpRead, Resource: "/x"})
	assert.Equal(t, restconf.ClassWrong, res.Class)
	assert.Equal(t, 401, res.Status)
}

func TestTransportFailureIsException(t *testing.T) {
	c := restconf.New(restconf.Options{
		Host:    "127.0.0.1:1", // nothing listens here
		Timeout: time.Second,
	})
	res := c.Do(context.Background(), restconf.Request{Op: restconf.OpRead, Resource: "/x"})
	assert.Equal(t, restconf.ClassException, res.Class)
	assert.Zero(t, res.Status)
	assert.NotEmpty(t, res.Body)
}

func TestDryRunSkipsNetwork(t *testing.T) {
	c := restconf.New(restconf.Options{
		Host:   "127.0.0.1:1",
		DryRun: true,
	})
	res := c.Do(context.Background(), restconf.Request{Op: restconf.OpCreate, Resource: "/x", Data: `{}`})
	assert.Equal(t, restconf.ClassOK, res.Class)
	assert.Equal(t, 418, res.Status)
}

func TestUniqueMonotonicRequestIDs(t *testing.T) {
	_, host := startMock(t)
	c := newClient(host)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		res := c.Do(ctx, restconf.Request{Op: restconf.OpRead, Resource: "/missing"})
		assert.Greater(t, res.ID, last)
		last = res.ID
	}
}

func TestStream(t *testing.T) {
	_, host := startMock(t)
	c := newClient(host)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan restconf.Event, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Stream(ctx, "ncs-events", events)
	}()

	received := 0
	for received < 3 {
		select {
		case ev, ok := <-events:
			require.True(t, ok)
			if ev.Data != "" {
				assert.Contains(t, ev.Data, "ncs-events")
				received++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for stream events")
		}
	}
	cancel()
	require.Error(t, <-errCh) // context cancellation ends the stream

	// the events channel is closed once the stream returns
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("events channel was not closed")
		}
	}
}
