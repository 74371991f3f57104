// Package restconf is a small RESTCONF (RFC 8040) client tuned for load
// generation against NSO: unlimited connection pool, yang-data+json
// payloads, and request outcomes classified for the stress engine.
package restconf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Op names a RESTCONF operation the way scenarios spell it.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpAction Op = "action"
)

// Class is the outcome classification of a request.
type Class string

const (
	ClassOK        Class = "ok"        // status in the expected set
	ClassWrong     Class = "nok"       // request completed with an unexpected status
	ClassException Class = "exception" // transport failure
)

type dispatchEntry struct {
	method   string
	expected []int
}

// Expected response status for successful requests.
var dispatch = map[Op]dispatchEntry{
	OpCreate: {http.MethodPost, []int{201}},
	OpRead:   {http.MethodGet, []int{200}},
	OpUpdate: {http.MethodPatch, []int{200, 204}},
	OpSet:    {http.MethodPut, []int{204}},
	OpDelete: {http.MethodDelete, []int{200, 204}},
	OpAction: {http.MethodPost, []int{200, 204}},
}

// ParseOp validates an operation name from a scenario or the cli.
func ParseOp(s string) (Op, error) {
	op := Op(s)
	if _, ok := dispatch[op]; !ok {
		return "", errors.Errorf("unknown restconf operation %q", s)
	}
	return op, nil
}

const yangDataJSON = "application/yang-data+json"

// Request describes one RESTCONF request.
type Request struct {
	Op           Op
	Resource     string
	ResourceType string // "data" (default) or "operations"
	Data         string // request payload, empty for no body
	Query        string // raw query string, appended verbatim
}

// Result is the outcome of one request.
type Result struct {
	ID      int64
	Class   Class
	Status  int
	Body    string
	Elapsed time.Duration
}

// Options configures a Client.
type Options struct {
	Host          string
	Username      string
	Password      string
	TLS           bool
	NoCompression bool
	Timeout       time.Duration
	Retries       uint
	DryRun        bool
	Echo          bool
	Logger        *logrus.Entry
}

// Client issues RESTCONF requests. Safe for concurrent use.
type Client struct {
	opts   Options
	scheme string
	hc     *http.Client
	nextID atomic.Int64
	log    *logrus.Entry
}

func New(opts Options) *Client {
	scheme := "http"
	if opts.TLS {
		scheme = "https"
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	transport := &http.Transport{
		// the stress engine keeps a full window of requests in flight, so
		// the pool must never cap or shed connections under load
		MaxIdleConns:        0,
		MaxIdleConnsPerHost: 1024,
		MaxConnsPerHost:     0,
		IdleConnTimeout:     5 * time.Minute,
	}
	return &Client{
		opts:   opts,
		scheme: scheme,
		hc: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		log: log.WithField("client", "restconf"),
	}
}

func (c *Client) url(req Request) string {
	resourceType := req.ResourceType
	if resourceType == "" {
		resourceType = "data"
	}
	url := fmt.Sprintf("%s://%s/restconf/%s%s", c.scheme, c.opts.Host, resourceType, req.Resource)
	if req.Query != "" {
		// NSO accepts flag-only query parameters without an equal sign,
		// which url encoders mangle, so the query is appended verbatim.
		url += "?" + req.Query
	}
	return url
}

// Do issues one request and classifies the outcome. It never returns an
// error: transport failures are results of class exception, so the engine
// counts them instead of aborting the run.
func (c *Client) Do(ctx context.Context, req Request) Result {
	rid := c.nextID.Add(1)
	entry, ok := dispatch[req.Op]
	if !ok {
		return Result{ID: rid, Class: ClassException, Body: fmt.Sprintf("unknown operation %q", req.Op)}
	}
	url := c.url(req)
	if c.opts.Echo {
		c.log.WithFields(logrus.Fields{"rid": rid, "method": entry.method, "url": url, "data": req.Data}).Info("request")
	}
	if c.opts.DryRun {
		// 418 makes dry runs visible in the results without clashing with
		// any status NSO can produce
		return Result{ID: rid, Class: ClassOK, Status: http.StatusTeapot, Body: "dry-run"}
	}

	start := time.Now()
	status, body, err := c.send(ctx, entry.method, url, req.Data)
	elapsed := time.Since(start)
	if err != nil {
		if c.opts.Echo {
			c.log.WithFields(logrus.Fields{"rid": rid, "url": url}).WithError(err).Info("request failed")
		}
		return Result{ID: rid, Class: ClassException, Body: err.Error(), Elapsed: elapsed}
	}
	if c.opts.Echo {
		c.log.WithFields(logrus.Fields{"rid": rid, "status": status, "data": body}).Info("response")
	}
	class := ClassWrong
	for _, expected := range entry.expected {
		if status == expected {
			class = ClassOK
			break
		}
	}
	return Result{ID: rid, Class: class, Status: status, Body: body, Elapsed: elapsed}
}

func (c *Client) send(ctx context.Context, method, url, data string) (int, string, error) {
	attempt := func() (int, string, error) {
		var body io.Reader
		if data != "" {
			body = strings.NewReader(data)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return 0, "", backoff.Permanent(err)
		}
		httpReq.Header.Set("Accept", yangDataJSON)
		httpReq.Header.Set("Content-Type", yangDataJSON)
		if c.opts.NoCompression {
			// Prevent NSO from gzipping the data
			httpReq.Header.Set("Accept-Encoding", "identity")
		}
		httpReq.SetBasicAuth(c.opts.Username, c.opts.Password)

		resp, err := c.hc.Do(httpReq)
		if err != nil {
			return 0, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode == 201 || resp.StatusCode == 204 {
			// No content is expected.
			io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, "", nil
		}
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, "", backoff.Permanent(errors.Wrap(err, "could not read response body"))
		}
		return resp.StatusCode, string(payload), nil
	}

	if c.opts.Retries == 0 {
		return attempt()
	}

	var status int
	var payload string
	operation := func() error {
		var err error
		status, payload, err = attempt()
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.opts.Retries)), ctx)
	err := backoff.Retry(operation, policy)
	return status, payload, err
}

// Warm opens n connections before a run by issuing n concurrent reads of
// a well-known leaf, so connection setup does not skew the first window
// of measurements.
func (c *Client) Warm(ctx context.Context, n uint) {
	const probe = "/tailf-ncs:devices/global-settings/read-timeout"
	var wg sync.WaitGroup
	for i := uint(0); i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Do(ctx, Request{Op: OpRead, Resource: probe})
		}()
	}
	wg.Wait()
}
