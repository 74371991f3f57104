// Package jsonrpc is a client for the NSO JSON-RPC northbound API, built
// on creachadair/jrpc2 over its HTTP channel. The NSO session cookie is
// carried by the underlying HTTP client's cookie jar.
package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/sirupsen/logrus"
)

// TransMode selects how a new transaction can be used.
type TransMode string

const (
	TransRead      TransMode = "read"
	TransReadWrite TransMode = "read_write"
)

// Options configures a Client.
type Options struct {
	Host          string
	Username      string
	Password      string
	TLS           bool
	NoCompression bool
	Timeout       time.Duration
	Echo          bool
	Logger        *logrus.Entry
}

// Client wraps a jrpc2 client with the NSO method surface. Safe for
// concurrent use.
type Client struct {
	opts Options
	cli  *jrpc2.Client
	ch   *jhttp.Channel
	log  *logrus.Entry
}

// headerClient injects the headers NSO load runs need into every request.
type headerClient struct {
	c             *http.Client
	noCompression bool
}

func (h headerClient) Do(req *http.Request) (*http.Response, error) {
	if h.noCompression {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return h.c.Do(req)
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
	// the cookie jar keeps the NSO session alive across calls
	jar, _ := cookiejar.New(nil)
	hc := &http.Client{
		Jar:     jar,
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        0,
			MaxIdleConnsPerHost: 1024,
			IdleConnTimeout:     5 * time.Minute,
		},
	}
	ch := jhttp.NewChannel(scheme+"://"+opts.Host+"/jsonrpc", &jhttp.ChannelOptions{
		Client: headerClient{c: hc, noCompression: opts.NoCompression},
	})
	return &Client{
		opts: opts,
		cli:  jrpc2.NewClient(ch, nil),
		ch:   ch,
		log:  log.WithField("client", "jsonrpc"),
	}
}

// Close shuts down the underlying jrpc2 client and channel.
func (c *Client) Close() {
	c.cli.Close()
}

// Call invokes an arbitrary NSO JSON-RPC method. Named methods below are
// preferred; Call exists for ad-hoc load generation.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	if c.opts.Echo {
		c.log.WithFields(logrus.Fields{"method": method, "params": params}).Info("request")
	}
	err := c.cli.CallResult(ctx, method, params, result)
	if c.opts.Echo {
		if err != nil {
			c.log.WithField("method", method).WithError(err).Info("call failed")
		} else {
			c.log.WithFields(logrus.Fields{"method": method, "result": result}).Info("response")
		}
	}
	return err
}

// Login starts a session. NSO responds with a session cookie which the
// jar replays on subsequent calls.
func (c *Client) Login(ctx context.Context) error {
	params := map[string]interface{}{
		"user":   c.opts.Username,
		"passwd": c.opts.Password,
	}
	var result json.RawMessage
	return c.Call(ctx, "login", params, &result)
}

// Logout invalidates the current session.
func (c *Client) Logout(ctx context.Context) error {
	var result json.RawMessage
	return c.Call(ctx, "logout", nil, &result)
}

// NewTrans creates a new transaction and returns its handle.
func (c *Client) NewTrans(ctx context.Context, mode TransMode) (int, error) {
	var result struct {
		TH int `json:"th"`
	}
	err := c.Call(ctx, "new_trans", map[string]interface{}{"mode": string(mode)}, &result)
	return result.TH, err
}

// GetTrans lists the transactions of the current session.
func (c *Client) GetTrans(ctx context.Context) (json.RawMessage, error) {
	var result struct {
		Trans json.RawMessage `json:"trans"`
	}
	err := c.Call(ctx, "get_trans", nil, &result)
	return result.Trans, err
}

// DeleteTrans discards a transaction.
func (c *Client) DeleteTrans(ctx context.Context, th int) error {
	var result json.RawMessage
	return c.Call(ctx, "delete_trans", map[string]interface{}{"th": th}, &result)
}

// GetValue reads a single leaf.
func (c *Client) GetValue(ctx context.Context, th int, path string) (string, error) {
	var result struct {
		Value string `json:"value"`
	}
	err := c.Call(ctx, "get_value", map[string]interface{}{"th": th, "path": path}, &result)
	return result.Value, err
}

// LookupValue reads a single leaf, mapping NSO's "Data not found" error
// to a missing value instead of a failure.
func (c *Client) LookupValue(ctx context.Context, th int, path string) (string, bool, error) {
	value, err := c.GetValue(ctx, th, path)
	if err != nil {
		if IsDataNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// LeafValue is one element of a get_values response.
type LeafValue struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Access string `json:"access,omitempty"`
}

// GetValues reads multiple leafs under a container.
func (c *Client) GetValues(ctx context.Context, th int, path string, leafs []string) ([]LeafValue, error) {
	var result struct {
		Values []LeafValue `json:"values"`
	}
	params := map[string]interface{}{"th": th, "path": path, "leafs": leafs}
	err := c.Call(ctx, "get_values", params, &result)
	return result.Values, err
}

// GetAttrs reads attributes of a node.
func (c *Client) GetAttrs(ctx context.Context, th int, path string, names []string) (json.RawMessage, error) {
	var result struct {
		Attrs json.RawMessage `json:"attrs"`
	}
	params := map[string]interface{}{"th": th, "path": path, "names": names}
	err := c.Call(ctx, "get_attrs", params, &result)
	return result.Attrs, err
}

// Load merges, replaces or deletes configuration data at a path. Format
// is one of "json", "xml" or "cli"; mode is "merge", "replace" or
// "delete".
func (c *Client) Load(ctx context.Context, th int, path, data, format, mode string) error {
	if format == "" {
		format = "json"
	}
	if mode == "" {
		mode = "merge"
	}
	params := map[string]interface{}{
		"th": th, "path": path, "data": data, "format": format, "mode": mode,
	}
	var result json.RawMessage
	return c.Call(ctx, "load", params, &result)
}

// Commit commits a transaction. Flags are NSO commit flags like
// no-networking or commit-queue=sync.
func (c *Client) Commit(ctx context.Context, th int, flags []string) (json.RawMessage, error) {
	params := map[string]interface{}{"th": th}
	if len(flags) > 0 {
		params["flags"] = flags
	}
	var result json.RawMessage
	err := c.Call(ctx, "commit", params, &result)
	return result, err
}

// Apply validates and commits a transaction in one call.
func (c *Client) Apply(ctx context.Context, th int, flags []string) (json.RawMessage, error) {
	params := map[string]interface{}{"th": th}
	if len(flags) > 0 {
		params["flags"] = flags
	}
	var result json.RawMessage
	err := c.Call(ctx, "apply", params, &result)
	return result, err
}

// Delete removes a node from the data model.
func (c *Client) Delete(ctx context.Context, th int, path string) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.Call(ctx, "delete", map[string]interface{}{"th": th, "path": path}, &result)
	return result, err
}

// ShowConfig returns the configuration under a path. A depth of -1 means
// all levels.
func (c *Client) ShowConfig(ctx context.Context, th int, path, format string, depth int, operational bool) (json.RawMessage, error) {
	if format == "" {
		format = "json"
	}
	params := map[string]interface{}{"th": th, "path": path, "format": format}
	if depth != -1 {
		params["depth"] = depth
	}
	if operational {
		params["operational"] = true
	}
	var result json.RawMessage
	err := c.Call(ctx, "show_config", params, &result)
	return result, err
}

// GetSchemaRequest narrows a get_schema call.
type GetSchemaRequest struct {
	TH                  int
	Path                string
	Namespace           string
	Levels              int
	InsertValues        bool
	EvaluateWhenEntries bool
	StopOnList          bool
	CDMNamespace        bool
}

// GetSchema returns schema information for a path in the data model.
func (c *Client) GetSchema(ctx context.Context, req GetSchemaRequest) (json.RawMessage, error) {
	params := map[string]interface{}{
		"th":                    req.TH,
		"levels":                req.Levels,
		"insert_values":         req.InsertValues,
		"evaluate_when_entries": req.EvaluateWhenEntries,
		"stop_on_list":          req.StopOnList,
		"cdm_namespace":         req.CDMNamespace,
	}
	if req.Path != "" {
		params["path"] = req.Path
	}
	if req.Namespace != "" {
		params["namespace"] = req.Namespace
	}
	var result json.RawMessage
	err := c.Call(ctx, "get_schema", params, &result)
	return result, err
}

// RunAction runs an action at a path, returning its output leafs.
func (c *Client) RunAction(ctx context.Context, th int, path string, input map[string]interface{}) ([]LeafValue, error) {
	params := map[string]interface{}{"th": th, "path": path}
	if len(input) > 0 {
		params["params"] = input
	}
	var result []LeafValue
	err := c.Call(ctx, "run_action", params, &result)
	return result, err
}
