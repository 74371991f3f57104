package nsotest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// NSO reports missing data with this code rather than a JSON-RPC
// standard one.
const codeDataNotFound jrpc2.Code = -32000

// JSONRPCHandler serves the mock's /jsonrpc endpoint.
type JSONRPCHandler struct {
	bridge jhttp.Bridge
	logger *logrus.Entry
	http.Handler
}

func (h JSONRPCHandler) Close() {
	if err := h.bridge.Close(); err != nil {
		h.logger.WithError(err).Warn("could not close bridge")
	}
}

func NewJSONRPCHandler(store *Store, logger *logrus.Entry) JSONRPCHandler {
	m := &methods{store: store, logger: logger}
	bridge := jhttp.NewBridge(handler.Map{
		"login":        handler.New(m.login),
		"logout":       handler.New(m.logout),
		"new_trans":    handler.New(m.newTrans),
		"get_trans":    handler.New(m.getTrans),
		"delete_trans": handler.New(m.deleteTrans),
		"get_value":    handler.New(m.getValue),
		"get_values":   handler.New(m.getValues),
		"get_attrs":    handler.New(m.getAttrs),
		"load":         handler.New(m.load),
		"commit":       handler.New(m.commit),
		"apply":        handler.New(m.apply),
		"delete":       handler.New(m.deleteNode),
		"show_config":  handler.New(m.showConfig),
		"get_schema":   handler.New(m.getSchema),
		"run_action":   handler.New(m.runAction),
	}, nil)
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
	})
	return JSONRPCHandler{
		bridge:  bridge,
		logger:  logger,
		Handler: corsMiddleware.Handler(bridge),
	}
}

type methods struct {
	store  *Store
	logger *logrus.Entry
}

type loginRequest struct {
	User   string `json:"user"`
	Passwd string `json:"passwd"`
}

func (m *methods) login(ctx context.Context, req loginRequest) (json.RawMessage, error) {
	if req.User == "" || req.Passwd == "" {
		return nil, &jrpc2.Error{Code: jrpc2.InvalidParams, Message: "missing user or passwd"}
	}
	m.store.login()
	return json.RawMessage(`{}`), nil
}

func (m *methods) logout(ctx context.Context) (json.RawMessage, error) {
	m.store.logout()
	return json.RawMessage(`{}`), nil
}

type newTransRequest struct {
	Mode string `json:"mode"`
}

type newTransResponse struct {
	TH int `json:"th"`
}

func (m *methods) newTrans(ctx context.Context, req newTransRequest) (newTransResponse, error) {
	if err := m.requireSession(); err != nil {
		return newTransResponse{}, err
	}
	mode := req.Mode
	if mode == "" {
		mode = "read"
	}
	if mode != "read" && mode != "read_write" {
		return newTransResponse{}, &jrpc2.Error{Code: jrpc2.InvalidParams, Message: "invalid mode"}
	}
	return newTransResponse{TH: m.store.newTrans(mode)}, nil
}

type transInfo struct {
	TH   int    `json:"th"`
	Mode string `json:"mode"`
}

type getTransResponse struct {
	Trans []transInfo `json:"trans"`
}

func (m *methods) getTrans(ctx context.Context) (getTransResponse, error) {
	if err := m.requireSession(); err != nil {
		return getTransResponse{}, err
	}
	resp := getTransResponse{Trans: []transInfo{}}
	for th, mode := range m.store.listTrans() {
		resp.Trans = append(resp.Trans, transInfo{TH: th, Mode: mode})
	}
	return resp, nil
}

type thRequest struct {
	TH int `json:"th"`
}

func (m *methods) deleteTrans(ctx context.Context, req thRequest) (json.RawMessage, error) {
	if !m.store.deleteTrans(req.TH) {
		return nil, invalidTrans(req.TH)
	}
	return json.RawMessage(`{}`), nil
}

type pathRequest struct {
	TH   int    `json:"th"`
	Path string `json:"path"`
}

type valueResponse struct {
	Value string `json:"value"`
}

func (m *methods) getValue(ctx context.Context, req pathRequest) (valueResponse, error) {
	if err := m.requireTrans(req.TH); err != nil {
		return valueResponse{}, err
	}
	value, ok := m.store.Get(req.Path)
	if !ok {
		return valueResponse{}, &jrpc2.Error{Code: codeDataNotFound, Message: "Data not found"}
	}
	return valueResponse{Value: value}, nil
}

type getValuesRequest struct {
	TH    int      `json:"th"`
	Path  string   `json:"path"`
	Leafs []string `json:"leafs"`
}

type leafValue struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Access string `json:"access,omitempty"`
}

type getValuesResponse struct {
	Values []leafValue `json:"values"`
}

func (m *methods) getValues(ctx context.Context, req getValuesRequest) (getValuesResponse, error) {
	if err := m.requireTrans(req.TH); err != nil {
		return getValuesResponse{}, err
	}
	resp := getValuesResponse{Values: []leafValue{}}
	for _, leaf := range req.Leafs {
		value, ok := m.store.Get(req.Path + "/" + leaf)
		if !ok {
			continue
		}
		resp.Values = append(resp.Values, leafValue{Name: leaf, Value: value, Access: "rw"})
	}
	return resp, nil
}

type getAttrsRequest struct {
	TH    int      `json:"th"`
	Path  string   `json:"path"`
	Names []string `json:"names"`
}

func (m *methods) getAttrs(ctx context.Context, req getAttrsRequest) (map[string]interface{}, error) {
	if err := m.requireTrans(req.TH); err != nil {
		return nil, err
	}
	if _, ok := m.store.Get(req.Path); !ok {
		return nil, &jrpc2.Error{Code: codeDataNotFound, Message: "Data not found"}
	}
	attrs := map[string]interface{}{}
	for _, name := range req.Names {
		attrs[name] = ""
	}
	return map[string]interface{}{"attrs": attrs}, nil
}

type loadRequest struct {
	TH     int    `json:"th"`
	Path   string `json:"path"`
	Data   string `json:"data"`
	Format string `json:"format"`
	Mode   string `json:"mode"`
}

func (m *methods) load(ctx context.Context, req loadRequest) (json.RawMessage, error) {
	if err := m.requireWriteTrans(req.TH); err != nil {
		return nil, err
	}
	switch req.Mode {
	case "", "merge", "replace":
		m.store.Set(req.Path, req.Data)
	case "delete":
		m.store.Delete(req.Path)
	default:
		return nil, &jrpc2.Error{Code: jrpc2.InvalidParams, Message: fmt.Sprintf("invalid mode %q", req.Mode)}
	}
	return json.RawMessage(`{}`), nil
}

func (m *methods) commit(ctx context.Context, req thRequest) (json.RawMessage, error) {
	if err := m.requireWriteTrans(req.TH); err != nil {
		return nil, err
	}
	m.store.deleteTrans(req.TH)
	return json.RawMessage(`{}`), nil
}

func (m *methods) apply(ctx context.Context, req thRequest) (json.RawMessage, error) {
	return m.commit(ctx, req)
}

func (m *methods) deleteNode(ctx context.Context, req pathRequest) (json.RawMessage, error) {
	if err := m.requireWriteTrans(req.TH); err != nil {
		return nil, err
	}
	if !m.store.Delete(req.Path) {
		return nil, &jrpc2.Error{Code: codeDataNotFound, Message: "Data not found"}
	}
	return json.RawMessage(`{}`), nil
}

type showConfigRequest struct {
	TH   int    `json:"th"`
	Path string `json:"path"`
}

func (m *methods) showConfig(ctx context.Context, req showConfigRequest) (map[string]interface{}, error) {
	if err := m.requireTrans(req.TH); err != nil {
		return nil, err
	}
	config := map[string]string{}
	for _, path := range m.store.List(req.Path) {
		doc, _ := m.store.Get(path)
		config[path] = doc
	}
	return map[string]interface{}{"config": config}, nil
}

type getSchemaRequest struct {
	TH        int    `json:"th"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
	Levels    int    `json:"levels"`
}

func (m *methods) getSchema(ctx context.Context, req getSchemaRequest) (map[string]interface{}, error) {
	if err := m.requireTrans(req.TH); err != nil {
		return nil, err
	}
	name := req.Path
	if name == "" {
		name = req.Namespace
	}
	return map[string]interface{}{
		"meta": map[string]interface{}{
			"namespace": req.Namespace,
			"keypath":   req.Path,
		},
		"data": map[string]interface{}{
			"kind": "container",
			"name": strings.TrimPrefix(name, "/"),
		},
	}, nil
}

type runActionRequest struct {
	TH     int                    `json:"th"`
	Path   string                 `json:"path"`
	Params map[string]interface{} `json:"params"`
}

func (m *methods) runAction(ctx context.Context, req runActionRequest) ([]leafValue, error) {
	if err := m.requireTrans(req.TH); err != nil {
		return nil, err
	}
	return []leafValue{{Name: "result", Value: "true"}}, nil
}

func (m *methods) requireSession() error {
	if !m.store.loggedIn() {
		return &jrpc2.Error{Code: jrpc2.InvalidRequest, Message: "not logged in"}
	}
	return nil
}

func (m *methods) requireTrans(th int) error {
	if err := m.requireSession(); err != nil {
		return err
	}
	if _, ok := m.store.transMode(th); !ok {
		return invalidTrans(th)
	}
	return nil
}

func (m *methods) requireWriteTrans(th int) error {
	if err := m.requireSession(); err != nil {
		return err
	}
	mode, ok := m.store.transMode(th)
	if !ok {
		return invalidTrans(th)
	}
	if mode != "read_write" {
		return &jrpc2.Error{Code: jrpc2.InvalidRequest, Message: "transaction is read only"}
	}
	return nil
}

func invalidTrans(th int) error {
	return &jrpc2.Error{Code: jrpc2.InvalidParams, Message: fmt.Sprintf("invalid transaction handle %d", th)}
}
