package daemon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/pkg/errors"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/client/jsonrpc"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/client/restconf"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/engine"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/param"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/scenario"
)

// restconfRequester cycles through the resolved tasks, expanding
// parameters per request, and adapts the client's results for the
// engine.
type restconfRequester struct {
	client   *restconf.Client
	tasks    []restconfTask
	params   *param.Set
	registry *metrics.Registry
	next     atomic.Uint64
}

type restconfTask struct {
	op       restconf.Op
	resource string
	data     string
	query    string
}

func newRESTCONFRequester(client *restconf.Client, tasks []scenario.Task, params *param.Set, registry *metrics.Registry, commitQuery string) (*restconfRequester, error) {
	r := &restconfRequester{
		client:   client,
		params:   params,
		registry: registry,
	}
	for _, t := range tasks {
		op, err := restconf.ParseOp(t.Op)
		if err != nil {
			return nil, err
		}
		query := t.Query
		if commitQuery != "" {
			if query == "" {
				query = commitQuery
			} else {
				query += "&" + commitQuery
			}
		}
		r.tasks = append(r.tasks, restconfTask{
			op:       op,
			resource: t.Resource,
			data:     t.Data,
			query:    query,
		})
	}
	if len(r.tasks) == 0 {
		return nil, errors.New("no tasks to run")
	}
	return r, nil
}

func (r *restconfRequester) Do(ctx context.Context) engine.Result {
	t := r.tasks[(r.next.Add(1)-1)%uint64(len(r.tasks))]
	fields := r.params.FormatRequest(t.resource, t.data, t.query)
	req := restconf.Request{
		Op:       t.op,
		Resource: fields[0],
		Data:     fields[1],
		Query:    fields[2],
	}
	if t.op == restconf.OpAction {
		req.ResourceType = "operations"
	}
	if r.registry != nil {
		r.registry.InFlight.Inc()
		defer r.registry.InFlight.Dec()
	}
	res := r.client.Do(ctx, req)
	out := engine.Result{
		ID:      res.ID,
		Class:   engine.Class(res.Class),
		Status:  res.Status,
		Body:    res.Body,
		Elapsed: res.Elapsed,
	}
	if r.registry != nil {
		r.registry.Observe(string(t.op), out)
	}
	return out
}

// jsonrpcRequester maps scenario operations onto the NSO JSON-RPC
// method surface. Write operations run in their own read_write
// transaction per request, reads in a read transaction, matching how
// interactive northbound clients behave under load.
type jsonrpcRequester struct {
	client      *jsonrpc.Client
	tasks       []scenario.Task
	params      *param.Set
	registry    *metrics.Registry
	commitFlags []string
	next        atomic.Uint64
	nextID      atomic.Int64
}

func newJSONRPCRequester(client *jsonrpc.Client, tasks []scenario.Task, params *param.Set, registry *metrics.Registry, commitFlags []string) (*jsonrpcRequester, error) {
	if len(tasks) == 0 {
		return nil, errors.New("no tasks to run")
	}
	for _, t := range tasks {
		switch t.Op {
		case "read", "get_value", "create", "update", "set", "load", "delete", "action", "run_action", "show_config":
		default:
			return nil, errors.Errorf("unknown jsonrpc operation %q", t.Op)
		}
	}
	return &jsonrpcRequester{
		client:      client,
		tasks:       tasks,
		params:      params,
		registry:    registry,
		commitFlags: commitFlags,
	}, nil
}

func (r *jsonrpcRequester) Do(ctx context.Context) engine.Result {
	t := r.tasks[(r.next.Add(1)-1)%uint64(len(r.tasks))]
	fields := r.params.FormatRequest(t.Resource, t.Data)
	path, data := fields[0], fields[1]

	if r.registry != nil {
		r.registry.InFlight.Inc()
		defer r.registry.InFlight.Dec()
	}

	rid := r.nextID.Add(1)
	start := time.Now()
	err := r.execute(ctx, t.Op, path, data)
	elapsed := time.Since(start)

	out := engine.Result{ID: rid, Elapsed: elapsed}
	switch {
	case err == nil:
		out.Class = engine.ClassOK
		out.Status = 200
	case isRPCError(err):
		out.Class = engine.ClassWrong
		out.Status = jsonrpc.ErrorCode(err)
		out.Body = err.Error()
	default:
		out.Class = engine.ClassException
		out.Body = err.Error()
	}
	if r.registry != nil {
		r.registry.Observe(t.Op, out)
	}
	return out
}

func (r *jsonrpcRequester) execute(ctx context.Context, op, path, data string) error {
	switch op {
	case "read", "get_value":
		return r.inTrans(ctx, jsonrpc.TransRead, func(th int) error {
			_, err := r.client.GetValue(ctx, th, path)
			return err
		})
	case "create", "update", "set", "load":
		return r.inTrans(ctx, jsonrpc.TransReadWrite, func(th int) error {
			if err := r.client.Load(ctx, th, path, data, "json", "merge"); err != nil {
				return err
			}
			_, err := r.client.Apply(ctx, th, r.commitFlags)
			return err
		})
	case "delete":
		return r.inTrans(ctx, jsonrpc.TransReadWrite, func(th int) error {
			if _, err := r.client.Delete(ctx, th, path); err != nil {
				return err
			}
			_, err := r.client.Apply(ctx, th, r.commitFlags)
			return err
		})
	case "action", "run_action":
		return r.inTrans(ctx, jsonrpc.TransRead, func(th int) error {
			_, err := r.client.RunAction(ctx, th, path, nil)
			return err
		})
	case "show_config":
		return r.inTrans(ctx, jsonrpc.TransRead, func(th int) error {
			_, err := r.client.ShowConfig(ctx, th, path, "json", -1, false)
			return err
		})
	default:
		return errors.Errorf("unknown jsonrpc operation %q", op)
	}
}

// inTrans runs fn inside a fresh transaction. Committed transactions
// are gone on the server side, so DeleteTrans failures after a
// successful fn are ignored.
func (r *jsonrpcRequester) inTrans(ctx context.Context, mode jsonrpc.TransMode, fn func(th int) error) error {
	th, err := r.client.NewTrans(ctx, mode)
	if err != nil {
		return err
	}
	if err := fn(th); err != nil {
		_ = r.client.DeleteTrans(ctx, th)
		return err
	}
	_ = r.client.DeleteTrans(ctx, th)
	return nil
}

func isRPCError(err error) bool {
	var rpcErr *jrpc2.Error
	return errors.As(err, &rpcErr)
}
