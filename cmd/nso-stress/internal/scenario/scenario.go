package scenario

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/google/shlex"
	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/param"
)

// Scenario is a declarative run: named parameters, default load
// settings and the steps to execute.
type Scenario struct {
	Name     string                `toml:"name"`
	Protocol string                `toml:"protocol"`
	Defaults Defaults              `toml:"defaults"`
	Params   map[string]param.Spec `toml:"params"`
	Steps    []Step                `toml:"steps"`

	dir string
}

// Defaults are applied when the corresponding flag was not given on
// the command line.
type Defaults struct {
	Window   uint   `toml:"window"`
	Requests uint   `toml:"requests"`
	Rate     uint   `toml:"rate"`
	Duration string `toml:"duration"`
}

// Step is one compact command line inside a scenario, e.g.
//
//	do = "create /ncs:services/vlan{<<id>>} --data '{\"vid\": <<id>>}'"
//
// Payload names a file next to the scenario whose contents become the
// request body, converted from YAML to JSON when needed. Repeat
// duplicates the resolved tasks.
type Step struct {
	Do      string `toml:"do"`
	Payload string `toml:"payload"`
	Repeat  uint   `toml:"repeat"`
}

// Task is a resolved step ready to hand to a protocol client. The
// resource, data and query strings may still carry <<name>> parameter
// references, those are expanded per request by the runner.
type Task struct {
	Op       string
	Resource string
	Data     string
	Query    string
}

// Load reads and validates a scenario file. Unknown keys are an
// error, a typo in a scenario should not silently change the run.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	var s Scenario
	dec := toml.NewDecoder(bytes.NewReader(raw)).Strict(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "parsing scenario %s", path)
	}
	s.dir = filepath.Dir(path)
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	switch s.Protocol {
	case "", "restconf", "jsonrpc":
	default:
		return nil, errors.Errorf("scenario %s: unknown protocol %q", path, s.Protocol)
	}
	if len(s.Steps) == 0 {
		return nil, errors.Errorf("scenario %s has no steps", path)
	}
	return &s, nil
}

// Expand builds the task list for an ad-hoc command line operation,
// applying the same crud/cud aliases scenario steps use.
func Expand(op, resource, data, query string) []Task {
	task := Task{Op: op, Resource: resource, Data: data, Query: query}
	ops, ok := stepAliases[op]
	if !ok {
		return []Task{task}
	}
	tasks := make([]Task, 0, len(ops))
	for _, o := range ops {
		t := task
		t.Op = o
		if o != "create" && o != "update" && o != "set" {
			t.Data = ""
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// stepAliases expand one compound operation into its member
// operations, sharing resource and payload.
var stepAliases = map[string][]string{
	"crud": {"create", "read", "update", "delete"},
	"cud":  {"create", "update", "delete"},
}

// Tasks resolves every step into the flat task list the engine cycles
// through.
func (s *Scenario) Tasks() ([]Task, error) {
	var tasks []Task
	for i, step := range s.Steps {
		stepTasks, err := s.resolve(step)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d (%s)", i+1, step.Do)
		}
		repeat := step.Repeat
		if repeat == 0 {
			repeat = 1
		}
		for n := uint(0); n < repeat; n++ {
			tasks = append(tasks, stepTasks...)
		}
	}
	return tasks, nil
}

func (s *Scenario) resolve(step Step) ([]Task, error) {
	tokens, err := shlex.Split(step.Do)
	if err != nil {
		return nil, errors.Wrap(err, "tokenizing")
	}
	if len(tokens) < 2 {
		return nil, errors.New("a step needs at least an operation and a resource")
	}

	task := Task{Op: tokens[0], Resource: tokens[1]}
	args := tokens[2:]
	for len(args) > 0 {
		flag := args[0]
		if len(args) < 2 {
			return nil, errors.Errorf("flag %s is missing its value", flag)
		}
		value := args[1]
		args = args[2:]
		switch flag {
		case "--data":
			task.Data = value
		case "--query":
			task.Query = value
		case "--payload":
			task.Data, err = s.loadPayload(value)
			if err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("unknown flag %s", flag)
		}
	}
	if step.Payload != "" {
		task.Data, err = s.loadPayload(step.Payload)
		if err != nil {
			return nil, err
		}
	}

	ops, ok := stepAliases[task.Op]
	if !ok {
		return []Task{task}, nil
	}
	tasks := make([]Task, 0, len(ops))
	for _, op := range ops {
		t := task
		t.Op = op
		if op != "create" && op != "update" && op != "set" {
			t.Data = ""
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// loadPayload reads a payload file relative to the scenario. YAML
// payloads are converted so clients always send JSON.
func (s *Scenario) loadPayload(name string) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading payload %s", name)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		out, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return "", errors.Wrapf(err, "converting payload %s", name)
		}
		return string(out), nil
	default:
		return string(raw), nil
	}
}

// ParamSet builds the parameter set declared by the scenario.
func (s *Scenario) ParamSet() (*param.Set, error) {
	set := param.NewSet()
	for name, spec := range s.Params {
		p, err := param.New(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", name)
		}
		set.Put(name, p)
	}
	return set, nil
}
