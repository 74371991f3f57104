// Package param injects dynamic values into stress request templates.
//
// Placeholders of the form <<name>> in resource paths, payloads and query
// strings are substituted from a Set of named parameters. A parameter
// advances on one of three levels: every expansion, every request, or
// every batch of requests.
package param

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const noValue = "<no value>"

var placeholderRe = regexp.MustCompile(`<<(\w+)>>`)

// Param is a single dynamic value.
type Param interface {
	// Expand returns the value for one placeholder expansion, advancing
	// first if the parameter steps on the expansion level.
	Expand(s *Set) string
	// NextRequest advances request-level parameters.
	NextRequest()
	// NextBatch advances batch-level parameters.
	NextBatch()
	// Reset restores the initial state.
	Reset()

	fmt.Stringer
}

// Settable parameters accept overrides from the command line.
type Settable interface {
	Set(value string) error
}

// Stateful parameters can persist their position between runs.
type Stateful interface {
	State() ([]byte, error)
	SetState(data []byte) error
}

// Set is a collection of named parameters plus plain constant values.
// All methods are safe for concurrent use; the engine's workers expand
// templates from many goroutines.
type Set struct {
	mu     sync.Mutex
	params map[string]Param
	consts map[string]string
}

func NewSet() *Set {
	return &Set{
		params: map[string]Param{},
		consts: map[string]string{},
	}
}

func (s *Set) Put(name string, p Param) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = p
}

func (s *Set) PutValue(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consts[name] = value
}

// Format substitutes every <<name>> placeholder in the input. Unknown
// names are left in place so a missing parameter is visible in the
// request instead of silently vanishing.
func (s *Set) Format(in string) string {
	if !strings.Contains(in, "<<") {
		return in
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format(in)
}

// format expands placeholders with the lock already held.
func (s *Set) format(in string) string {
	return placeholderRe.ReplaceAllStringFunc(in, func(m string) string {
		name := m[2 : len(m)-2]
		if p, ok := s.params[name]; ok {
			return p.Expand(s)
		}
		if v, ok := s.consts[name]; ok {
			return v
		}
		return m
	})
}

// FormatRequest advances the request-level parameters once and expands
// all of a request's templates under the same lock, so concurrent
// requesters each see a distinct value across the whole request.
func (s *Set) FormatRequest(templates ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.params {
		p.NextRequest()
	}
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = s.format(t)
	}
	return out
}

// NextRequest advances all request-level parameters once.
func (s *Set) NextRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.params {
		p.NextRequest()
	}
}

// NextBatch advances all batch-level parameters once.
func (s *Set) NextBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.params {
		p.NextBatch()
	}
}

func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.params {
		p.Reset()
	}
}

// Constant is a fixed value declared in a scenario, overridable from
// the command line like any other parameter.
type Constant struct {
	value string
}

func NewConstant(value string) *Constant { return &Constant{value: value} }

func (p *Constant) Expand(*Set) string { return p.value }
func (p *Constant) NextRequest()       {}
func (p *Constant) NextBatch()         {}
func (p *Constant) Reset()             {}
func (p *Constant) String() string     { return p.value }

func (p *Constant) Set(value string) error {
	p.value = value
	return nil
}

// current returns the named parameter's current value without advancing.
// Used by Calc parameters which derive from another parameter.
func (s *Set) current(name string) (string, bool) {
	if p, ok := s.params[name]; ok {
		return p.String(), true
	}
	v, ok := s.consts[name]
	return v, ok
}

// ApplyOverrides applies command line k=v pairs. A pair either reconfigures
// a Settable parameter or replaces a plain value.
func (s *Set) ApplyOverrides(pairs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found {
			return errors.Errorf("invalid parameter override %q, expected key=value", pair)
		}
		if p, ok := s.params[k]; ok {
			settable, ok := p.(Settable)
			if !ok {
				return errors.Errorf("parameter %q does not accept overrides", k)
			}
			if err := settable.Set(v); err != nil {
				return errors.Wrapf(err, "invalid override for parameter %q", k)
			}
			continue
		}
		s.consts[k] = v
	}
	return nil
}
