package param

import (
	"encoding/json"
	"strconv"
)

// Sequence counts upwards from a start value, advancing once per
// placeholder expansion. A wrap of w keeps the value in [0, w).
type Sequence struct {
	start   int
	wrap    int
	current int
	started bool
}

func NewSequence(start int) *Sequence {
	return &Sequence{start: start}
}

func NewWrappedSequence(start, wrap int) *Sequence {
	return &Sequence{start: start, wrap: wrap}
}

func (p *Sequence) advance() {
	if !p.started {
		p.current = p.start
		p.started = true
		return
	}
	p.current++
	if p.wrap > 0 {
		p.current %= p.wrap
	}
}

func (p *Sequence) Expand(*Set) string {
	p.advance()
	return p.String()
}

func (p *Sequence) NextRequest() {}
func (p *Sequence) NextBatch()   {}

func (p *Sequence) Reset() {
	p.started = false
	p.current = 0
}

func (p *Sequence) String() string {
	if !p.started {
		return noValue
	}
	return strconv.Itoa(p.current)
}

func (p *Sequence) Set(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	p.start = n
	p.started = false
	return nil
}

type sequenceState struct {
	Current int  `json:"current"`
	Started bool `json:"started"`
}

func (p *Sequence) State() ([]byte, error) {
	return json.Marshal(sequenceState{Current: p.current, Started: p.started})
}

func (p *Sequence) SetState(data []byte) error {
	var st sequenceState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	p.current = st.Current
	p.started = st.Started
	return nil
}

// SequenceRequest is a Sequence that advances once per request instead of
// once per expansion, so every placeholder within one request sees the
// same value.
type SequenceRequest struct {
	Sequence
}

func NewSequenceRequest(start int) *SequenceRequest {
	return &SequenceRequest{Sequence{start: start}}
}

func NewWrappedSequenceRequest(start, wrap int) *SequenceRequest {
	return &SequenceRequest{Sequence{start: start, wrap: wrap}}
}

func (p *SequenceRequest) Expand(*Set) string { return p.String() }
func (p *SequenceRequest) NextRequest()       { p.advance() }

// SequenceBatch advances once per batch of requests.
type SequenceBatch struct {
	Sequence
}

func NewSequenceBatch(start int) *SequenceBatch {
	return &SequenceBatch{Sequence{start: start}}
}

func (p *SequenceBatch) Expand(*Set) string { return p.String() }
func (p *SequenceBatch) NextBatch()         { p.advance() }
