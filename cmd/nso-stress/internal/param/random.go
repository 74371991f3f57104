package param

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomSource wraps a seeded generator so its position can be saved and
// restored. math/rand does not expose its internal state, so the state is
// the seed plus the number of draws, replayed on load.
type randomSource struct {
	seed  int64
	draws int
	rnd   *rand.Rand
}

func newRandomSource(seed int64) *randomSource {
	return &randomSource{seed: seed, rnd: rand.New(rand.NewSource(seed))}
}

// intn always consumes exactly one draw from the generator, so a
// saved position can be replayed precisely. The modulo bias is
// irrelevant for load generation.
func (r *randomSource) intn(n int) int {
	r.draws++
	return int(r.rnd.Int63() % int64(n))
}

func (r *randomSource) reset() {
	r.draws = 0
	r.rnd = rand.New(rand.NewSource(r.seed))
}

type randomState struct {
	Seed  int64 `json:"seed"`
	Draws int   `json:"draws"`
}

func (r *randomSource) state() ([]byte, error) {
	return json.Marshal(randomState{Seed: r.seed, Draws: r.draws})
}

func (r *randomSource) setState(data []byte) error {
	var st randomState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	r.seed = st.Seed
	r.reset()
	for i := 0; i < st.Draws; i++ {
		r.rnd.Int63()
	}
	r.draws = st.Draws
	return nil
}

// RandomValue produces a random integer in [lower, upper], advancing once
// per placeholder expansion.
type RandomValue struct {
	lower, upper int
	src          *randomSource
	current      string
}

func NewRandomValue(lower, upper int, seed int64) *RandomValue {
	return &RandomValue{lower: lower, upper: upper, src: newRandomSource(seed), current: noValue}
}

func (p *RandomValue) advance() {
	p.current = strconv.Itoa(p.lower + p.src.intn(p.upper-p.lower+1))
}

func (p *RandomValue) Expand(*Set) string {
	p.advance()
	return p.current
}

func (p *RandomValue) NextRequest() {}
func (p *RandomValue) NextBatch()   {}

func (p *RandomValue) Reset() {
	p.src.reset()
	p.current = noValue
}

func (p *RandomValue) String() string { return p.current }

func (p *RandomValue) State() ([]byte, error)     { return p.src.state() }
func (p *RandomValue) SetState(data []byte) error { return p.src.setState(data) }

// RandomValueRequest advances once per request.
type RandomValueRequest struct {
	RandomValue
}

func NewRandomValueRequest(lower, upper int, seed int64) *RandomValueRequest {
	return &RandomValueRequest{*NewRandomValue(lower, upper, seed)}
}

func (p *RandomValueRequest) Expand(*Set) string { return p.current }
func (p *RandomValueRequest) NextRequest()       { p.advance() }

// RandomString produces a random letter string of a fixed length,
// advancing once per placeholder expansion.
type RandomString struct {
	length  int
	src     *randomSource
	current string
}

func NewRandomString(length int, seed int64) *RandomString {
	return &RandomString{length: length, src: newRandomSource(seed), current: noValue}
}

func (p *RandomString) advance() {
	b := make([]byte, p.length)
	for i := range b {
		b[i] = letters[p.src.intn(len(letters))]
	}
	p.current = string(b)
}

func (p *RandomString) Expand(*Set) string {
	p.advance()
	return p.current
}

func (p *RandomString) NextRequest() {}
func (p *RandomString) NextBatch()   {}

func (p *RandomString) Reset() {
	p.src.reset()
	p.current = noValue
}

func (p *RandomString) String() string { return p.current }

// Set changes the string length. This breaks the pseudo random sequence,
// matching how overrides behaved historically.
func (p *RandomString) Set(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("length must be positive")
	}
	p.length = n
	return nil
}

func (p *RandomString) State() ([]byte, error)     { return p.src.state() }
func (p *RandomString) SetState(data []byte) error { return p.src.setState(data) }

// RandomStringRequest advances once per request.
type RandomStringRequest struct {
	RandomString
}

func NewRandomStringRequest(length int, seed int64) *RandomStringRequest {
	return &RandomStringRequest{*NewRandomString(length, seed)}
}

func (p *RandomStringRequest) Expand(*Set) string { return p.current }
func (p *RandomStringRequest) NextRequest()       { p.advance() }

// Shuffle walks a randomized non-repeating sequence of 0..length-1, one
// value per request. Exhausting the sequence is reported in the expanded
// value rather than stopping the run.
type Shuffle struct {
	length  int
	seed    int64
	values  []int
	n       int
	current string
}

func NewShuffle(length int, seed int64) *Shuffle {
	p := &Shuffle{length: length, seed: seed, current: noValue}
	p.shuffle()
	return p
}

func (p *Shuffle) shuffle() {
	rnd := rand.New(rand.NewSource(p.seed))
	p.values = rnd.Perm(p.length)
	p.n = 0
}

func (p *Shuffle) Expand(*Set) string { return p.current }

func (p *Shuffle) NextRequest() {
	if p.n >= len(p.values) {
		p.current = fmt.Sprintf("<no more values>%d", p.n)
		p.n++
		return
	}
	p.current = strconv.Itoa(p.values[p.n])
	p.n++
}

func (p *Shuffle) NextBatch() {}

func (p *Shuffle) Reset() {
	p.shuffle()
	p.current = noValue
}

func (p *Shuffle) String() string { return p.current }
