package param

import "strconv"

// Calc derives its value from another parameter: current(key)/wrap*mul+add.
// Useful for mapping a flat request counter onto grouped resources, e.g.
// one device per hundred service instances.
type Calc struct {
	key     string
	wrap    int
	mul     int
	add     int
	current string
}

func NewCalc(key string, wrap, mul, add int) *Calc {
	if wrap <= 0 {
		wrap = 1
	}
	return &Calc{key: key, wrap: wrap, mul: mul, add: add, current: noValue}
}

func (p *Calc) Expand(s *Set) string {
	raw, ok := s.current(p.key)
	if !ok {
		return noValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return noValue
	}
	p.current = strconv.Itoa(i/p.wrap*p.mul + p.add)
	return p.current
}

func (p *Calc) NextRequest() {}
func (p *Calc) NextBatch()   {}

func (p *Calc) Reset() { p.current = noValue }

func (p *Calc) String() string { return p.current }
