package engine

// WindowSeries returns the window sizes a ramp run steps through:
// 1, 2, 5, 10, 20, 50, ... capped at max. The cap itself is always
// included so the run finishes at full load even when max falls
// between steps.
func WindowSeries(max uint) []uint {
	if max == 0 {
		return nil
	}
	steps := []uint{1, 2, 5}
	var series []uint
	for scale := uint(1); ; scale *= 10 {
		for _, s := range steps {
			n := s * scale
			if n >= max {
				return append(series, max)
			}
			series = append(series, n)
		}
	}
}
