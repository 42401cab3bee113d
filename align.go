package anyrnnt

// An Alignment is a single monotonic alignment of a
// label sequence to the time axis.
type Alignment struct {
	// EmitTimes[i] is the time step at which target i is
	// emitted.
	// The entries never decrease.
	EmitTimes []int

	// Score is the path's score in the lattice's domain,
	// including the final blank emission.
	Score float64
}

// BestAlignment finds the most probable monotonic
// alignment of the targets to the time axis: the
// max-score path through the same lattice that
// ForwardScore sums over.
// Ties between equal-scoring paths are broken toward
// earlier emission times.
func BestAlignment(l *Lattice, targets []int) (*Alignment, error) {
	if err := checkTargets(l, targets); err != nil {
		return nil, err
	}
	best := make([][]float64, l.T)
	fromLabel := make([][]bool, l.T)
	for t := range best {
		best[t] = make([]float64, l.U)
		fromLabel[t] = make([]bool, l.U)
	}
	for t := 0; t < l.T; t++ {
		for u := 0; u < l.U; u++ {
			switch {
			case t == 0 && u == 0:
				best[t][u] = unit(l.Domain)
			case t == 0:
				best[t][u] = mul(l.Domain, best[t][u-1], l.At(t, u-1, targets[u-1]))
				fromLabel[t][u] = true
			case u == 0:
				best[t][u] = mul(l.Domain, best[t-1][u], l.At(t-1, u, Blank))
			default:
				fromTime := mul(l.Domain, best[t-1][u], l.At(t-1, u, Blank))
				fromLab := mul(l.Domain, best[t][u-1], l.At(t, u-1, targets[u-1]))
				if fromLab > fromTime {
					best[t][u] = fromLab
					fromLabel[t][u] = true
				} else {
					best[t][u] = fromTime
				}
			}
		}
	}

	times := make([]int, len(targets))
	t, u := l.T-1, l.U-1
	for t > 0 || u > 0 {
		if fromLabel[t][u] {
			u--
			times[u] = t
		} else {
			t--
		}
	}

	return &Alignment{
		EmitTimes: times,
		Score:     finalScore(l, best),
	}, nil
}
