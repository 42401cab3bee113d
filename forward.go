package anyrnnt

// An Orientation selects the traversal order of the
// forward recurrence.
// Both orders compute the same score; they differ only
// in memory-access locality, which matters when an
// adjoint pass wants to stream rows or columns.
type Orientation int

const (
	// TimeMajor fills the forward table one row (time
	// step) at a time.
	TimeMajor Orientation = iota

	// LabelMajor fills the forward table one column
	// (label position) at a time.
	LabelMajor
)

// A ForwardResult holds the total alignment score and
// the forward-variable table that produced it.
//
// Alpha is indexed [t][u] and is in the lattice's
// domain.
// Alpha[t][u] is the total score of every monotonic
// path from (0, 0) to (t, u); an external
// differentiation mechanism can replay the adjoint of
// the recurrence from it.
type ForwardResult struct {
	Score float64
	Alpha [][]float64
}

// ForwardScore computes the total score of every
// monotonic alignment between the lattice's time axis
// and the target label sequence, including the final
// blank emission.
//
// The targets must have length U-1; each entry indexes
// a symbol in [0, K).
//
// Rows (or columns, for LabelMajor) are filled with the
// associative scan from scanLinear, so each fill has
// logarithmic combine depth.
// For a sequential reference of the same computation,
// see NaiveScore.
func ForwardScore(l *Lattice, targets []int, o Orientation) (*ForwardResult, error) {
	if err := checkTargets(l, targets); err != nil {
		return nil, err
	}
	var alpha [][]float64
	if o == LabelMajor {
		alpha = forwardLabelMajor(l, targets)
	} else {
		alpha = forwardTimeMajor(l, targets)
	}
	return &ForwardResult{Score: finalScore(l, alpha), Alpha: alpha}, nil
}

// NaiveScore computes the forward score with the plain
// sequential recurrence.
//
// It exists as a readability and correctness reference
// for ForwardScore.
// In the Prob domain it underflows for
// production-scale T and U; use a Log lattice for real
// workloads.
func NaiveScore(l *Lattice, targets []int) (*ForwardResult, error) {
	if err := checkTargets(l, targets); err != nil {
		return nil, err
	}
	alpha := make([][]float64, l.T)
	for t := range alpha {
		alpha[t] = make([]float64, l.U)
	}
	alpha[0][0] = unit(l.Domain)
	for u := 1; u < l.U; u++ {
		alpha[0][u] = mul(l.Domain, alpha[0][u-1], l.At(0, u-1, targets[u-1]))
	}
	for t := 1; t < l.T; t++ {
		alpha[t][0] = mul(l.Domain, alpha[t-1][0], l.At(t-1, 0, Blank))
		for u := 1; u < l.U; u++ {
			fromTime := mul(l.Domain, alpha[t-1][u], l.At(t-1, u, Blank))
			fromLabel := mul(l.Domain, alpha[t][u-1], l.At(t, u-1, targets[u-1]))
			if l.Domain == Prob {
				alpha[t][u] = fromTime + fromLabel
			} else {
				alpha[t][u] = addLogs(fromTime, fromLabel)
			}
		}
	}
	return &ForwardResult{Score: finalScore(l, alpha), Alpha: alpha}, nil
}

// forwardTimeMajor fills alpha row by row.
//
// Row t obeys x[u] = add[u] + coeff[u]*x[u-1] where
// add[u] enters from row t-1 via a blank emission and
// coeff[u] stays in row t via the target emitted at
// position u-1.
// Row 0 is the same recurrence with the origin seeded
// into add, so no row is special-cased.
func forwardTimeMajor(l *Lattice, targets []int) [][]float64 {
	coeff := make([]float64, l.U)
	add := make([]float64, l.U)
	alpha := make([][]float64, l.T)
	for t := range alpha {
		coeff[0] = unit(l.Domain)
		for u := 1; u < l.U; u++ {
			coeff[u] = l.At(t, u-1, targets[u-1])
		}
		if t == 0 {
			add[0] = unit(l.Domain)
			for u := 1; u < l.U; u++ {
				add[u] = zero(l.Domain)
			}
		} else {
			for u := 0; u < l.U; u++ {
				add[u] = mul(l.Domain, alpha[t-1][u], l.At(t-1, u, Blank))
			}
		}
		if l.Domain == Prob {
			alpha[t] = scanLinear(coeff, add)
		} else {
			alpha[t] = scanLinearLog(coeff, add)
		}
	}
	return alpha
}

// forwardLabelMajor is the transpose of
// forwardTimeMajor: columns are filled left to right,
// with blanks staying in the column and targets
// entering from the previous column.
func forwardLabelMajor(l *Lattice, targets []int) [][]float64 {
	alpha := make([][]float64, l.T)
	for t := range alpha {
		alpha[t] = make([]float64, l.U)
	}
	coeff := make([]float64, l.T)
	add := make([]float64, l.T)
	for u := 0; u < l.U; u++ {
		coeff[0] = unit(l.Domain)
		for t := 1; t < l.T; t++ {
			coeff[t] = l.At(t-1, u, Blank)
		}
		if u == 0 {
			add[0] = unit(l.Domain)
			for t := 1; t < l.T; t++ {
				add[t] = zero(l.Domain)
			}
		} else {
			for t := 0; t < l.T; t++ {
				add[t] = mul(l.Domain, alpha[t][u-1], l.At(t, u-1, targets[u-1]))
			}
		}
		var col []float64
		if l.Domain == Prob {
			col = scanLinear(coeff, add)
		} else {
			col = scanLinearLog(coeff, add)
		}
		for t, x := range col {
			alpha[t][u] = x
		}
	}
	return alpha
}

func finalScore(l *Lattice, alpha [][]float64) float64 {
	return mul(l.Domain, alpha[l.T-1][l.U-1], l.At(l.T-1, l.U-1, Blank))
}

func checkTargets(l *Lattice, targets []int) error {
	if len(targets) != l.U-1 {
		return ErrDimensionMismatch
	}
	for _, x := range targets {
		if x < 0 || x >= l.K {
			return ErrInvalidTarget
		}
	}
	return nil
}

// unit is the multiplicative identity of the domain.
func unit(d Domain) float64 {
	if d == Prob {
		return 1
	}
	return 0
}

// zero is the additive identity of the domain.
func zero(d Domain) float64 {
	if d == Prob {
		return 0
	}
	return logUnreachable
}

// mul multiplies two scores in the domain.
func mul(d Domain, a, b float64) float64 {
	if d == Prob {
		return a * b
	}
	return a + b
}
