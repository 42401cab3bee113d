package anyrnnt

import (
	"errors"
	"math"
)

// Blank is the index of the blank symbol in every score
// vector.
// Emitting a blank advances the time axis without
// producing a label.
const Blank = 0

// Errors for invalid engine inputs.
// These are programming or input-contract errors; the
// engine never attempts to recover from them.
var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmptyInput        = errors.New("empty input")
	ErrInvalidTarget     = errors.New("invalid target index")
)

// logUnreachable stands in for log(0) in log-domain
// tables.
// It is the most negative finite value rather than -Inf
// so that log-sum-exp never produces a NaN by
// subtracting infinities.
const logUnreachable = -math.MaxFloat64

// A Domain selects whether lattice entries, forward
// variables, and scores are probabilities or log
// probabilities.
type Domain int

const (
	// Prob works in raw probabilities.
	// It underflows for long sequences, so it is only
	// suitable as a correctness reference.
	Prob Domain = iota

	// Log works in log probabilities and is safe for
	// production-scale sequence lengths.
	Log
)

// A Lattice is the joint score lattice of a transducer.
// For every time step t and label position u it holds a
// normalized distribution over the K symbols (the blank
// plus the vocabulary).
//
// A Lattice is never mutated once built.
type Lattice struct {
	T      int
	U      int
	K      int
	Domain Domain

	data []float64
}

// NewLattice builds a joint lattice from per-timestep
// transcription scores (T rows of K) and per-label
// prediction scores (U rows of K, where row 0 is the
// blank prefix).
// The two matrices are broadcast-added per (t, u) pair
// and normalized across the symbol axis with a softmax
// (Prob) or log-softmax (Log).
func NewLattice(transcription, prediction [][]float64, domain Domain) (*Lattice, error) {
	t := len(transcription)
	u := len(prediction)
	if t == 0 || u == 0 {
		return nil, ErrEmptyInput
	}
	k := len(transcription[0])
	if k == 0 {
		return nil, ErrEmptyInput
	}
	for _, row := range transcription {
		if len(row) != k {
			return nil, ErrDimensionMismatch
		}
	}
	for _, row := range prediction {
		if len(row) != k {
			return nil, ErrDimensionMismatch
		}
	}
	lat := &Lattice{
		T:      t,
		U:      u,
		K:      k,
		Domain: domain,
		data:   make([]float64, t*u*k),
	}
	joint := make([]float64, k)
	for ti, trow := range transcription {
		for ui, prow := range prediction {
			for i := range joint {
				joint[i] = trow[i] + prow[i]
			}
			out := lat.cell(ti, ui)
			if domain == Prob {
				softmax(joint, out)
			} else {
				logSoftmax(joint, out)
			}
		}
	}
	return lat, nil
}

// At returns the normalized joint score of symbol k at
// lattice cell (t, u).
func (l *Lattice) At(t, u, k int) float64 {
	return l.data[(t*l.U+u)*l.K+k]
}

// cell returns the distribution at (t, u).
func (l *Lattice) cell(t, u int) []float64 {
	base := (t*l.U + u) * l.K
	return l.data[base : base+l.K]
}

// softmax writes the softmax of in to out.
// The maximum is subtracted before exponentiating to
// keep the exponentials in range.
func softmax(in, out []float64) {
	max := in[0]
	for _, x := range in[1:] {
		if x > max {
			max = x
		}
	}
	var sum float64
	for i, x := range in {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}

// logSoftmax writes the log-softmax of in to out.
func logSoftmax(in, out []float64) {
	max := in[0]
	for _, x := range in[1:] {
		if x > max {
			max = x
		}
	}
	var sum float64
	for _, x := range in {
		sum += math.Exp(x - max)
	}
	norm := max + math.Log(sum)
	for i, x := range in {
		out[i] = x - norm
	}
}
