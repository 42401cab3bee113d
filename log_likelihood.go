package anyrnnt

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// LogLikelihood computes the log probability that a
// transducer emits exactly the label.
//
// The trans result packs numSteps unnormalized score
// vectors of some size K, one per time step.
// The pred result packs len(label)+1 score vectors of
// size K, one per label position starting with the
// blank prefix.
// The two are combined into a log-softmax normalized
// joint lattice internally.
//
// The gradient is computed by a hand-derived adjoint of
// the forward recurrence rather than by composing
// generic graph nodes, so the whole score behaves as a
// single differentiable primitive.
//
// This only works for creators that use []float32 or
// []float64 numeric list types.
// Invalid shapes or label indices are programming
// errors and trigger a panic.
func LogLikelihood(trans, pred anydiff.Res, numSteps int, label []int) anydiff.Res {
	if numSteps <= 0 {
		panic("log likelihood: need at least one time step")
	}
	if trans.Output().Len()%numSteps != 0 {
		panic(fmt.Sprintf("log likelihood: length %d not divisible by %d steps",
			trans.Output().Len(), numSteps))
	}
	k := trans.Output().Len() / numSteps
	u := len(label) + 1
	if pred.Output().Len() != u*k {
		panic(fmt.Sprintf("log likelihood: prediction length %d (expected %d)",
			pred.Output().Len(), u*k))
	}

	// Don't want the result to retain a reference to
	// this slice.
	label = append([]int{}, label...)

	lat, err := NewLattice(
		matrixRows(vectorData(trans.Output()), numSteps, k),
		matrixRows(vectorData(pred.Output()), u, k),
		Log,
	)
	if err != nil {
		panic("log likelihood: " + err.Error())
	}
	forward, err := ForwardScore(lat, label, TimeMajor)
	if err != nil {
		panic("log likelihood: " + err.Error())
	}

	c := trans.Output().Creator()
	outData := c.MakeNumericList([]float64{forward.Score})
	return &logLikelihoodRes{
		OutVec:  c.MakeVectorData(outData),
		Trans:   trans,
		Pred:    pred,
		Label:   label,
		Lattice: lat,
		Alpha:   forward.Alpha,
		V:       anydiff.MergeVarSets(trans.Vars(), pred.Vars()),
	}
}

type logLikelihoodRes struct {
	OutVec  anyvec.Vector
	Trans   anydiff.Res
	Pred    anydiff.Res
	Label   []int
	Lattice *Lattice
	Alpha   [][]float64
	V       anydiff.VarSet
}

func (l *logLikelihoodRes) Output() anyvec.Vector {
	return l.OutVec
}

func (l *logLikelihoodRes) Vars() anydiff.VarSet {
	return l.V
}

func (l *logLikelihoodRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	upstream := vectorData(u)[0]
	lat := l.Lattice
	T, U, K := lat.T, lat.U, lat.K

	// Reverse sweep of the forward recurrence: each
	// cell's gradient is pushed back to the cells and
	// joint entries that defined it.
	// The sweep order (t and u both descending) visits
	// every consumer of a cell before the cell itself.
	alphaGrad := make([][]float64, T)
	for t := range alphaGrad {
		alphaGrad[t] = make([]float64, U)
	}
	jointGrad := make([]float64, T*U*K)

	alphaGrad[T-1][U-1] = upstream
	jointGrad[((T-1)*U+U-1)*K+Blank] += upstream

	for t := T - 1; t >= 0; t-- {
		for u := U - 1; u >= 0; u-- {
			up := alphaGrad[t][u]
			if up == 0 || (t == 0 && u == 0) {
				continue
			}
			switch {
			case t == 0:
				alphaGrad[t][u-1] += up
				jointGrad[(t*U+u-1)*K+l.Label[u-1]] += up
			case u == 0:
				alphaGrad[t-1][u] += up
				jointGrad[((t-1)*U+u)*K+Blank] += up
			default:
				a := l.Alpha[t-1][u] + lat.At(t-1, u, Blank)
				b := l.Alpha[t][u-1] + lat.At(t, u-1, l.Label[u-1])
				da, db := addLogsDeriv(a, b, up)
				alphaGrad[t-1][u] += da
				jointGrad[((t-1)*U+u)*K+Blank] += da
				alphaGrad[t][u-1] += db
				jointGrad[(t*U+u-1)*K+l.Label[u-1]] += db
			}
		}
	}

	// Log-softmax backward from the joint lattice into
	// the two unnormalized score matrices.
	transGrad := make([]float64, T*K)
	predGrad := make([]float64, U*K)
	for t := 0; t < T; t++ {
		for ui := 0; ui < U; ui++ {
			cellGrad := jointGrad[(t*U+ui)*K : (t*U+ui+1)*K]
			var sum float64
			for _, x := range cellGrad {
				sum += x
			}
			cell := lat.cell(t, ui)
			for k := 0; k < K; k++ {
				d := cellGrad[k] - math.Exp(cell[k])*sum
				transGrad[t*K+k] += d
				predGrad[ui*K+k] += d
			}
		}
	}

	c := u.Creator()
	if g.Intersects(l.Trans.Vars()) {
		l.Trans.Propagate(c.MakeVectorData(c.MakeNumericList(transGrad)), g)
	}
	if g.Intersects(l.Pred.Vars()) {
		l.Pred.Propagate(c.MakeVectorData(c.MakeNumericList(predGrad)), g)
	}
}
