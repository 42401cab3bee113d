package anyrnnt

import "math"

// Each row (or column) of the forward table obeys the
// first-order linear recurrence
//
//	x[i] = add[i] + coeff[i]*x[i-1]
//
// with x[-1] treated as zero.
// A step of the recurrence is the affine map
// x -> coeff*x + add, and affine maps compose
// associatively, so a whole row can be computed as an
// inclusive scan over (coeff, add) pairs with
// logarithmic combine depth.
// The scans are exact: they evaluate the same combine
// operator as the sequential unroll, just in a different
// association order.

// An affine holds the map x -> A*x + B.
// In the log domain, A and B are the logs of the
// coefficient and the additive term.
type affine struct {
	A float64
	B float64
}

// composeLinear is "f, then g" in the probability
// domain.
func composeLinear(f, g affine) affine {
	return affine{A: f.A * g.A, B: g.A*f.B + g.B}
}

// composeLinearLog is "f, then g" in the log domain.
func composeLinearLog(f, g affine) affine {
	return affine{A: f.A + g.A, B: addLogs(g.A+f.B, g.B)}
}

// scanAffine computes the inclusive scan of maps under
// comb, where comb(f, g) means "f, then g".
//
// Adjacent pairs are combined and the scan recurses on
// the half-length sequence, giving O(log n) combine
// depth.
func scanAffine(maps []affine, comb func(f, g affine) affine) []affine {
	if len(maps) <= 2 {
		res := append([]affine{}, maps...)
		if len(res) == 2 {
			res[1] = comb(res[0], res[1])
		}
		return res
	}
	pairs := make([]affine, len(maps)/2)
	for i := range pairs {
		pairs[i] = comb(maps[2*i], maps[2*i+1])
	}
	sub := scanAffine(pairs, comb)
	res := make([]affine, len(maps))
	res[0] = maps[0]
	for i := 1; i < len(maps); i++ {
		if i%2 == 1 {
			res[i] = sub[i/2]
		} else {
			res[i] = comb(sub[i/2-1], maps[i])
		}
	}
	return res
}

// scanLinear solves x[i] = add[i] + coeff[i]*x[i-1] for
// every i, with x[-1] = 0.
//
// coeff[0] never influences the result.
func scanLinear(coeff, add []float64) []float64 {
	maps := make([]affine, len(coeff))
	for i := range maps {
		maps[i] = affine{A: coeff[i], B: add[i]}
	}
	res := make([]float64, len(maps))
	for i, m := range scanAffine(maps, composeLinear) {
		res[i] = m.B
	}
	return res
}

// scanLinearLog is scanLinear in the log domain:
// x[i] = addLogs(add[i], coeff[i]+x[i-1]) with x[-1]
// unreachable.
func scanLinearLog(coeff, add []float64) []float64 {
	maps := make([]affine, len(coeff))
	for i := range maps {
		maps[i] = affine{A: coeff[i], B: add[i]}
	}
	res := make([]float64, len(maps))
	for i, m := range scanAffine(maps, composeLinearLog) {
		res[i] = m.B
	}
	return res
}

// addLogs adds two numbers in the log domain.
func addLogs(a, b float64) float64 {
	if a <= logUnreachable && b <= logUnreachable {
		return logUnreachable
	}
	normalizer := math.Max(a, b)
	exp1 := math.Exp(a - normalizer)
	exp2 := math.Exp(b - normalizer)
	return math.Log(exp1+exp2) + normalizer
}

// addLogsDeriv computes the partial derivatives for
// addition in the log domain.
func addLogsDeriv(a, b, upstream float64) (da, db float64) {
	if a <= logUnreachable && b <= logUnreachable {
		return
	}
	denomLog := addLogs(a, b)
	da = upstream * math.Exp(a-denomLog)
	db = upstream * math.Exp(b-denomLog)
	return
}
