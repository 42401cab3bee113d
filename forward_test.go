package anyrnnt

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

const testPrecision = 1e-5

func TestForwardScoreOutputs(t *testing.T) {
	for i := 0; i < 10; i++ {
		lat, targets := randomLattice(Prob, 1+rand.Intn(4), 1+rand.Intn(4), 2+rand.Intn(3))
		expected := exactScore(lat, targets, 0, 0)
		for _, o := range []Orientation{TimeMajor, LabelMajor} {
			res, err := ForwardScore(lat, targets, o)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(res.Score-expected)/math.Abs(expected) > testPrecision {
				t.Errorf("orientation %d: expected %e but got %e", o, expected, res.Score)
			}
		}
	}
}

func TestForwardScoreDomains(t *testing.T) {
	for i := 0; i < 10; i++ {
		T, U, K := 1+rand.Intn(5), 1+rand.Intn(5), 2+rand.Intn(4)
		trans, pred, targets := randomScores(T, U, K)
		probLat, err := NewLattice(trans, pred, Prob)
		if err != nil {
			t.Fatal(err)
		}
		logLat, err := NewLattice(trans, pred, Log)
		if err != nil {
			t.Fatal(err)
		}
		probRes, err := ForwardScore(probLat, targets, TimeMajor)
		if err != nil {
			t.Fatal(err)
		}
		logRes, err := ForwardScore(logLat, targets, TimeMajor)
		if err != nil {
			t.Fatal(err)
		}
		actual := math.Exp(logRes.Score)
		if math.Abs(actual-probRes.Score)/math.Abs(probRes.Score) > testPrecision {
			t.Errorf("expected exp(%f)=%e but got %e", logRes.Score, probRes.Score, actual)
		}
	}
}

func TestForwardScoreOrientations(t *testing.T) {
	for i := 0; i < 10; i++ {
		lat, targets := randomLattice(Log, 1+rand.Intn(6), 1+rand.Intn(6), 2+rand.Intn(4))
		timeMajor, err := ForwardScore(lat, targets, TimeMajor)
		if err != nil {
			t.Fatal(err)
		}
		labelMajor, err := ForwardScore(lat, targets, LabelMajor)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(timeMajor.Score-labelMajor.Score) > testPrecision {
			t.Errorf("time-major gave %f but label-major gave %f",
				timeMajor.Score, labelMajor.Score)
		}
		for ti, row := range timeMajor.Alpha {
			for u, x := range row {
				if math.Abs(x-labelMajor.Alpha[ti][u]) > testPrecision {
					t.Errorf("alpha[%d][%d]: time-major %f, label-major %f",
						ti, u, x, labelMajor.Alpha[ti][u])
				}
			}
		}
	}
}

func TestForwardScoreMatchesNaive(t *testing.T) {
	for _, domain := range []Domain{Prob, Log} {
		for i := 0; i < 10; i++ {
			lat, targets := randomLattice(domain, 1+rand.Intn(6), 1+rand.Intn(6), 2+rand.Intn(4))
			naive, err := NaiveScore(lat, targets)
			if err != nil {
				t.Fatal(err)
			}
			scanned, err := ForwardScore(lat, targets, TimeMajor)
			if err != nil {
				t.Fatal(err)
			}
			var diff float64
			if domain == Prob {
				diff = math.Abs(naive.Score-scanned.Score) / math.Abs(naive.Score)
			} else {
				diff = math.Abs(naive.Score - scanned.Score)
			}
			if diff > testPrecision {
				t.Errorf("domain %d: naive gave %e but scan gave %e",
					domain, naive.Score, scanned.Score)
			}
		}
	}
}

func TestForwardScoreBlankOnly(t *testing.T) {
	// U=1: the only path emits a blank at every step.
	lat, _ := randomLattice(Prob, 6, 1, 4)
	expected := 1.0
	for ti := 0; ti < lat.T; ti++ {
		expected *= lat.At(ti, 0, Blank)
	}
	res, err := ForwardScore(lat, nil, TimeMajor)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Score-expected)/expected > testPrecision {
		t.Errorf("expected %e but got %e", expected, res.Score)
	}
}

func TestForwardScoreSingleStep(t *testing.T) {
	// T=1: the only path emits every label and then one
	// final blank.
	lat, targets := randomLattice(Prob, 1, 5, 4)
	expected := lat.At(0, lat.U-1, Blank)
	for u, x := range targets {
		expected *= lat.At(0, u, x)
	}
	res, err := ForwardScore(lat, targets, TimeMajor)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Score-expected)/expected > testPrecision {
		t.Errorf("expected %e but got %e", expected, res.Score)
	}
}

func TestForwardScorePinned(t *testing.T) {
	trans := [][]float64{
		{1, 0, 0, 0},
		{0.1, 0.2, 0.3, 0.4},
		{0.1, 0.2, 0.3, 0.4},
		{0.1, 0.2, 0.3, 0.4},
	}
	pred := [][]float64{
		{1, 0, 0, 0},
		{0.1, 0.2, 0.3, 0.4},
		{0.1, 0.2, 0.3, 0.4},
	}
	targets := []int{0, 1}
	const expected = 0.0066968590523965
	const expectedLog = -5.006116660655203

	lat, err := NewLattice(trans, pred, Prob)
	if err != nil {
		t.Fatal(err)
	}
	naive, err := NaiveScore(lat, targets)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(naive.Score-expected)/expected > 1e-9 {
		t.Errorf("naive: expected %e but got %e", expected, naive.Score)
	}
	for _, o := range []Orientation{TimeMajor, LabelMajor} {
		res, err := ForwardScore(lat, targets, o)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(res.Score-expected)/expected > 1e-9 {
			t.Errorf("orientation %d: expected %e but got %e", o, expected, res.Score)
		}
	}

	logLat, err := NewLattice(trans, pred, Log)
	if err != nil {
		t.Fatal(err)
	}
	logRes, err := ForwardScore(logLat, targets, TimeMajor)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(logRes.Score-expectedLog) > 1e-9 {
		t.Errorf("log: expected %f but got %f", expectedLog, logRes.Score)
	}
}

func TestForwardScoreErrors(t *testing.T) {
	lat, targets := randomLattice(Log, 3, 3, 4)
	if _, err := ForwardScore(lat, targets[:1], TimeMajor); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short targets: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := ForwardScore(lat, []int{1, lat.K}, TimeMajor); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("out of range target: expected ErrInvalidTarget, got %v", err)
	}
	if _, err := ForwardScore(lat, []int{1, -1}, TimeMajor); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("negative target: expected ErrInvalidTarget, got %v", err)
	}
}

// randomScores creates random unnormalized score
// matrices and a random target sequence.
func randomScores(T, U, K int) (trans, pred [][]float64, targets []int) {
	trans = make([][]float64, T)
	for i := range trans {
		trans[i] = make([]float64, K)
		for j := range trans[i] {
			trans[i][j] = rand.NormFloat64()
		}
	}
	pred = make([][]float64, U)
	for i := range pred {
		pred[i] = make([]float64, K)
		for j := range pred[i] {
			pred[i][j] = rand.NormFloat64()
		}
	}
	targets = make([]int, U-1)
	for i := range targets {
		targets[i] = rand.Intn(K)
	}
	return
}

func randomLattice(domain Domain, T, U, K int) (*Lattice, []int) {
	trans, pred, targets := randomScores(T, U, K)
	lat, err := NewLattice(trans, pred, domain)
	if err != nil {
		panic(err)
	}
	return lat, targets
}

// exactScore computes the total probability of all
// monotonic paths from (t, u) to the lattice terminus,
// including the final blank, by enumerating them.
// The lattice must be in the Prob domain.
func exactScore(l *Lattice, targets []int, t, u int) float64 {
	if t == l.T-1 && u == l.U-1 {
		return l.At(t, u, Blank)
	}
	var res float64
	if t+1 < l.T {
		res += l.At(t, u, Blank) * exactScore(l, targets, t+1, u)
	}
	if u+1 < l.U {
		res += l.At(t, u, targets[u]) * exactScore(l, targets, t, u+1)
	}
	return res
}
