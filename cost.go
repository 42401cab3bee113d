package anyrnnt

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// Cost computes the cost for a batch of utterances: the
// negative log likelihood of each utterance's label.
//
// For utterance i, transSeqs holds one unnormalized
// score vector per time step, predSeqs holds
// len(labels[i])+1 score vectors (one per label
// position, starting with the blank prefix), and
// labels[i] is the label sequence.
// Score vectors all have the same size K, with the
// blank at index 0.
//
// Every utterance must contain at least one time step.
//
// The anyvec.Creator must use an anyvec.NumericList
// type []float32 or []float64.
// No other numeric types are supported.
func Cost(transSeqs, predSeqs anyseq.Seq, labels [][]int) anydiff.Res {
	c := transSeqs.Creator()
	if len(transSeqs.Output()) == 0 {
		return anydiff.NewConst(c.MakeVector(0))
	}
	f := func(trans, pred []anydiff.Res, numSteps []int) anydiff.Res {
		var res []anydiff.Res
		for i, tr := range trans {
			res = append(res, LogLikelihood(tr, pred[i], numSteps[i], labels[i]))
		}
		return anydiff.Concat(res...)
	}
	return anydiff.Scale(poolPair(transSeqs, predSeqs, f), c.MakeNumeric(-1))
}

// poolPair pools both sequence batches into one
// variable per utterance, so that f sees each
// utterance's scores as a single packed matrix and the
// incoming gradient only has to be split back into
// timesteps once.
func poolPair(trans, pred anyseq.Seq, f func(trans, pred []anydiff.Res, numSteps []int) anydiff.Res) anydiff.Res {
	transPool := newSeqPool(trans)
	predPool := newSeqPool(pred)
	return &poolPairRes{
		Trans: transPool,
		Pred:  predPool,
		Res:   f(transPool.Reses(), predPool.Reses(), transPool.Lengths),
		V:     anydiff.MergeVarSets(trans.Vars(), pred.Vars()),
	}
}

// A seqPool is one pooled sequence batch: a variable
// per utterance holding the utterance's concatenated
// timesteps.
type seqPool struct {
	In      anyseq.Seq
	Pools   []*anydiff.Var
	Lengths []int
}

func newSeqPool(seqs anyseq.Seq) *seqPool {
	rawData := anyseq.SeparateSeqs(seqs.Output())
	p := &seqPool{
		In:      seqs,
		Pools:   make([]*anydiff.Var, len(rawData)),
		Lengths: make([]int, len(rawData)),
	}
	for i, raw := range rawData {
		p.Pools[i] = anydiff.NewVar(seqs.Creator().Concat(raw...))
		p.Lengths[i] = len(raw)
	}
	return p
}

func (s *seqPool) Reses() []anydiff.Res {
	res := make([]anydiff.Res, len(s.Pools))
	for i, p := range s.Pools {
		res[i] = p
	}
	return res
}

func (s *seqPool) propagate(c anyvec.Creator, g anydiff.Grad) {
	downstream := make([][]anyvec.Vector, len(s.Pools))
	for i, pvar := range s.Pools {
		downstream[i] = splitVec(g[pvar], s.Lengths[i])
		delete(g, pvar)
	}
	joinedU := anyseq.ConstSeqList(c, downstream).Output()
	s.In.Propagate(joinedU, g)
}

type poolPairRes struct {
	Trans *seqPool
	Pred  *seqPool
	Res   anydiff.Res
	V     anydiff.VarSet
}

func (p *poolPairRes) Output() anyvec.Vector {
	return p.Res.Output()
}

func (p *poolPairRes) Vars() anydiff.VarSet {
	return p.V
}

func (p *poolPairRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	for _, pool := range []*seqPool{p.Trans, p.Pred} {
		for _, pvar := range pool.Pools {
			g[pvar] = pvar.Vector.Creator().MakeVector(pvar.Vector.Len())
		}
	}
	p.Res.Propagate(u, g)
	p.Trans.propagate(u.Creator(), g)
	p.Pred.propagate(u.Creator(), g)
}

func splitVec(vec anyvec.Vector, parts int) []anyvec.Vector {
	res := make([]anyvec.Vector, parts)
	chunkSize := vec.Len() / parts
	for i := range res {
		res[i] = vec.Slice(i*chunkSize, (i+1)*chunkSize)
	}
	return res
}
