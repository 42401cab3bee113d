package anyrnnt

import (
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// A Sample is a training utterance: an acoustic feature
// sequence paired with its label sequence.
type Sample struct {
	Input []anyvec.Vector
	Label []int
}

// A SampleList is an anysgd.SampleList that produces
// transducer samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
	Creator() anyvec.Creator
}

// A SliceSampleList is a concrete SampleList with
// predetermined samples.
//
// The list may not be empty, and every sample must have
// at least one input vector.
type SliceSampleList []*Sample

// Len returns the number of samples.
func (s SliceSampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SliceSampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return append(SliceSampleList{}, s[i:j]...)
}

// GetSample returns the sample at the index.
func (s SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s[idx], nil
}

// Creator returns the creator of the first sample's
// first input vector.
func (s SliceSampleList) Creator() anyvec.Creator {
	return s[0].Input[0].Creator()
}
