// Package anyrnnt implements the forward score of an
// RNN Transducer (RNN-T): the total probability that a
// joint transcription/prediction model assigns to a
// label sequence, summed over every monotonic alignment
// of the labels to the time axis.
// For more information on transducers, see this paper:
// https://arxiv.org/abs/1211.3711.
package anyrnnt
