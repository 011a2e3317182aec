package tensor

import (
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
)

// ChannelMajor reorders a batch indexed [sample][channel] into one indexed
// [channel][sample], which is what every layer port consumes.
//
// All samples must carry the same number of channels, and a given channel must
// have the same width in every sample. Vectors are copied.
func ChannelMajor(samples []Tensor) ([]Tensor, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	channels := len(samples[0])
	out := make([]Tensor, channels)
	for c := range out {
		out[c] = make(Tensor, len(samples))
	}
	for s, sample := range samples {
		if len(sample) != channels {
			return nil, nnerr.Errorf(nnerr.RuntimeShape, "tensor.channel_major",
				"%w: sample %d has %d channels, sample 0 has %d", nnerr.ErrSizeMismatch, s, len(sample), channels)
		}
		for c, v := range sample {
			if len(v) != len(samples[0][c]) {
				return nil, nnerr.Errorf(nnerr.RuntimeShape, "tensor.channel_major",
					"%w: sample %d channel %d has %d features, expected %d",
					nnerr.ErrSizeMismatch, s, c, len(v), len(samples[0][c]))
			}
			out[c][s] = v.Clone()
		}
	}
	return out, nil
}

// SampleMajor is the inverse of ChannelMajor: it turns [channel][sample] back
// into [sample][channel]. Every channel must hold the same number of samples.
func SampleMajor(channels []Tensor) ([]Tensor, error) {
	if len(channels) == 0 {
		return nil, nil
	}
	count := len(channels[0])
	out := make([]Tensor, count)
	for s := range out {
		out[s] = make(Tensor, len(channels))
	}
	for c, ch := range channels {
		if len(ch) != count {
			return nil, nnerr.Errorf(nnerr.RuntimeShape, "tensor.sample_major",
				"%w: channel %d has %d samples, channel 0 has %d", nnerr.ErrSizeMismatch, c, len(ch), count)
		}
		for s, v := range ch {
			out[s][c] = v.Clone()
		}
	}
	return out, nil
}

// Wrap turns single-channel samples into the sample-major form.
func Wrap(samples []Vec) []Tensor {
	out := make([]Tensor, len(samples))
	for i, v := range samples {
		out[i] = Tensor{v}
	}
	return out
}
