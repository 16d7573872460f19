package audio

import "math"

// NoiseThreshold is the absolute amplitude below which samples from
// a virtual device are zeroed.
const NoiseThreshold = 327

// Preprocess downmixes f to mono by averaging channels and, for virtual
// devices, gates low-amplitude samples to silence.
func Preprocess(f Frame) []int16 {
	ch := max(1, f.Channels)
	n := len(f.Samples) / ch
	out := make([]int16, n)
	for i := range n {
		var sum int
		for c := range ch {
			sum += int(f.Samples[i*ch+c])
		}
		// Truncate toward zero like a float mean cast to int16.
		v := sum / ch
		if f.Virtual && abs(v) < NoiseThreshold {
			v = 0
		}
		out[i] = int16(v)
	}
	return out
}

// RMS returns the normalized root-mean-square level of samples in [0, 1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
