package stream

import "math"

// MaxVolume is full gain.
const MaxVolume = 100

// ClampVolume limits percent to [0,MaxVolume].
func ClampVolume(percent int) int {
	return min(max(percent, 0), MaxVolume)
}

// ApplyGain scales samples in place by percent/100, saturating at the int16 range.
func ApplyGain(samples []int16, percent int) {
	percent = ClampVolume(percent)
	if percent == MaxVolume {
		return
	}
	for i, s := range samples {
		v := int32(s) * int32(percent) / 100
		samples[i] = int16(min(max(v, math.MinInt16), math.MaxInt16))
	}
}
