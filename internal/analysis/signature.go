package analysis

// SignatureDim is the length of a stroke motion signature vector.
const SignatureDim = 16

// StrokeSignature condenses a stroke segment into a fixed-length vector
// suitable for nearest-neighbor comparison across sessions. Layout: mean
// and max of six per-frame metrics, then segment length, confidence, peak
// velocity and the share of frames with the wrist above the waist.
func StrokeSignature(seg Segment, metrics []FrameMetrics) []float32 {
	keys := []string{
		MetricElbowFlexion,
		MetricShoulderAbduction,
		MetricKneeFlexion,
		MetricHipRotation,
		MetricWristVelocityY,
		MetricWristBodyDist,
	}

	sums := make([]float64, len(keys))
	maxes := make([]float64, len(keys))
	aboveWaist := 0.0
	n := 0

	for _, m := range metrics {
		idx := m.FrameIdx()
		if idx < seg.StartFrame || idx > seg.EndFrame {
			continue
		}
		for i, key := range keys {
			v := m.Get(key, 0)
			sums[i] += v
			if v > maxes[i] {
				maxes[i] = v
			}
		}
		aboveWaist += m.Get(MetricWristAboveWaist, 0)
		n++
	}

	sig := make([]float32, SignatureDim)
	if n > 0 {
		for i := range keys {
			sig[i] = float32(sums[i] / float64(n))
			sig[len(keys)+i] = float32(maxes[i])
		}
		aboveWaist /= float64(n)
	}

	sig[12] = float32(seg.Length()) / 100
	sig[13] = float32(seg.Confidence)
	sig[14] = float32(seg.PeakVelocity)
	sig[15] = float32(aboveWaist)
	return sig
}
