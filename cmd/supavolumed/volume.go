package main

// ChannelVolume is the current volume of one device: one level per channel
// on the [0, volumeNorm] scale, plus the mute flag. It is fetched fresh for
// every operation and never cached.
type ChannelVolume struct {
	Levels []uint32
	Muted  bool
}

// levelDelta converts a signed percentage into an absolute level delta,
// truncated toward zero. pct is clamped to [-maxStep, maxStep] first.
func levelDelta(pct int) int64 {
	pct = max(-maxStep, min(pct, maxStep))
	return int64(float64(pct) / 100.0 * float64(volumeNorm))
}

// applyDelta returns a copy of levels with delta added to every channel.
// A decrease larger than the current level floors at volumeMuted, and an
// increase past volumeNorm clamps to volumeNorm. Levels already above norm
// (software boost) are clamped back on the next increase.
func applyDelta(levels []uint32, delta int64) []uint32 {
	out := make([]uint32, len(levels))
	for i, lv := range levels {
		cur := int64(lv)
		switch {
		case delta < 0 && cur < -delta:
			out[i] = volumeMuted
		case delta > 0 && cur+delta > int64(volumeNorm):
			out[i] = volumeNorm
		default:
			out[i] = uint32(cur + delta)
		}
	}
	return out
}

// volumePercent is the average level across channels as an integer
// percentage of volumeNorm, rounded down.
func volumePercent(levels []uint32) uint32 {
	if len(levels) == 0 {
		return 0
	}
	var sum uint64
	for _, lv := range levels {
		sum += uint64(lv)
	}
	return uint32(100 * sum / (uint64(len(levels)) * uint64(volumeNorm)))
}
