package frame

// AudioBatch collects the interleaved stereo samples a core writes during
// one frame.
type AudioBatch struct {
	samples []int16
}

// Write appends samples.
func (b *AudioBatch) Write(samples []int16) {
	b.samples = append(b.samples, samples...)
}

// Len returns the number of samples written.
func (b *AudioBatch) Len() int {
	return len(b.samples)
}

// Stereo returns the samples trimmed to whole left/right pairs and the
// number of samples dropped.
func (b *AudioBatch) Stereo() ([]int16, int) {
	n := len(b.samples) &^ 1
	return b.samples[:n], len(b.samples) - n
}

// Reset empties the batch, keeping its capacity.
func (b *AudioBatch) Reset() {
	b.samples = b.samples[:0]
}

// deliverAudio hands samples to the frontend and returns the number of
// stereo frames it took. The batch callback may accept less than offered,
// in which case the rest is offered again until it stops taking any.
func deliverAudio(samples []int16, cb Callbacks) int {
	delivered := 0
	switch {
	case cb.AudioBatch != nil:
		for len(samples) >= 2 {
			n := cb.AudioBatch(samples)
			if n <= 0 {
				break
			}
			if n*2 > len(samples) {
				n = len(samples) / 2
			}
			samples = samples[n*2:]
			delivered += n
		}
	case cb.Audio != nil:
		for i := 0; i+1 < len(samples); i += 2 {
			cb.Audio(samples[i], samples[i+1])
			delivered++
		}
	}
	return delivered
}
