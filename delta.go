package xz

// Limits for the delta filter distance.
const (
	minDeltaDistance = 1
	maxDeltaDistance = 256
)

// delta holds the state of the delta filter: the last distance original
// bytes in a circular history buffer. The decoder direction turns byte
// differences back into the original bytes.
type delta struct {
	enc  bool
	dist int
	pos  int
	hist [maxDeltaDistance]byte
}

// newDelta creates the filter state for the given distance. The distance
// must be in the range [1,256].
func newDelta(distance int) *delta {
	if !(minDeltaDistance <= distance && distance <= maxDeltaDistance) {
		panic("delta distance out of range")
	}
	return &delta{dist: distance}
}

// filter applies the delta filter in place on p. Every byte can be
// converted, so the whole buffer is processed. The history and the position
// carry over to the next call.
func (f *delta) filter(p []byte) int {
	if f.enc {
		for i, c := range p {
			p[i] = c - f.hist[f.pos]
			f.hist[f.pos] = c
			f.pos++
			if f.pos == f.dist {
				f.pos = 0
			}
		}
		return len(p)
	}
	for i := range p {
		c := f.hist[f.pos] + p[i]
		p[i] = c
		f.hist[f.pos] = c
		f.pos++
		if f.pos == f.dist {
			f.pos = 0
		}
	}
	return len(p)
}

// DecodeDelta reverses the delta filter with the given distance in place
// and returns data. The distance must be in the range [1,256].
func DecodeDelta(data []byte, distance int) []byte {
	f := newDelta(distance)
	f.filter(data)
	return data
}
