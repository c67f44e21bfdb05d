package mixbus

// Hall is a Schroeder reverb: four parallel feedback combs into two
// series allpasses, fed from the mono sum.
type Hall struct {
	combs [4]ring
	diff  [2]ring
	fb    float32
	wet   float32
}

type ring struct {
	buf []float32
	pos int
}

func newRing(n int) ring {
	if n < 1 {
		n = 1
	}
	return ring{buf: make([]float32, n)}
}

func (r *ring) step(in float32) (out float32) {
	out = r.buf[r.pos]
	r.buf[r.pos] = in
	if r.pos++; r.pos == len(r.buf) {
		r.pos = 0
	}
	return out
}

func (r *ring) clear() {
	clear(r.buf)
	r.pos = 0
}

// NewHall builds a hall. size scales the delay lengths (0..1), decay sets
// the comb feedback and wet the dry/wet balance.
func NewHall(sampleRate int, size, decay, wet float32) *Hall {
	base := int(float32(sampleRate) * clamp32(size, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	h := &Hall{fb: clamp32(decay, 0, 0.95), wet: clamp32(wet, 0, 1)}
	for i, ratio := range [4]int{1000, 1117, 1271, 1437} {
		h.combs[i] = newRing(base * ratio / 1000)
	}
	for i, ratio := range [2]int{347, 213} {
		h.diff[i] = newRing(base * ratio / 1000)
	}
	return h
}

func (h *Hall) Process(l, r float32) (float32, float32) {
	in := (l + r) * 0.5
	var sum float32
	for i := range h.combs {
		c := &h.combs[i]
		delayed := c.buf[c.pos]
		c.step(in + delayed*h.fb)
		sum += delayed
	}
	out := sum * 0.25
	for i := range h.diff {
		d := &h.diff[i]
		delayed := d.buf[d.pos]
		d.step(out + delayed*0.5)
		out = delayed - out
	}
	dry := 1 - h.wet
	return l*dry + out*h.wet, r*dry + out*h.wet
}

func (h *Hall) Reset() {
	for i := range h.combs {
		h.combs[i].clear()
	}
	for i := range h.diff {
		h.diff[i].clear()
	}
}
