package mml

// Cursor reads a score one byte at a time. The zero byte stands for the end
// of the score.
type Cursor struct {
	src string
	pos int
}

func NewCursor(score string) Cursor { return Cursor{src: score} }

func (c *Cursor) Pos() int { return c.pos }

// Rest returns the unread part of the score.
func (c *Cursor) Rest() string { return c.src[c.pos:] }

func (c *Cursor) peek() byte { return byteAt(c.src, c.pos) }

func (c *Cursor) advance(n int) {
	c.pos += n
	if c.pos > len(c.src) {
		c.pos = len(c.src)
	}
}

func (c *Cursor) skipSpace() { c.pos = skipSpace(c.src, c.pos) }

// next skips whitespace and consumes one byte. At the end of the score it
// returns 0 and leaves the cursor where it is.
func (c *Cursor) next() byte {
	c.skipSpace()
	ch := c.peek()
	if ch != 0 {
		c.pos++
	}
	return ch
}

// accidentals consumes a run of '+', '#' and '-' and returns the net shift.
func (c *Cursor) accidentals() int {
	shift := 0
	for {
		switch c.peek() {
		case '+', '#':
			shift++
		case '-':
			shift--
		default:
			return shift
		}
		c.pos++
	}
}

// number consumes a run of digits. ok is false when there is none, or when
// the run does not fit an int; the run is consumed either way.
func (c *Cursor) number() (v int, ok bool) {
	n := digitRun(c.src, c.pos)
	if n == 0 {
		return 0, false
	}
	v, ok = atoi(c.src[c.pos : c.pos+n])
	c.pos += n
	return v, ok
}

func byteAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isQualifier(b byte) bool { return isDigit(b) || b == '.' }

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func digitRun(s string, i int) int {
	n := 0
	for i+n < len(s) && isDigit(s[i+n]) {
		n++
	}
	return n
}

func atoi(digits string) (int, bool) {
	const limit = int(^uint32(0) >> 1)
	v := 0
	for i := 0; i < len(digits); i++ {
		v = v*10 + int(digits[i]-'0')
		if v > limit {
			return 0, false
		}
	}
	return v, true
}

const noteLayout = "C+D+EF+G+A+B"

// noteIndex maps a note letter to its semitone within the octave, or -1.
func noteIndex(code byte) int {
	if code < 'A' || code > 'G' {
		return -1
	}
	for i := 0; i < len(noteLayout); i++ {
		if noteLayout[i] == code {
			return i
		}
	}
	return -1
}
