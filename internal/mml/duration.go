package mml

// BaseDuration converts a note length code (1 = whole, 4 = quarter, ...; 0 is
// a double whole) with up to four dots into a sample count.
func BaseDuration(sampleRate, tempo, code, dots int) (int, error) {
	n, div := 0, 0
	switch code {
	case 0:
		n = 3
	case 1:
		n = 2
	case 2:
		n = 1
	case 4:
		n = 0
	case 8:
		div = 1
	case 16:
		div = 2
	case 32:
		div = 3
	case 64:
		div = 4
	default:
		return 0, ErrBadLength
	}
	if dots < 0 || dots > 4 {
		return 0, ErrBadDots
	}
	if tempo <= 0 {
		return 0, ErrBadTempo
	}
	mul := 16
	for d := dots; d > 0; d-- {
		mul += 1 << (4 - d)
	}
	samples := (((15 * sampleRate * mul) << n) >> (2 + div)) / tempo
	if samples <= 0 {
		return 0, ErrZeroDuration
	}
	return samples, nil
}

const (
	noLength  = -1 // segment without an explicit length code
	badLength = -2 // digit run too long to be a length code
)

// resolve computes one length segment, substituting the default length when
// code is absent. In additive mode the segment is added to total.
func (st *State) resolve(total, code, dots int, additive bool) (int, error) {
	if code == noLength {
		code = st.Length
	}
	samples, err := BaseDuration(st.SampleRate, st.Tempo, code, dots)
	if err != nil {
		return 0, err
	}
	if additive {
		return total + samples, nil
	}
	return samples, nil
}

type lengthState int

const (
	lengthIdle lengthState = iota
	lengthNumber
	lengthPlus
)

// lengthSuffix parses the optional length after a note, rest, chord or
// tuplet: "", "8", "4.", "2..", "4+8.", ... and returns its sample count.
func (st *State) lengthSuffix(c *Cursor) (int, error) {
	if !isQualifier(c.peek()) {
		return st.resolve(0, noLength, 0, false)
	}

	var (
		total    int
		dots     int
		code     = noLength
		additive bool
		state    = lengthIdle
		err      error
	)
	for {
		ch := c.peek()
		switch state {
		case lengthIdle:
			switch {
			case isDigit(ch):
				code = c.lengthCode()
				state = lengthNumber
			case ch == '.':
				dots++
				c.advance(1)
				state = lengthNumber
			default:
				return st.resolve(total, code, dots, additive)
			}
		case lengthNumber:
			switch ch {
			case '.':
				dots++
				c.advance(1)
			case '+':
				total, err = st.resolve(total, code, dots, additive)
				if err != nil {
					return 0, err
				}
				c.advance(1)
				additive = true
				code, dots = noLength, 0
				state = lengthPlus
			default:
				return st.resolve(total, code, dots, additive)
			}
		case lengthPlus:
			if !isDigit(ch) {
				return 0, ErrTrailingPlus
			}
			code = c.lengthCode()
			state = lengthNumber
		default:
			return 0, ErrBadLength
		}
	}
}

func (c *Cursor) lengthCode() int {
	v, ok := c.number()
	if !ok {
		return badLength
	}
	return v
}
