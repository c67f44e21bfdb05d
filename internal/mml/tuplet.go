package mml

const (
	chordOpen   = '['
	chordClose  = ']'
	tupletOpen  = '{'
	tupletClose = '}'
)

// scanTuplet looks ahead from just after '{' without moving c. It counts the
// notes, rests and chords up to the matching '}' and resolves the length that
// follows it. The state is not modified.
func (st *State) scanTuplet(c Cursor) (members, samples int, err error) {
	c.skipSpace()
	for {
		ch := c.peek()
		switch {
		case ch == 0:
			return 0, 0, ErrUnterminated
		case ch == tupletClose:
			c.advance(1)
			if members == 0 {
				return 0, 0, ErrEmptyTuplet
			}
			samples, err = st.lengthSuffix(&c)
			if err != nil {
				return 0, 0, err
			}
			// Every member needs at least one sample.
			if samples < members {
				return 0, 0, ErrZeroDuration
			}
			return members, samples, nil
		case noteIndex(ch) >= 0 || ch == 'R':
			members++
		case ch == chordOpen:
			for ch != chordClose && ch != 0 {
				c.advance(1)
				ch = c.peek()
			}
			if ch == 0 {
				return 0, 0, ErrUnterminated
			}
			members++
		}
		c.advance(1)
		c.skipSpace()
	}
}

// apportion hands out the next member's share of the tuplet. The last member
// takes whatever the even split left over.
func (st *State) apportion() int {
	each := st.TupletSamples / st.TupletNotes
	st.TupletDone++
	if st.TupletDone == st.TupletNotes {
		return st.TupletSamples - each*(st.TupletNotes-1)
	}
	return each
}

// tupletFull reports whether every declared member has been played.
func (st *State) tupletFull() bool {
	return st.TupletDone >= st.TupletNotes
}
