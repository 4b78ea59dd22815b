package minidb

// upperBound returns the first key that does not share the given prefix,
// for use as an exclusive iterator limit. It increments the last byte of
// the prefix that is not 0xFF. If every byte is 0xFF (or the prefix is
// empty), it returns nil, meaning "no upper bound".
func upperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xFF {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}
