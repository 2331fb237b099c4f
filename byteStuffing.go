package netcard

func needsEscape(b byte) bool {
	return b == Sentinel || b == Escape
}

// Stuff prefixes every sentinel and escape byte in body with an escape byte.
// The terminating sentinel is not added.
func Stuff(body []byte) []byte {
	result := make([]byte, 0, len(body)+len(body)/8)
	for _, b := range body {
		if needsEscape(b) {
			result = append(result, Escape)
		}
		result = append(result, b)
	}
	return result
}

// Unstuff reverses Stuff: the byte after an escape is taken literally.
func Unstuff(stuffed []byte) ([]byte, error) {
	result := make([]byte, 0, len(stuffed))
	for i := 0; i < len(stuffed); i++ {
		b := stuffed[i]
		if b == Escape {
			i++
			if i == len(stuffed) {
				return nil, ErrDanglingEscape
			}
			b = stuffed[i]
		}
		result = append(result, b)
	}
	return result, nil
}
