package core

// Format selects the radix used by Print
type Format uint8

const (
	DEC Format = 0
	BIN Format = 1
	OCT Format = 2
	HEX Format = 3
)

func (f Format) base() uint32 {
	switch f {
	case BIN:
		return 2
	case OCT:
		return 8
	case HEX:
		return 16
	}
	return 10
}

// digitToASCII converts a digit value below 16 to its ASCII code
func digitToASCII(d uint8) byte {
	if d < 10 {
		return d + '0'
	}
	return d - 10 + 'A'
}

// formatUint renders v in base into the tail of buf and returns the digits,
// most significant first. Zero renders as "0". buf must hold 32 digits.
func formatUint(buf *[32]byte, v uint32, base uint32) []byte {
	pos := len(buf)
	for {
		pos--
		buf[pos] = digitToASCII(uint8(v % base))
		v /= base
		if v == 0 {
			break
		}
	}
	return buf[pos:]
}

// magnitude returns |v| as an unsigned value; MinInt32 maps to 2^31
func magnitude(v int32) uint32 {
	return ^uint32(v) + 1
}

// utoa converts an unsigned integer to a decimal string for debug output
func utoa(n uint32) string {
	var buf [32]byte
	return string(formatUint(&buf, n, 10))
}

// itoa converts a signed integer to a decimal string for debug output
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(magnitude(int32(n)))
	}
	return utoa(uint32(n))
}
