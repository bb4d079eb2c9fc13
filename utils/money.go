package utils

import "strconv"

// FinalAmount applies an absolute discount to an order total.
func FinalAmount(total, discount int64) int64 {
	return total - discount
}

// FormatAmount renders a currency amount with thousands separators,
// e.g. 1234567 -> "1,234,567".
func FormatAmount(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	var out []byte
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(r))
	}

	if neg {
		return "-" + string(out)
	}
	return string(out)
}
