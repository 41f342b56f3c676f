package cart

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^([\d.]+)`)

// PackageSize returns the leading number of a free-text size such as
// "2 lb" or "16.9 fl oz", or 0 when there is none.
func PackageSize(size string) float64 {
	m := leadingNumber.FindStringSubmatch(strings.TrimSpace(size))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// QuantityToOrder returns how many packages cover requested. An unknown
// package size counts as one unit per package. The result is at least 1.
func QuantityToOrder(requested float64, size string) int {
	pkg := PackageSize(size)
	if pkg <= 0 {
		return 1
	}
	n := int(math.Ceil(requested / pkg))
	if n < 1 {
		return 1
	}
	return n
}
