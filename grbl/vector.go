package grbl

import (
	"fmt"
	"strconv"
	"strings"

	iFmt "github.com/cn5x/grbldecode/internal/fmt"
)

// MaxAxes is the maximum number of axes Grbl reports.
const MaxAxes = 6

// Vector holds one value per axis. Axes beyond the configured axis count are zero.
type Vector [MaxAxes]float64

// NewVectorFromCSV parses up to MaxAxes comma separated values. On any failure no value is
// returned, so callers can keep their previous value intact.
func NewVectorFromCSV(s string) (Vector, int, error) {
	var v Vector
	if s == "" {
		return v, 0, fmt.Errorf("%w: empty vector", ErrNumericParse)
	}
	values := strings.Split(s, ",")
	if len(values) > MaxAxes {
		return v, 0, fmt.Errorf("%w: %d values, maximum is %d: %#v", ErrNumericParse, len(values), MaxAxes, s)
	}
	for i, value := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return Vector{}, 0, fmt.Errorf("%w: axis %d: %#v", ErrNumericParse, i, value)
		}
		v[i] = f
	}
	return v, len(values), nil
}

func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v Vector) Sub(o Vector) Vector {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

// Truncate returns a copy where values for axes at index n and beyond are zero.
func (v Vector) Truncate(n int) Vector {
	for i := n; i < MaxAxes; i++ {
		v[i] = 0
	}
	return v
}

// Sprint formats the first n axes, as Grbl does.
func (v Vector) Sprint(n int) string {
	n = min(max(n, 0), MaxAxes)
	values := make([]string, n)
	for i := range n {
		values[i] = iFmt.SprintFloat(v[i], 3)
	}
	return strings.Join(values, ",")
}
