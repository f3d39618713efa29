package store

import (
	"math"
	"strconv"
)

// IncrBy parses the string payload as a canonical signed 64-bit integer and
// adds delta, failing rather than wrapping on overflow.
func (it *Item) IncrBy(delta int64) (int64, error) {
	if it.Kind != KindString {
		return 0, ErrWrongType
	}
	cur, err := parseStrictInt(it.Str)
	if err != nil {
		return 0, ErrNotInteger
	}
	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, ErrOverflow
	}
	n := cur + delta
	it.Str = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// IncrByFloat parses the string payload as a float64 and adds delta.
func (it *Item) IncrByFloat(delta float64) (float64, error) {
	if it.Kind != KindString {
		return 0, ErrWrongType
	}
	cur, err := strconv.ParseFloat(string(it.Str), 64)
	if err != nil {
		return 0, ErrNotFloat
	}
	n := cur + delta
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrNotFloat
	}
	it.Str = []byte(strconv.FormatFloat(n, 'f', -1, 64))
	return n, nil
}

// Append appends b to the string payload and returns the new length.
func (it *Item) Append(b []byte) (int, error) {
	if it.Kind != KindString {
		return 0, ErrWrongType
	}
	it.Str = append(it.Str, b...)
	return len(it.Str), nil
}

// Strlen returns the byte length of the string payload.
func (it *Item) Strlen() (int, error) {
	if it.Kind != KindString {
		return 0, ErrWrongType
	}
	return len(it.Str), nil
}

// parseStrictInt requires the whole byte slice to be a canonical base-10
// signed integer (no leading/trailing whitespace, no leading '+').
func parseStrictInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, ErrNotInteger
	}
	s := string(b)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != s {
		return 0, ErrNotInteger
	}
	return n, nil
}
