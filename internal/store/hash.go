package store

import "strconv"

// Hash is a field to string-value mapping; insertion order is irrelevant.
type Hash struct {
	m map[string]string
}

func NewHash() *Hash {
	return &Hash{m: make(map[string]string)}
}

func (h *Hash) Len() int { return len(h.m) }

// Set installs field=value, reporting whether the field was newly created.
func (h *Hash) Set(field, value string) bool {
	_, existed := h.m[field]
	h.m[field] = value
	return !existed
}

// SetIfAbsent installs field=value only if the field is absent.
func (h *Hash) SetIfAbsent(field, value string) bool {
	if _, ok := h.m[field]; ok {
		return false
	}
	h.m[field] = value
	return true
}

func (h *Hash) Get(field string) (string, bool) {
	v, ok := h.m[field]
	return v, ok
}

func (h *Hash) Exists(field string) bool {
	_, ok := h.m[field]
	return ok
}

// Del removes the named fields, returning the count actually removed.
func (h *Hash) Del(fields ...string) int {
	n := 0
	for _, f := range fields {
		if _, ok := h.m[f]; ok {
			delete(h.m, f)
			n++
		}
	}
	return n
}

func (h *Hash) GetAll() map[string]string {
	out := make(map[string]string, len(h.m))
	for k, v := range h.m {
		out[k] = v
	}
	return out
}

func (h *Hash) Keys() []string {
	out := make([]string, 0, len(h.m))
	for k := range h.m {
		out = append(out, k)
	}
	return out
}

func (h *Hash) Values() []string {
	out := make([]string, 0, len(h.m))
	for _, v := range h.m {
		out = append(out, v)
	}
	return out
}

// IncrBy parses the field's current value as an integer (treating an absent
// field as 0) and adds delta, failing on a non-integer value per the spec's
// resolution of the ambiguous-parse-failure open question: an error reply,
// never a silent zero.
func (h *Hash) IncrBy(field string, delta int64) (int64, error) {
	cur := int64(0)
	if s, ok := h.m[field]; ok {
		n, err := parseStrictInt([]byte(s))
		if err != nil {
			return 0, ErrNotInteger
		}
		cur = n
	}
	n := cur + delta
	h.m[field] = strconv.FormatInt(n, 10)
	return n, nil
}
