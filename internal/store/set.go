package store

import "math/rand"

// Set is a collection of unique string members.
type Set struct {
	m map[string]struct{}
}

func NewSet() *Set {
	return &Set{m: make(map[string]struct{})}
}

func (s *Set) Card() int { return len(s.m) }

// Add inserts members, returning the count of members newly added.
func (s *Set) Add(members ...string) int {
	n := 0
	for _, m := range members {
		if _, ok := s.m[m]; !ok {
			s.m[m] = struct{}{}
			n++
		}
	}
	return n
}

// Rem removes members, returning the count actually removed.
func (s *Set) Rem(members ...string) int {
	n := 0
	for _, m := range members {
		if _, ok := s.m[m]; ok {
			delete(s.m, m)
			n++
		}
	}
	return n
}

func (s *Set) Contains(m string) bool {
	_, ok := s.m[m]
	return ok
}

func (s *Set) Members() []string {
	out := make([]string, 0, len(s.m))
	for m := range s.m {
		out = append(out, m)
	}
	return out
}

// RandomSample returns up to n distinct members without removing them. A
// negative n allows repeats, matching SRANDMEMBER's documented behavior.
func (s *Set) RandomSample(n int) []string {
	all := s.Members()
	if len(all) == 0 {
		return nil
	}
	if n < 0 {
		out := make([]string, -n)
		for i := range out {
			out[i] = all[rand.Intn(len(all))]
		}
		return out
	}
	if n >= len(all) {
		return all
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n]
}

// PopRandom removes and returns up to n distinct random members.
func (s *Set) PopRandom(n int) []string {
	picked := s.RandomSample(n)
	s.Rem(picked...)
	return picked
}

// Inter returns the intersection of s and other.
func (s *Set) Inter(other *Set) *Set {
	out := NewSet()
	small, big := s, other
	if len(big.m) < len(small.m) {
		small, big = big, small
	}
	for m := range small.m {
		if big.Contains(m) {
			out.m[m] = struct{}{}
		}
	}
	return out
}

// Union returns the union of s and other.
func (s *Set) Union(other *Set) *Set {
	out := NewSet()
	for m := range s.m {
		out.m[m] = struct{}{}
	}
	for m := range other.m {
		out.m[m] = struct{}{}
	}
	return out
}

// Diff returns the members of s not present in other.
func (s *Set) Diff(other *Set) *Set {
	out := NewSet()
	for m := range s.m {
		if !other.Contains(m) {
			out.m[m] = struct{}{}
		}
	}
	return out
}
