package registry

import (
	"cmp"
	"slices"
)

type set[T comparable] map[T]struct{}

func (s set[T]) add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

func (s set[T]) remove(v T) bool {
	if _, ok := s[v]; !ok {
		return false
	}
	delete(s, v)
	return true
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

// index maps keys to non-empty sets. A key disappears together with its last value,
// so an empty set is never observable.
type index[K comparable, V cmp.Ordered] map[K]set[V]

func (ix index[K, V]) add(key K, v V) bool {
	s, ok := ix[key]
	if !ok {
		s = make(set[V])
		ix[key] = s
	}
	return s.add(v)
}

func (ix index[K, V]) remove(key K, v V) bool {
	s, ok := ix[key]
	if !ok || !s.remove(v) {
		return false
	}
	if len(s) == 0 {
		delete(ix, key)
	}
	return true
}

func (ix index[K, V]) has(key K, v V) bool {
	return ix[key].has(v)
}

// members returns the values stored under key in ascending order.
func (ix index[K, V]) members(key K) []V {
	s, ok := ix[key]
	if !ok {
		return nil
	}
	out := make([]V, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
