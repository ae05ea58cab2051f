// Package types holds the small generic containers shared by the fuser
// packages: a Set and a couple of ordered-slice helpers.
package types

import (
	"golang.org/x/exp/constraints"
)

// Set implements a set for the key type T.
type Set[T comparable] map[T]struct{}

// MakeSet returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func MakeSet[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// SetWith creates a Set[T] with the given elements inserted.
func SetWith[T comparable](elements ...T) Set[T] {
	s := MakeSet[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// MaxOf returns the largest element of the slice, or the zero value for an
// empty slice.
func MaxOf[T constraints.Ordered](values []T) (max T) {
	for i, v := range values {
		if i == 0 || v > max {
			max = v
		}
	}
	return
}

// Prod returns the product of the elements of the slice. An empty slice has
// product 1.
func Prod[T constraints.Integer](values []T) T {
	p := T(1)
	for _, v := range values {
		p *= v
	}
	return p
}

// CeilDiv returns numerator/denominator rounded up.
func CeilDiv[T constraints.Integer](numerator, denominator T) T {
	return (numerator + denominator - 1) / denominator
}

// LastPow2 returns the largest power of two that is <= n, or 0 for n <= 0.
func LastPow2[T constraints.Integer](n T) T {
	if n <= 0 {
		return 0
	}
	p := T(1)
	for p<<1 <= n && p<<1 > p {
		p <<= 1
	}
	return p
}
