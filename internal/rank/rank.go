// Package rank generates lexicographic rank keys: opaque strings over
// the lowercase alphabet that sort with ordinary string comparison.
// Inserting a key between two neighbors is O(1) and never requires
// shifting other rows, which makes ranks the cheap alternative to the
// integer position system for large columns.
package rank

import "errors"

const (
	minChar byte = 'a'
	maxChar byte = 'z'
	midChar byte = 'n' // the canonical first-ever key
)

// ErrInvalidOrder indicates Between was called with before >= after.
var ErrInvalidOrder = errors.New("rank: before must sort strictly before after")

// Between returns a key that sorts strictly between before and after.
// An empty string means the boundary is absent: Between("", "") seeds
// a fresh sequence with "n", Between("", k) produces a key before k,
// and Between(k, "") a key after k. With both bounds present the
// result r always satisfies before < r < after. Precision (key
// length) grows only as deep as the gap requires, so arbitrarily many
// insertions into the same gap keep succeeding.
func Between(before, after string) (string, error) {
	switch {
	case before == "" && after == "":
		return string(midChar), nil
	case before == "":
		return keyBefore(after), nil
	case after == "":
		return keyAfter(before), nil
	}
	if before >= after {
		return "", ErrInvalidOrder
	}

	// Find the first position where the keys diverge.
	i := 0
	for i < len(before) && i < len(after) && before[i] == after[i] {
		i++
	}
	prefix := before[:i]

	if i == len(before) {
		// before is a strict prefix of after: descend into after's
		// remainder looking for room below it.
		return prefix + keyBefore(after[i:]), nil
	}

	b, a := before[i], after[i]
	if a-b > 1 {
		// Room at this position: take the midpoint, rounded down.
		return prefix + string(b+(a-b)/2), nil
	}

	// Adjacent characters leave no room here. Keep before's character
	// and extend precision past before's remaining suffix.
	return prefix + string(b) + keyAfter(before[i+1:]), nil
}

// keyBefore produces a key sorting strictly before after.
func keyBefore(after string) string {
	if after == "" {
		return string(midChar)
	}
	first := after[0]
	if first > minChar {
		if mid := minChar + (first-minChar)/2; mid > minChar {
			return string(mid)
		}
		// after starts with 'b': the midpoint truncates to 'a', which
		// does not sort strictly below, so step down a level instead.
		return string(minChar) + string(midChar)
	}
	// No room above 'a' at this position; recurse one level deeper.
	return string(minChar) + keyBefore(after[1:])
}

// keyAfter produces a key sorting strictly after before.
func keyAfter(before string) string {
	if before == "" {
		return string(midChar)
	}
	last := before[len(before)-1]
	if last >= maxChar {
		return before + string(midChar)
	}
	// Midpoint between the last character and 'z', rounded up so the
	// result stays strictly above even when the two are adjacent.
	mid := last + (maxChar-last+1)/2
	return before[:len(before)-1] + string(mid)
}

// InitialRanks returns n keys in ascending order, roughly evenly
// spaced over the alphabet. It seeds a new ordered group and is the
// entry point for periodic rebalancing once keys have grown long.
//
// Beyond 26 items the single-character buckets run out and neighbors
// start repeating (capped at 'z'). The keys are still non-decreasing,
// but callers that need strict order past that point should reseed in
// smaller groups.
func InitialRanks(n int) []string {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []string{string(midChar)}
	}

	span := int(maxChar-minChar) + 1
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		c := minChar + byte((i+1)*span/(n+1))
		if c > maxChar {
			c = maxChar
		}
		keys[i] = string(c)
	}
	return keys
}
