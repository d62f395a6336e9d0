package memory

import "strings"

// MatchGlob reports whether s matches a KEYS-style pattern.
//
// Supported syntax:
//
//	*       any run of bytes, including none
//	?       any single byte
//	[abc]   one byte from the set; [^abc] negates; [a-z] is a range
//	\x      the literal byte x
func MatchGlob(pattern string, s []byte) bool {
	if pattern == "*" {
		return true
	}

	// No metacharacters: plain comparison.
	if !strings.ContainsAny(pattern, `*?[\`) {
		return pattern == string(s)
	}

	return matchFrom(pattern, s)
}

func matchFrom(p string, s []byte) bool {
	// Position to resume from after the most recent '*'.
	starP, starS := -1, 0
	pi, si := 0, 0

	for si < len(s) {
		if pi < len(p) {
			switch p[pi] {
			case '*':
				for pi < len(p) && p[pi] == '*' {
					pi++
				}
				if pi == len(p) {
					return true
				}
				starP, starS = pi, si
				continue
			case '?':
				pi++
				si++
				continue
			case '[':
				if end, ok := matchClass(p, pi, s[si]); ok {
					pi = end
					si++
					continue
				}
			case '\\':
				if pi+1 < len(p) && p[pi+1] == s[si] {
					pi += 2
					si++
					continue
				}
				if pi+1 == len(p) && s[si] == '\\' {
					pi++
					si++
					continue
				}
			default:
				if p[pi] == s[si] {
					pi++
					si++
					continue
				}
			}
		}

		if starP < 0 {
			return false
		}
		starS++
		pi, si = starP, starS
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// matchClass matches c against the bracket expression starting at p[start].
// It returns the index just past the closing bracket and whether c matched.
// An unterminated class runs to the end of the pattern.
func matchClass(p string, start int, c byte) (int, bool) {
	i := start + 1
	negate := false
	if i < len(p) && p[i] == '^' {
		negate = true
		i++
	}

	matched := false
	for i < len(p) && p[i] != ']' {
		switch {
		case p[i] == '\\' && i+1 < len(p):
			if p[i+1] == c {
				matched = true
			}
			i += 2
		case i+2 < len(p) && p[i+1] == '-' && p[i+2] != ']':
			lo, hi := p[i], p[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 3
		default:
			if p[i] == c {
				matched = true
			}
			i++
		}
	}
	if i < len(p) {
		i++ // closing bracket
	}

	return i, matched != negate
}
