package keyspace

// Match reports whether name matches pattern, supporting the glob subset
// used by KEYS and pub/sub pattern subscriptions: '*' zero-or-more chars,
// '?' exactly one char, '[set]' a character class (with leading '^' or '!'
// for negation and 'a-z' style ranges), and '\\' escaping the next
// character to a literal. Every other character, including '.', matches
// itself literally.
//
// github.com/ryanuber/go-glob (seen elsewhere in the retrieval pack) only
// implements '*' and was not adopted here — see DESIGN.md.
func Match(pattern, name string) bool {
	return matchHere(pattern, name)
}

func matchHere(pattern, name string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Collapse runs of '*' and try every split point.
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchHere(pattern[1:], name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(name) == 0 {
				return false
			}
			pattern = pattern[1:]
			name = name[1:]
		case '[':
			if len(name) == 0 {
				return false
			}
			end := classEnd(pattern)
			if end < 0 {
				// Unterminated class: treat '[' as a literal.
				if name[0] != '[' {
					return false
				}
				pattern = pattern[1:]
				name = name[1:]
				continue
			}
			if !matchClass(pattern[1:end], name[0]) {
				return false
			}
			pattern = pattern[end+1:]
			name = name[1:]
		case '\\':
			if len(pattern) > 1 {
				pattern = pattern[1:]
			}
			if len(name) == 0 || name[0] != pattern[0] {
				return false
			}
			pattern = pattern[1:]
			name = name[1:]
		default:
			if len(name) == 0 || name[0] != pattern[0] {
				return false
			}
			pattern = pattern[1:]
			name = name[1:]
		}
	}
	return len(name) == 0
}

// classEnd returns the index in pattern of the ']' closing the class that
// starts at pattern[0]=='[', or -1 if unterminated.
func classEnd(pattern string) int {
	i := 1
	if i < len(pattern) && (pattern[i] == '^' || pattern[i] == '!') {
		i++
	}
	if i < len(pattern) && pattern[i] == ']' {
		i++
	}
	for i < len(pattern) && pattern[i] != ']' {
		i++
	}
	if i >= len(pattern) {
		return -1
	}
	return i
}

func matchClass(class string, c byte) bool {
	negate := false
	if len(class) > 0 && (class[0] == '^' || class[0] == '!') {
		negate = true
		class = class[1:]
	}
	matched := false
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			lo, hi := class[i], class[i+2]
			if lo <= c && c <= hi {
				matched = true
			}
			i += 2
			continue
		}
		if class[i] == c {
			matched = true
		}
	}
	return matched != negate
}
