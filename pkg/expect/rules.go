package expect

import "regexp"

// Rule is one prompt pattern a wait can resolve on. Rules are evaluated in
// declaration order and the first whose pattern matches anywhere in the
// accumulated buffer wins.
type Rule struct {
	name string
	re   *regexp.Regexp
}

// Literal builds a rule matching an exact substring.
func Literal(s string) Rule {
	return Rule{name: s, re: regexp.MustCompile(regexp.QuoteMeta(s))}
}

// Pattern builds a rule from a regular expression. Capture groups are
// returned in the match result. The expression must be valid; rule sets are
// declared statically, so a bad pattern is a programming error.
func Pattern(expr string) Rule {
	return Rule{name: expr, re: regexp.MustCompile(expr)}
}

// String returns the source text of the rule, for logging.
func (r Rule) String() string {
	return r.name
}

// Result describes the winning rule of a wait.
type Result struct {
	// Index is the position of the winning rule in the rule set.
	Index int

	// Captures holds the full submatch slice of the winning pattern
	// (index 0 is the whole match).
	Captures []string

	// Buffer is the remote text consumed by this wait, up to and including
	// the match. Useful as diagnostic detail on error prompts.
	Buffer string
}

// Match evaluates rules in order against the accumulated buffer and returns
// the first that matches, or nil if none match yet. A nil result is not a
// failure: the caller keeps waiting until its timeout elapses.
func Match(buffer string, rules []Rule) *Result {
	for i, r := range rules {
		loc := r.re.FindStringSubmatchIndex(buffer)
		if loc == nil {
			continue
		}
		groups := 1 + r.re.NumSubexp()
		caps := make([]string, 0, groups)
		for g := 0; g < groups; g++ {
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				caps = append(caps, "")
				continue
			}
			caps = append(caps, buffer[start:end])
		}
		return &Result{
			Index:    i,
			Captures: caps,
			Buffer:   buffer[:loc[1]],
		}
	}
	return nil
}
