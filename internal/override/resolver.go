package override

import (
	"sort"
	"strings"
)

// Resolver maps relative file paths to target heights. Build it with [New];
// it is never modified afterwards.
type Resolver struct {
	defaultHeight int // 0 means no default (no scaling unless a rule matches).
	rules         []Rule
	shadowed      []Rule
}

// New builds a Resolver. defaultHeight <= 0 means no default. When several
// rules share a prefix the last one wins; the earlier ones are reported by
// [Resolver.Shadowed].
func New(defaultHeight int, rules ...Rule) *Resolver {
	r := &Resolver{}
	if defaultHeight > 0 {
		r.defaultHeight = defaultHeight
	}

	index := make(map[string]int, len(rules))
	for _, rule := range rules {
		if len(rule.Prefix) == 0 || rule.Height <= 0 {
			continue
		}
		rule.Prefix = append([]string(nil), rule.Prefix...)
		key := strings.Join(rule.Prefix, "\x00")
		if i, ok := index[key]; ok {
			r.shadowed = append(r.shadowed, r.rules[i])
			r.rules[i] = rule
			continue
		}
		index[key] = len(r.rules)
		r.rules = append(r.rules, rule)
	}
	return r
}

// Resolve returns the height for the file at p. ok is false when neither a
// rule nor a default applies, meaning the file keeps its resolution.
//
// Only the directory components of p are matched; the most specific
// (longest) matching prefix wins.
func (r *Resolver) Resolve(p Path) (height int, ok bool) {
	dirs := p.Dirs()
	best := 0
	for _, rule := range r.rules {
		if len(rule.Prefix) > best && hasPrefix(dirs, rule.Prefix) {
			best = len(rule.Prefix)
			height = rule.Height
		}
	}
	if best > 0 {
		return height, true
	}
	if r.defaultHeight > 0 {
		return r.defaultHeight, true
	}
	return 0, false
}

// Default returns the default height and whether one is set.
func (r *Resolver) Default() (int, bool) {
	return r.defaultHeight, r.defaultHeight > 0
}

// Rules returns the effective rules sorted by directory.
func (r *Resolver) Rules() []Rule {
	out := append([]Rule(nil), r.rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].Dir() < out[j].Dir() })
	return out
}

// Shadowed returns rules that were replaced by a later rule for the same
// directory, in the order they were replaced.
func (r *Resolver) Shadowed() []Rule {
	return append([]Rule(nil), r.shadowed...)
}
