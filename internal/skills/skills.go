// Package skills resolves a filename to the skill whose pattern it matches.
package skills

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leefowlercu/skillsd/internal/config"
)

// Matcher resolves filenames against skill patterns in declaration order.
type Matcher struct {
	skills   []config.SkillConfig
	patterns []string
}

// Overlap describes two skills whose patterns can claim the same filename.
type Overlap struct {
	First  string
	Second string
}

// NewMatcher compiles the skill patterns.
// It returns an error naming the first skill whose pattern is malformed.
func NewMatcher(skills []config.SkillConfig) (*Matcher, error) {
	m := &Matcher{
		skills:   make([]config.SkillConfig, len(skills)),
		patterns: make([]string, len(skills)),
	}
	copy(m.skills, skills)

	for i, skill := range skills {
		pattern := translate(skill.Pattern)
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q for skill %q; %w", skill.Pattern, skill.Name, err)
		}
		m.patterns[i] = pattern
	}

	return m, nil
}

// Match returns the first skill whose pattern matches filename.
// filename is a basename; matching is case-sensitive.
func (m *Matcher) Match(filename string) (config.SkillConfig, bool) {
	for i, pattern := range m.patterns {
		if ok, _ := filepath.Match(pattern, filename); ok {
			return m.skills[i], true
		}
	}
	return config.SkillConfig{}, false
}

// MatchesAny reports whether any skill pattern matches filename.
func (m *Matcher) MatchesAny(filename string) bool {
	_, ok := m.Match(filename)
	return ok
}

// Skills returns the configured skills in match order.
func (m *Matcher) Skills() []config.SkillConfig {
	out := make([]config.SkillConfig, len(m.skills))
	copy(out, m.skills)
	return out
}

// Overlaps reports pairs of skills where one pattern matches the other
// pattern read as a literal name, or both patterns are identical.
// The earlier skill always wins at match time; this is for startup warnings.
func (m *Matcher) Overlaps() []Overlap {
	var out []Overlap
	for i := 0; i < len(m.patterns); i++ {
		for j := i + 1; j < len(m.patterns); j++ {
			if m.overlap(i, j) {
				out = append(out, Overlap{First: m.skills[i].Name, Second: m.skills[j].Name})
			}
		}
	}
	return out
}

func (m *Matcher) overlap(i, j int) bool {
	a, b := m.skills[i].Pattern, m.skills[j].Pattern
	if a == b {
		return true
	}
	if ok, _ := filepath.Match(m.patterns[i], b); ok {
		return true
	}
	ok, _ := filepath.Match(m.patterns[j], a)
	return ok
}

// translate converts fnmatch-style negated classes to filepath.Match syntax.
func translate(pattern string) string {
	return strings.ReplaceAll(pattern, "[!", "[^")
}
