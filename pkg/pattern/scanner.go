// Package pattern scans journal notes for boundary-crossing language and
// distills note keywords for the chat context digest.
//
// A single Aho-Corasick automaton over a fixed phrase vocabulary serves as
// the detector; input text is canonicalized the same way the patterns are,
// so casing and punctuation never break a match.
package pattern

import (
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/maralabs/gomara/internal/store"
)

// boundaryPhrases is the built-in vocabulary of phrases that tend to show
// up in notes written after a boundary was crossed. Lowercase, separator
// collapsed, matching Canonicalize output.
var boundaryPhrases = []string{
	"silent treatment",
	"walking on eggshells",
	"my fault again",
	"checked my phone",
	"went through my phone",
	"not allowed to",
	"screamed at me",
	"yelled at me",
	"called me crazy",
	"i'm overreacting",
	"you're overreacting",
	"never happened",
	"twisted my words",
	"threatened to leave",
	"cut off my friends",
	"didn't let me",
	"made me apologize",
	"love bombing",
	"gave me the cold shoulder",
	"blamed me",
}

// Match is one detected phrase in a note.
type Match struct {
	Phrase string `json:"phrase"`
	Start  int    `json:"start"` // byte offset in the canonicalized note
	End    int    `json:"end"`
}

// Scanner detects boundary phrases in free text.
type Scanner struct {
	ac       *ahocorasick.Automaton
	patterns []string
	stop     *stopwords.Stopwords
}

// NewScanner compiles the built-in vocabulary.
func NewScanner() (*Scanner, error) {
	return NewScannerWithPhrases(boundaryPhrases)
}

// NewScannerWithPhrases compiles a custom vocabulary. Phrases are
// canonicalized before compilation.
func NewScannerWithPhrases(phrases []string) (*Scanner, error) {
	patterns := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if c := Canonicalize(p); c != "" {
			patterns = append(patterns, c)
		}
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}

	return &Scanner{
		ac:       ac,
		patterns: patterns,
		stop:     stopwords.MustGet("en"),
	}, nil
}

// ScanNote returns every boundary phrase found in the note.
func (s *Scanner) ScanNote(note string) []Match {
	if s.ac == nil || note == "" {
		return nil
	}

	haystack := Canonicalize(note)
	found := s.ac.FindAllOverlapping([]byte(haystack))

	matches := make([]Match, 0, len(found))
	for _, m := range found {
		matches = append(matches, Match{
			Phrase: s.patterns[m.PatternID],
			Start:  m.Start,
			End:    m.End,
		})
	}
	return matches
}

// HasBoundaryLanguage reports whether the note contains any phrase from
// the vocabulary.
func (s *Scanner) HasBoundaryLanguage(note string) bool {
	return len(s.ScanNote(note)) > 0
}

// Keywords returns the n most frequent non-stopword tokens across the
// given notes, most frequent first. Ties break alphabetically so the
// digest is stable across calls.
func (s *Scanner) Keywords(notes []string, n int) []string {
	counts := make(map[string]int)
	for _, note := range notes {
		for _, tok := range strings.Fields(Canonicalize(note)) {
			if len(tok) < 3 || s.stop.Contains(tok) {
				continue
			}
			counts[tok]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}

// ConsecutiveRedFlags counts the unbroken run of red-flagged days starting
// at the most recent log. The Mara persona opens its ToxicCheck protocol
// at a streak of three.
func ConsecutiveRedFlags(logs []store.DailyLog) int {
	streak := 0
	for _, l := range logs {
		if !l.RedFlag {
			break
		}
		streak++
	}
	return streak
}

// Canonicalize folds text to lowercase and collapses every separator run
// to a single space, keeping letters, digits, apostrophes and hyphens.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' || c == '-' {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimRight(out.String(), " ")
}
