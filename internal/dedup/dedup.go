// Package dedup removes near-duplicate articles. Syndicated feeds carry
// the same story under dozens of outlets, so detection runs in layers:
// exact URL and canonical-title hits, token overlap against a bounded
// recency window, and a final pairwise pass that catches lightly reworded
// copies the token layer missed.
package dedup

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/normalize"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
)

const (
	// tokenJaccardThreshold marks two titles as the same story. Korean
	// headlines reword aggressively, so the bar sits below exact match
	// but above topical overlap.
	tokenJaccardThreshold = 0.6
	// sequenceRatioThreshold is the character-level bar for the batch
	// pass over survivors.
	sequenceRatioThreshold = 0.80
	// defaultWindow bounds how many recent token sets the streaming
	// layer compares against.
	defaultWindow = 500
)

// Detector holds per-run duplicate state. Not safe for concurrent use;
// the pipeline feeds it from a single goroutine.
type Detector struct {
	rules  *rules.Ruleset
	logger zerolog.Logger

	window int
	seen   []entry

	seenURLs   map[string]*article.Article
	seenTitles map[string]*article.Article
	topicCount map[string]int
}

type entry struct {
	tokens map[string]struct{}
}

// NewDetector builds a detector with a recency window of `window`
// titles; window <= 0 selects the default.
func NewDetector(rs *rules.Ruleset, window int, logger zerolog.Logger) *Detector {
	if window <= 0 {
		window = defaultWindow
	}
	return &Detector{
		rules:      rs,
		logger:     logger.With().Str("component", "dedup").Logger(),
		window:     window,
		seenURLs:   map[string]*article.Article{},
		seenTitles: map[string]*article.Article{},
		topicCount: map[string]int{},
	}
}

// IsDuplicate reports whether art repeats something already admitted this
// run, and records it as seen when it does not. Topic-capped articles
// count as duplicates once their per-run cap is reached.
func (d *Detector) IsDuplicate(art *article.Article) bool {
	key := normalize.TitleKey(art.Title)

	if art.URL != "" {
		if prev, ok := d.seenURLs[art.URL]; ok {
			return !d.replaceIfRicher(prev, art, key)
		}
	}
	if key != "" {
		if prev, ok := d.seenTitles[key]; ok {
			return !d.replaceIfRicher(prev, art, key)
		}
	}

	tokens := d.Tokenize(art.Text())
	for _, e := range d.seen {
		if jaccard(tokens, e.tokens) >= tokenJaccardThreshold {
			d.logger.Debug().Str("title", art.Title).Msg("near-duplicate story")
			return true
		}
	}

	if capName, capped := d.overTopicCap(art); capped {
		d.logger.Debug().Str("title", art.Title).Str("topic", capName).Msg("topic cap reached")
		return true
	}

	if art.URL != "" {
		d.seenURLs[art.URL] = art
	}
	if key != "" {
		d.seenTitles[key] = art
	}
	d.seen = append(d.seen, entry{tokens: tokens})
	if len(d.seen) > d.window {
		d.seen = d.seen[len(d.seen)-d.window:]
	}
	return false
}

// replaceIfRicher settles an exact URL or title-key collision: the copy
// with the longer summary survives. When the newcomer wins, the earlier
// record is flagged in place and the newcomer takes over its slots; the
// story keeps its token-window entry and topic-cap count either way.
func (d *Detector) replaceIfRicher(prev, art *article.Article, key string) bool {
	if !art.Richer(prev) {
		return false
	}
	prev.IsDuplicate = true
	if art.URL != "" {
		d.seenURLs[art.URL] = art
	}
	if key != "" {
		d.seenTitles[key] = art
	}
	d.logger.Debug().Str("kept", art.Title).Str("dropped", prev.Title).Msg("richer copy replaces earlier record")
	return true
}

// overTopicCap matches art against the configured topic caps and bumps
// the counter for the first cap it falls under.
func (d *Detector) overTopicCap(art *article.Article) (string, bool) {
	text := art.Text()
	for _, tc := range d.rules.TopicCaps {
		if !containsAny(text, tc.Triggers) {
			continue
		}
		if len(tc.AnyOf) > 0 && !containsAny(text, tc.AnyOf) {
			continue
		}
		if len(tc.ContextAny) > 0 && !containsAny(text, tc.ContextAny) {
			continue
		}
		if d.topicCount[tc.Name] >= tc.Max {
			return tc.Name, true
		}
		d.topicCount[tc.Name]++
		return tc.Name, false
	}
	return "", false
}

// Collapse runs the pairwise pass over the streaming survivors. When two
// articles clear the sequence-ratio bar, the one with the longer summary
// wins and the other is flagged as a duplicate in place.
func (d *Detector) Collapse(arts []*article.Article) {
	type cand struct {
		idx  int
		text []rune
	}
	var live []cand
	for i, a := range arts {
		if a.IsDuplicate {
			continue
		}
		live = append(live, cand{idx: i, text: []rune(strings.ToLower(normalize.Clean(a.Text())))})
	}
	for i := 0; i < len(live); i++ {
		a := arts[live[i].idx]
		if a.IsDuplicate {
			continue
		}
		for j := i + 1; j < len(live); j++ {
			b := arts[live[j].idx]
			if b.IsDuplicate {
				continue
			}
			if sequenceRatio(live[i].text, live[j].text) < sequenceRatioThreshold {
				continue
			}
			if b.Richer(a) {
				a.IsDuplicate = true
				d.logger.Debug().Str("kept", b.Title).Str("dropped", a.Title).Msg("collapsed pair")
				break
			}
			b.IsDuplicate = true
			d.logger.Debug().Str("kept", a.Title).Str("dropped", b.Title).Msg("collapsed pair")
		}
	}
}

// Tokenize splits title+summary text into comparison tokens. Single-rune
// tokens are noise, but fused compounds like 약가인하 hide two meaningful
// words, so configured bigrams are emitted alongside the word tokens.
func (d *Detector) Tokenize(text string) map[string]struct{} {
	cleaned := strings.ToLower(normalize.Clean(text))
	out := map[string]struct{}{}
	for _, w := range strings.Fields(cleaned) {
		w = strings.Trim(w, `"'.,!?…·‘’“”()[]`)
		if len([]rune(w)) > 1 {
			out[w] = struct{}{}
		}
		for _, bg := range d.rules.CompoundBigrams {
			if strings.Contains(w, bg) {
				out[bg] = struct{}{}
			}
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// sequenceRatio is 2M/T where M is the total length of the longest
// matching blocks between a and b and T the combined length.
func sequenceRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	m := matchLen(a, b)
	return 2 * float64(m) / float64(total)
}

// matchLen recursively sums matching-block lengths around the longest
// common substring, mirroring classic diff behavior.
func matchLen(a, b []rune) int {
	ai, bi, n := longestMatch(a, b)
	if n == 0 {
		return 0
	}
	return matchLen(a[:ai], b[:bi]) + n + matchLen(a[ai+n:], b[bi+n:])
}

func longestMatch(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// best[j] is the length of the match ending at a[i-1], b[j-1].
	best := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			cur := best[j]
			if a[i-1] == b[j-1] {
				best[j] = prev + 1
				if best[j] > size {
					size = best[j]
					ai = i - size
					bi = j - size
				}
			} else {
				best[j] = 0
			}
			prev = cur
		}
	}
	return ai, bi, size
}
