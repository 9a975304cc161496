package consolidation

import "notifrelay/internal/domain"

const (
	// ExtensionThreshold is the minimum positional match rate for a grouping to count
	// as an extension of a prior one.
	ExtensionThreshold = 0.8
	// DivergenceThreshold is the sequential prefix match rate below which two groupings
	// are treated as different conversation threads.
	DivergenceThreshold = 0.6
)

// PositionalMatchRatio counts prior[i] == next[i] over every index of prior and divides
// by len(prior). Indexes past the end of next count as mismatches.
func PositionalMatchRatio(prior, next []domain.GroupedMessage) float64 {
	if len(prior) == 0 {
		return 0
	}
	matched := 0
	for i := range prior {
		if i < len(next) && prior[i] == next[i] {
			matched++
		}
	}
	return float64(matched) / float64(len(prior))
}

// SequentialMatchRatio is the length of the common prefix of prior and next divided by
// len(prior).
func SequentialMatchRatio(prior, next []domain.GroupedMessage) float64 {
	if len(prior) == 0 {
		return 0
	}
	n := min(len(prior), len(next))
	run := 0
	for run < n && prior[run] == next[run] {
		run++
	}
	return float64(run) / float64(len(prior))
}

// Matcher holds the two thresholds of the heuristic.
type Matcher struct {
	Extension  float64
	Divergence float64
}

// DefaultMatcher uses ExtensionThreshold and DivergenceThreshold.
func DefaultMatcher() Matcher {
	return Matcher{Extension: ExtensionThreshold, Divergence: DivergenceThreshold}
}

// IsExtension reports whether next is prior plus newer messages.
func (m Matcher) IsExtension(prior, next []domain.GroupedMessage) bool {
	if len(prior) == 0 || len(next) < len(prior) {
		return false
	}
	return PositionalMatchRatio(prior, next) >= m.Extension
}

// IsDivergent reports whether next starts a new batch unrelated to prior.
func (m Matcher) IsDivergent(prior, next []domain.GroupedMessage) bool {
	return SequentialMatchRatio(prior, next) < m.Divergence
}

// Supersedes reports whether next should replace prior.
func (m Matcher) Supersedes(prior, next []domain.GroupedMessage) bool {
	return m.IsExtension(prior, next) && !m.IsDivergent(prior, next)
}

// SelectCandidate picks the record incoming should replace, or nil.
// Records must share app, title and titleBig with key and carry grouped messages.
// When incoming is empty every key-matching record is eligible. Ties in eligibility are
// broken by the most recent Time.
func (m Matcher) SelectCandidate(key domain.ConversationKey, incoming []domain.GroupedMessage, records []*domain.Notification) *domain.Notification {
	var best *domain.Notification
	for _, rec := range records {
		if rec.App != key.App || rec.Title != key.Title || rec.TitleBig != key.TitleBig {
			continue
		}
		if !rec.IsGrouped() {
			continue
		}
		if len(incoming) > 0 && !m.Supersedes(rec.GroupedMessages, incoming) {
			continue
		}
		if best == nil || domain.NewerThan(rec.Time, best.Time) {
			best = rec
		}
	}
	return best
}
