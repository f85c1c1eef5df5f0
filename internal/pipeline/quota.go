// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sort"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// rankLess orders papers by composite, then relevance, then fetch order.
func rankLess(a, b types.ScoredPaper) bool {
	if a.Composite != b.Composite {
		return a.Composite > b.Composite
	}
	if a.Relevance != b.Relevance {
		return a.Relevance > b.Relevance
	}
	return a.Order < b.Order
}

func sortRanked(papers []types.ScoredPaper) {
	sort.SliceStable(papers, func(i, j int) bool { return rankLess(papers[i], papers[j]) })
}

// bucket is the ranked papers attributed to one keyword.
type bucket struct {
	keyword string
	papers  []types.ScoredPaper
	next    int
}

func (b *bucket) take() types.ScoredPaper {
	p := b.papers[b.next]
	b.next++
	return p
}

func (b *bucket) exhausted() bool { return b.next >= len(b.papers) }

// groupBuckets splits ranked into buckets: keywords in configured order
// first, then any other bucket in order of first appearance. Empty buckets
// are omitted.
func groupBuckets(ranked []types.ScoredPaper, keywords []string) []*bucket {
	byName := make(map[string]*bucket)
	var order []*bucket
	for _, kw := range keywords {
		if _, ok := byName[kw]; ok {
			continue
		}
		b := &bucket{keyword: kw}
		byName[kw] = b
		order = append(order, b)
	}
	for _, p := range ranked {
		b, ok := byName[p.MatchedKeyword]
		if !ok {
			b = &bucket{keyword: p.MatchedKeyword}
			byName[p.MatchedKeyword] = b
			order = append(order, b)
		}
		b.papers = append(b.papers, p)
	}

	buckets := order[:0]
	for _, b := range order {
		if len(b.papers) > 0 {
			buckets = append(buckets, b)
		}
	}
	return buckets
}

// selectBalanced picks at most k papers from ranked, round-robin across
// keyword buckets. Each bucket contributes at most ceil(k / buckets) papers;
// with backfill, slots left by exhausted buckets are then filled by the
// others, still round-robin. The result is in rank order.
func selectBalanced(ranked []types.ScoredPaper, keywords []string, k int, backfill bool) []types.ScoredPaper {
	buckets := groupBuckets(ranked, keywords)
	if len(buckets) == 0 || k <= 0 {
		return nil
	}
	limit := (k + len(buckets) - 1) / len(buckets)

	selected := make([]types.ScoredPaper, 0, k)
	roundRobin := func(capped bool) {
		for len(selected) < k {
			progressed := false
			for _, b := range buckets {
				if len(selected) == k {
					break
				}
				if b.exhausted() || (capped && b.next >= limit) {
					continue
				}
				selected = append(selected, b.take())
				progressed = true
			}
			if !progressed {
				return
			}
		}
	}

	roundRobin(true)
	if backfill {
		roundRobin(false)
	}

	sortRanked(selected)
	return selected
}

// selectTop returns the first k papers of ranked.
func selectTop(ranked []types.ScoredPaper, k int) []types.ScoredPaper {
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return append([]types.ScoredPaper(nil), ranked...)
}

func countBuckets(papers []types.ScoredPaper) map[string]int {
	counts := make(map[string]int)
	for _, p := range papers {
		counts[p.MatchedKeyword]++
	}
	return counts
}
