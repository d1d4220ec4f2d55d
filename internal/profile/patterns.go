package profile

import (
	"sort"

	"github.com/mycelian/mycelian-feed/internal/model"
)

const peakHourCount = 3

// SummarizePatterns derives the behavioural summary from recent events.
// It returns nil when there is nothing to summarize.
func SummarizePatterns(events []*model.InteractionEvent) *model.InteractionPatterns {
	if len(events) == 0 {
		return nil
	}

	var (
		hours       [24]int
		kindWeight  = make(map[model.InteractionKind]float64)
		totalWeight float64
		likes       int
		reshares    int
	)
	type span struct {
		events     int
		first, end int64
	}
	sessions := make(map[string]*span)

	for _, e := range events {
		hours[e.Timestamp.UTC().Hour()]++
		kindWeight[e.Kind] += e.Weight
		totalWeight += e.Weight
		switch e.Kind {
		case model.KindLike:
			likes++
		case model.KindReshare:
			reshares++
		}
		if e.SessionID == "" {
			continue
		}
		ts := e.Timestamp.UnixMilli()
		s, ok := sessions[e.SessionID]
		if !ok {
			sessions[e.SessionID] = &span{events: 1, first: ts, end: ts}
			continue
		}
		s.events++
		if ts < s.first {
			s.first = ts
		}
		if ts > s.end {
			s.end = ts
		}
	}

	out := &model.InteractionPatterns{
		PeakHours:      peakHours(hours),
		KindPreference: make(map[model.InteractionKind]float64, len(kindWeight)),
		EventCount:     len(events),
	}
	for k, w := range kindWeight {
		if totalWeight > 0 {
			out.KindPreference[k] = w / totalWeight
		}
	}
	if likes > 0 {
		out.ReshareToLikeRatio = float64(reshares) / float64(likes)
	} else {
		out.ReshareToLikeRatio = float64(reshares)
	}
	if n := len(sessions); n > 0 {
		var evs int
		var ms int64
		for _, s := range sessions {
			evs += s.events
			ms += s.end - s.first
		}
		out.Session = model.SessionStats{
			Sessions:            n,
			AvgEventsPerSession: float64(evs) / float64(n),
			AvgDurationSeconds:  float64(ms) / 1000 / float64(n),
		}
	}
	return out
}

// peakHours returns the busiest hours, earliest hour first on ties.
func peakHours(hours [24]int) []int {
	idx := make([]int, 0, 24)
	for h, n := range hours {
		if n > 0 {
			idx = append(idx, h)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool { return hours[idx[i]] > hours[idx[j]] })
	if len(idx) > peakHourCount {
		idx = idx[:peakHourCount]
	}
	return idx
}
