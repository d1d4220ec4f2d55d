package feed

import (
	"math"

	"github.com/mycelian/mycelian-feed/internal/model"
)

// Share of each page per generator, in percent.
var generatorShare = map[model.Source]int{
	model.SourceCollaborative: 35,
	model.SourceContent:       30,
	model.SourceSocial:        20,
	model.SourceTrending:      15,
}

// Share of each page per fallback tier, in percent.
const (
	followingShare = 50
	popularShare   = 30
)

// Quota is ceil(pct% of pageSize).
func Quota(pct, pageSize int) int {
	if pct <= 0 || pageSize <= 0 {
		return 0
	}
	return (pct*pageSize + 99) / 100
}

// fallbackLimits returns floor shares for the following and popular tiers;
// discovery takes whatever is left so the tiers always add up to pageSize.
func fallbackLimits(pageSize int) (following, popular, discovery int) {
	following = followingShare * pageSize / 100
	popular = popularShare * pageSize / 100
	discovery = pageSize - following - popular
	return following, popular, discovery
}

// windows trims quotas from the lowest-priority end until they add up to at
// most pageSize. Ceil shares can overshoot (4+3+2+2 for pageSize 10), and a
// candidate cut after the shuffle would be lost to every later page.
func windows(quotas []int, pageSize int) []int {
	out := append([]int(nil), quotas...)
	excess := -pageSize
	for _, q := range out {
		excess += q
	}
	for i := len(out) - 1; i >= 0 && excess > 0; i-- {
		cut := min(out[i], excess)
		out[i] -= cut
		excess -= cut
	}
	return out
}

// trancheLimit is width*page capped at ceiling, without overflowing.
func trancheLimit(width, page, ceiling int) int {
	if width <= 0 || page <= 0 {
		return 0
	}
	if ceiling <= 0 {
		ceiling = math.MaxInt
	}
	if page > ceiling/width {
		return ceiling
	}
	return width * page
}
