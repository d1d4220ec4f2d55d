package feed

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/mycelian/mycelian-feed/internal/model"
)

// highEngagement is the like+reshare count above which an item joins the high bucket.
const highEngagement = 5

// pageWindow selects the candidates for one page. Page k takes the k-th
// window of each list (limits[i] wide), in list order, dropping ids that an
// earlier position or page already used. Pages built from the same lists are
// therefore disjoint. Once every list is exhausted the page is empty,
// however large page is.
func pageWindow(lists [][]model.RankedCandidate, limits []int, page int) []model.RankedCandidate {
	seen := make(map[string]struct{})
	var cur []model.RankedCandidate
	for k := 1; k <= page; k++ {
		if exhausted(lists, limits, k) {
			return nil
		}
		cur = nil
		for i, l := range lists {
			lo, hi := (k-1)*limits[i], k*limits[i]
			if lo >= len(l) {
				continue
			}
			if hi > len(l) {
				hi = len(l)
			}
			for _, c := range l[lo:hi] {
				id := c.ContentID()
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				cur = append(cur, c)
			}
		}
	}
	return cur
}

// exhausted reports whether no list has a k-th window left.
func exhausted(lists [][]model.RankedCandidate, limits []int, k int) bool {
	for i, l := range lists {
		if limits[i] > 0 && k-1 < (len(l)+limits[i]-1)/limits[i] {
			return false
		}
	}
	return true
}

// interleave shuffles the high- and regular-engagement buckets independently
// and alternates between them, high first.
func interleave(cands []model.RankedCandidate, rng *rand.Rand) []model.RankedCandidate {
	var high, regular []model.RankedCandidate
	for _, c := range cands {
		if c.Item.Engagement() > highEngagement {
			high = append(high, c)
		} else {
			regular = append(regular, c)
		}
	}
	shuffle(high, rng)
	shuffle(regular, rng)

	out := make([]model.RankedCandidate, 0, len(cands))
	for i := 0; i < len(high) || i < len(regular); i++ {
		if i < len(high) {
			out = append(out, high[i])
		}
		if i < len(regular) {
			out = append(out, regular[i])
		}
	}
	return out
}

func shuffle(c []model.RankedCandidate, rng *rand.Rand) {
	rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
}

// newRNG seeds the page shuffle. Within one window the same user and page
// get the same order, so refreshes and page turns stay consistent; a
// non-positive window reseeds on every call.
func newRNG(userID string, page int, now time.Time, window time.Duration) *rand.Rand {
	if window <= 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(now.UnixNano()/int64(window)))
	binary.BigEndian.PutUint64(buf[8:], uint64(page))
	_, _ = h.Write(buf[:])
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
}

func truncate(c []model.RankedCandidate, n int) []model.RankedCandidate {
	if len(c) > n {
		return c[:n]
	}
	return c
}
