package model

import "time"

// ContentQuery is a filtered scan over content items. Zero-valued fields do
// not filter. Results are ordered by creation time, newest first.
type ContentQuery struct {
	AuthorsIn    []string
	AuthorsNotIn []string
	HashtagsAny  []string
	// EngagedByAny matches items liked or reshared by at least one of the users.
	EngagedByAny []string
	LikedBy      string
	ResharedBy   string
	// NotEngagedBy excludes items the user liked or reshared.
	NotEngagedBy string
	CreatedAfter time.Time
	// Limit <= 0 means unbounded.
	Limit int
}
