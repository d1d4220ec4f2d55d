package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mycelian/mycelian-feed/internal/model"
)

type content struct {
	db *sql.DB
	d  Dialect
}

func (c *content) Create(ctx context.Context, in *model.ContentItem) (*model.ContentItem, error) {
	if in.AuthorID == "" {
		return nil, model.NewValidationError("authorId", "required")
	}
	out := *in
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	// Millisecond precision is what the store keeps.
	out.CreatedAt = fromMillis(toMillis(out.CreatedAt))
	out.Hashtags = model.NormalizeHashtags(out.Hashtags)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.NewStoreError("content.create", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, rebind(c.d,
		`INSERT INTO content_items (id, author_id, body, created_at) VALUES (?,?,?,?)`),
		out.ID, out.AuthorID, out.Body, toMillis(out.CreatedAt)); err != nil {
		return nil, model.NewStoreError("content.create", err)
	}

	now := toMillis(time.Now())
	sets := []struct {
		query string
		ids   []string
	}{
		{`INSERT INTO content_hashtags (content_id, hashtag) VALUES (?,?) ON CONFLICT DO NOTHING`, out.Hashtags},
		{`INSERT INTO content_mentions (content_id, user_id) VALUES (?,?) ON CONFLICT DO NOTHING`, out.Mentions},
		{`INSERT INTO content_replies (content_id, reply_id) VALUES (?,?) ON CONFLICT DO NOTHING`, out.Replies},
	}
	for _, s := range sets {
		for _, v := range s.ids {
			if _, err := tx.ExecContext(ctx, rebind(c.d, s.query), out.ID, v); err != nil {
				return nil, model.NewStoreError("content.create", err)
			}
		}
	}
	for _, u := range out.Likers {
		if _, err := tx.ExecContext(ctx, rebind(c.d,
			`INSERT INTO content_likes (content_id, user_id, created_at) VALUES (?,?,?) ON CONFLICT DO NOTHING`),
			out.ID, u, now); err != nil {
			return nil, model.NewStoreError("content.create", err)
		}
	}
	for _, u := range out.Resharers {
		if _, err := tx.ExecContext(ctx, rebind(c.d,
			`INSERT INTO content_reshares (content_id, user_id, created_at) VALUES (?,?,?) ON CONFLICT DO NOTHING`),
			out.ID, u, now); err != nil {
			return nil, model.NewStoreError("content.create", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, model.NewStoreError("content.create", err)
	}
	return c.Get(ctx, out.ID)
}

func (c *content) Get(ctx context.Context, contentID string) (*model.ContentItem, error) {
	var (
		item    model.ContentItem
		created int64
	)
	row := c.db.QueryRowContext(ctx, rebind(c.d,
		`SELECT id, author_id, body, created_at FROM content_items WHERE id = ?`), contentID)
	if err := row.Scan(&item.ID, &item.AuthorID, &item.Body, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, model.NewStoreError("content.get", err)
	}
	item.CreatedAt = fromMillis(created)
	items := []*model.ContentItem{&item}
	if err := hydrate(ctx, c.db, c.d, items); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *content) Scan(ctx context.Context, q model.ContentQuery) ([]*model.ContentItem, error) {
	b := newBuilder(c.d)
	b.write(`SELECT c.id, c.author_id, c.body, c.created_at FROM content_items c WHERE 1=1`)
	if len(q.AuthorsIn) > 0 {
		b.write(` AND c.author_id IN (` + b.list(q.AuthorsIn) + `)`)
	}
	if len(q.AuthorsNotIn) > 0 {
		b.write(` AND c.author_id NOT IN (` + b.list(q.AuthorsNotIn) + `)`)
	}
	if len(q.HashtagsAny) > 0 {
		if tags := model.NormalizeHashtags(q.HashtagsAny); len(tags) > 0 {
			b.write(` AND EXISTS (SELECT 1 FROM content_hashtags h WHERE h.content_id = c.id AND h.hashtag IN (` + b.list(tags) + `))`)
		} else {
			b.write(` AND 1=0`)
		}
	}
	if len(q.EngagedByAny) > 0 {
		b.write(` AND (EXISTS (SELECT 1 FROM content_likes l WHERE l.content_id = c.id AND l.user_id IN (` + b.list(q.EngagedByAny) + `))`)
		b.write(` OR EXISTS (SELECT 1 FROM content_reshares r WHERE r.content_id = c.id AND r.user_id IN (` + b.list(q.EngagedByAny) + `)))`)
	}
	if q.LikedBy != "" {
		b.write(` AND EXISTS (SELECT 1 FROM content_likes l WHERE l.content_id = c.id AND l.user_id = ` + b.arg(q.LikedBy) + `)`)
	}
	if q.ResharedBy != "" {
		b.write(` AND EXISTS (SELECT 1 FROM content_reshares r WHERE r.content_id = c.id AND r.user_id = ` + b.arg(q.ResharedBy) + `)`)
	}
	if q.NotEngagedBy != "" {
		b.write(` AND NOT EXISTS (SELECT 1 FROM content_likes l WHERE l.content_id = c.id AND l.user_id = ` + b.arg(q.NotEngagedBy) + `)`)
		b.write(` AND NOT EXISTS (SELECT 1 FROM content_reshares r WHERE r.content_id = c.id AND r.user_id = ` + b.arg(q.NotEngagedBy) + `)`)
	}
	if !q.CreatedAfter.IsZero() {
		b.write(` AND c.created_at >= ` + b.arg(toMillis(q.CreatedAfter)))
	}
	b.write(` ORDER BY c.created_at DESC, c.id ASC`)
	if q.Limit > 0 {
		b.write(` LIMIT ` + b.arg(q.Limit))
	}

	items, err := c.scanRows(ctx, b)
	if err != nil {
		return nil, model.NewStoreError("content.scan", err)
	}
	if err := hydrate(ctx, c.db, c.d, items); err != nil {
		return nil, err
	}
	return items, nil
}

// scanRows reads item rows and releases the connection before hydration.
func (c *content) scanRows(ctx context.Context, b *builder) ([]*model.ContentItem, error) {
	rows, err := c.db.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.ContentItem
	for rows.Next() {
		var (
			item    model.ContentItem
			created int64
		)
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.Body, &created); err != nil {
			return nil, err
		}
		item.CreatedAt = fromMillis(created)
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (c *content) SetLike(ctx context.Context, contentID, userID string, liked bool) error {
	return c.toggle(ctx, "content_likes", contentID, userID, liked)
}

func (c *content) SetReshare(ctx context.Context, contentID, userID string, reshared bool) error {
	return c.toggle(ctx, "content_reshares", contentID, userID, reshared)
}

func (c *content) toggle(ctx context.Context, table, contentID, userID string, on bool) error {
	if err := c.exists(ctx, contentID); err != nil {
		return err
	}
	var err error
	if on {
		_, err = c.db.ExecContext(ctx, rebind(c.d,
			`INSERT INTO `+table+` (content_id, user_id, created_at) VALUES (?,?,?) ON CONFLICT DO NOTHING`),
			contentID, userID, toMillis(time.Now()))
	} else {
		_, err = c.db.ExecContext(ctx, rebind(c.d,
			`DELETE FROM `+table+` WHERE content_id = ? AND user_id = ?`), contentID, userID)
	}
	return model.NewStoreError(table+".toggle", err)
}

func (c *content) AddReply(ctx context.Context, contentID, replyID string) error {
	if err := c.exists(ctx, contentID); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, rebind(c.d,
		`INSERT INTO content_replies (content_id, reply_id) VALUES (?,?) ON CONFLICT DO NOTHING`), contentID, replyID)
	return model.NewStoreError("content.reply", err)
}

func (c *content) exists(ctx context.Context, contentID string) error {
	var one int
	err := c.db.QueryRowContext(ctx, rebind(c.d, `SELECT 1 FROM content_items WHERE id = ?`), contentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return model.NewStoreError("content.exists", err)
}

func (c *content) CountLikes(ctx context.Context, userIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(userIDs))
	for _, id := range userIDs {
		out[id] = 0
	}
	for _, chunk := range chunks(userIDs, inChunk) {
		b := newBuilder(c.d)
		b.write(`SELECT user_id, COUNT(*) FROM content_likes WHERE user_id IN (` + b.list(chunk) + `) GROUP BY user_id`)
		rows, err := c.db.QueryContext(ctx, b.String(), b.args...)
		if err != nil {
			return nil, model.NewStoreError("content.count_likes", err)
		}
		for rows.Next() {
			var (
				id string
				n  int
			)
			if err := rows.Scan(&id, &n); err != nil {
				rows.Close()
				return nil, model.NewStoreError("content.count_likes", err)
			}
			out[id] = n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, model.NewStoreError("content.count_likes", err)
		}
	}
	return out, nil
}

// hydrate fills the set-valued fields of items from the side tables.
func hydrate(ctx context.Context, q querier, d Dialect, items []*model.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[string]*model.ContentItem, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		ids = append(ids, it.ID)
	}
	sides := []struct {
		table, col string
		field      func(*model.ContentItem) *[]string
	}{
		{"content_hashtags", "hashtag", func(c *model.ContentItem) *[]string { return &c.Hashtags }},
		{"content_mentions", "user_id", func(c *model.ContentItem) *[]string { return &c.Mentions }},
		{"content_likes", "user_id", func(c *model.ContentItem) *[]string { return &c.Likers }},
		{"content_reshares", "user_id", func(c *model.ContentItem) *[]string { return &c.Resharers }},
		{"content_replies", "reply_id", func(c *model.ContentItem) *[]string { return &c.Replies }},
	}
	for _, side := range sides {
		for _, chunk := range chunks(ids, inChunk) {
			b := newBuilder(d)
			b.write(`SELECT content_id, ` + side.col + ` FROM ` + side.table +
				` WHERE content_id IN (` + b.list(chunk) + `) ORDER BY content_id, ` + side.col)
			if err := func() error {
				rows, err := q.QueryContext(ctx, b.String(), b.args...)
				if err != nil {
					return err
				}
				defer rows.Close()
				for rows.Next() {
					var cid, v string
					if err := rows.Scan(&cid, &v); err != nil {
						return err
					}
					if it, ok := byID[cid]; ok {
						f := side.field(it)
						*f = append(*f, v)
					}
				}
				return rows.Err()
			}(); err != nil {
				return model.NewStoreError("content.hydrate."+side.table, err)
			}
		}
	}
	return nil
}
