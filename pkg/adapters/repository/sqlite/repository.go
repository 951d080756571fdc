package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		image_url TEXT,
		image_sensitive INTEGER DEFAULT 0,
		is_pinned INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_posts_pinned ON posts(is_pinned);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS post_tags (
		post_id TEXT NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (post_id, tag_id),
		FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
		FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS likes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id TEXT NOT NULL,
		ip_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(post_id, ip_hash),
		FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_likes_post_id ON likes(post_id);
	`
	_, err := db.Exec(query)
	return err
}

// isUniqueViolation matches the constraint errors both drivers emit.
// The uniqueness constraints, not this check, are what keep the data
// consistent; this only classifies the failure for the caller.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}

func (r *SQLiteRepository) CreatePost(ctx context.Context, post *domain.Post, tags []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO posts (id, content, image_url, image_sensitive, is_pinned, created_at, updated_at)
			  VALUES (?, ?, ?, ?, 0, ?, ?)`
	_, err = tx.ExecContext(ctx, query, post.ID, post.Content, post.ImageURL, post.ImageSensitive, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Another allocation won the same second; the caller retries.
			return domain.ErrConflict
		}
		return err
	}

	if err := attachTags(ctx, tx, post.ID, tags); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	query := `SELECT id, content, COALESCE(image_url, ''), image_sensitive, is_pinned, created_at, updated_at,
			  (SELECT COUNT(*) FROM likes WHERE post_id = posts.id)
			  FROM posts WHERE id = ?`

	var post domain.Post
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Content, &post.ImageURL, &post.ImageSensitive, &post.IsPinned,
		&post.CreatedAt, &post.UpdatedAt, &post.Likes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags, err := r.postTags(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	post.Tags = tags
	return &post, nil
}

func (r *SQLiteRepository) UpdatePost(ctx context.Context, post *domain.Post, tags []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE posts SET content = ?, image_url = ?, image_sensitive = ?, updated_at = ? WHERE id = ?`
	_, err = tx.ExecContext(ctx, query, post.Content, post.ImageURL, post.ImageSensitive, post.UpdatedAt, post.ID)
	if err != nil {
		return err
	}

	// Tag associations are replaced wholesale on every edit.
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, post.ID); err != nil {
		return err
	}
	if err := attachTags(ctx, tx, post.ID, tags); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) DeletePost(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Explicit cascade; foreign_keys enforcement is off by default in
	// SQLite connections.
	if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) ListPosts(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Post, error) {
	query := `SELECT id, content, COALESCE(image_url, ''), image_sensitive, is_pinned, created_at, updated_at,
			  (SELECT COUNT(*) FROM likes WHERE post_id = posts.id)
			  FROM posts WHERE 1=1`
	args := []interface{}{}

	if tag, ok := filters["tag"].(string); ok && tag != "" {
		query += ` AND EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON pt.tag_id = t.id
			WHERE pt.post_id = posts.id AND t.name = ?)`
		args = append(args, tag)
	}
	if pinned, ok := filters["pinned"].(bool); ok {
		query += " AND is_pinned = ?"
		args = append(args, pinned)
	}

	// Post ids are time-derived, so id order is chronological order.
	query += " ORDER BY is_pinned DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Content, &p.ImageURL, &p.ImageSensitive, &p.IsPinned,
			&p.CreatedAt, &p.UpdatedAt, &p.Likes); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		tags, err := r.postTags(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Tags = tags
	}
	return posts, nil
}

func (r *SQLiteRepository) CountPosts(ctx context.Context, filters map[string]interface{}) (int64, error) {
	query := `SELECT COUNT(*) FROM posts WHERE 1=1`
	args := []interface{}{}

	if tag, ok := filters["tag"].(string); ok && tag != "" {
		query += ` AND EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON pt.tag_id = t.id
			WHERE pt.post_id = posts.id AND t.name = ?)`
		args = append(args, tag)
	}
	if pinned, ok := filters["pinned"].(bool); ok {
		query += " AND is_pinned = ?"
		args = append(args, pinned)
	}

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) PostExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPinned enforces the single-pin invariant with clear-then-set in
// one transaction. If the two statements could not be atomic the
// degraded outcome would be zero pinned posts, never two.
func (r *SQLiteRepository) SetPinned(ctx context.Context, id string, pinned bool) error {
	if !pinned {
		_, err := r.db.ExecContext(ctx, `UPDATE posts SET is_pinned = 0 WHERE id = ?`, id)
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET is_pinned = 0 WHERE is_pinned = 1`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE posts SET is_pinned = 1 WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) ListTags(ctx context.Context) ([]domain.TagCount, error) {
	// Inner join leaves out tags with no remaining posts.
	query := `SELECT t.name, COUNT(pt.post_id) AS c
			  FROM tags t JOIN post_tags pt ON pt.tag_id = t.id
			  GROUP BY t.id ORDER BY c DESC, t.name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.TagCount
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

// ToggleLike flips the membership row with delete-first inside one
// transaction. INSERT OR IGNORE rides on UNIQUE(post_id, ip_hash), so
// a concurrent duplicate insert degrades to "already liked" instead of
// a constraint error.
func (r *SQLiteRepository) ToggleLike(ctx context.Context, postID, ipHash string) (*domain.LikeState, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ? AND ip_hash = ?`, postID, ipHash)
	if err != nil {
		return nil, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	liked := false
	if deleted == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO likes (post_id, ip_hash, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			postID, ipHash)
		if err != nil {
			return nil, err
		}
		liked = true
	}

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&count); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.LikeState{Likes: count, Liked: liked}, nil
}

func (r *SQLiteRepository) GetLikeState(ctx context.Context, postID, ipHash string) (*domain.LikeState, error) {
	state := &domain.LikeState{}

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&state.Likes)
	if err != nil {
		return nil, err
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM likes WHERE post_id = ? AND ip_hash = ?`, postID, ipHash).Scan(&one)
	if err == nil {
		state.Liked = true
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	return state, nil
}

func (r *SQLiteRepository) postTags(ctx context.Context, postID string) ([]string, error) {
	query := `SELECT t.name FROM tags t
			  JOIN post_tags pt ON pt.tag_id = t.id
			  WHERE pt.post_id = ? ORDER BY pt.tag_id`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func attachTags(ctx context.Context, tx *sql.Tx, postID string, tags []string) error {
	for _, name := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return err
		}
		var tagID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, tagID); err != nil {
			return err
		}
	}
	return nil
}

// Ensure interface compliance
var _ ports.PostRepository = (*SQLiteRepository)(nil)
