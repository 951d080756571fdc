package domain

import "time"

// Post is a single micro-post. The ID is assigned once at creation and
// never changes; at most one post in the collection is pinned.
type Post struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"image_url,omitempty"`
	ImageSensitive bool      `json:"image_sensitive"`
	IsPinned       bool      `json:"is_pinned"`
	Tags           []string  `json:"tags"`
	Likes          int64     `json:"likes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TagCount is a tag name with the number of posts carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// LikeState is the outcome of a like toggle or lookup for one caller.
type LikeState struct {
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}
