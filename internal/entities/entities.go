// Package entities contains main entities of service.
package entities

import (
	"time"
)

// User ...
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Profile ...
type Profile struct {
	UserID    string
	Username  string
	Email     string
	Bio       string
	Photo     string
	CreatedAt time.Time
}

// ProfileRef is a short form of profile used in following and followers listings.
type ProfileRef struct {
	Username string
	Photo    string
}

// ProfileDetail is a full profile projection.
type ProfileDetail struct {
	Profile
	Following []*ProfileRef
	Followers []*ProfileRef
	Posts     []*Post
}

// Post ...
type Post struct {
	ID        string
	OwnerID   string
	Owner     string // username
	Content   string
	CreatedAt time.Time

	// Parent is set when the post is a retweet or a share of another post.
	Parent *ParentPost

	Likes    uint32
	Comments uint32
	Retweets uint32
}

// ParentPost is a short form of the original post referenced by a retweet or a share.
type ParentPost struct {
	ID        string
	Owner     string // username
	Content   string
	CreatedAt time.Time
}

// Comment ...
type Comment struct {
	ID        string
	PostID    string
	Owner     string // username
	Content   string
	CreatedAt time.Time
}

// ToggleOutcome is a result of a like toggle.
type ToggleOutcome string

const (
	// Liked means the like did not exist and was created.
	Liked ToggleOutcome = "Liked"
	// Unliked means the like existed and was removed.
	Unliked ToggleOutcome = "Unliked"
)
