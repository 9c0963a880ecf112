// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/whatsup-net/whatsup/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// ErrAlreadyExists is returned when a uniqueness constraint is violated.
var ErrAlreadyExists = fmt.Errorf("already exists")

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error

	CreateUser(ctx context.Context, p *CreateUserParams) error
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	GetOrCreateToken(ctx context.Context, userID, token string) (string, error)
	GetUserByToken(ctx context.Context, token string) (*entities.User, error)

	GetProfile(ctx context.Context, username string) (*entities.Profile, error)
	GetProfileByUserID(ctx context.Context, userID string) (*entities.Profile, error)
	ListProfiles(ctx context.Context) ([]*entities.Profile, error)
	UpdateProfile(ctx context.Context, userID string, p *UpdateProfileParams) error

	Follow(ctx context.Context, follower, followee string) error
	Unfollow(ctx context.Context, follower, followee string) error
	ListFollowing(ctx context.Context, userID string) ([]*entities.ProfileRef, error)
	ListFollowers(ctx context.Context, userID string) ([]*entities.ProfileRef, error)

	CreatePost(ctx context.Context, p *CreatePostParams) error
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	ListPosts(ctx context.Context, p *ListPostsParams) ([]*entities.Post, error)
	UpdatePost(ctx context.Context, id, content string) error
	DeletePost(ctx context.Context, id string) error

	CreateComment(ctx context.Context, p *CreateCommentParams) error
	ListComments(ctx context.Context, postID string) ([]*entities.Comment, error)

	CreateLike(ctx context.Context, userID, postID string, timestamp time.Time) (bool, error)
	DeleteLike(ctx context.Context, userID, postID string) (bool, error)
}

// RepostKind marks how a post with a parent was created.
type RepostKind string

const (
	// RetweetRepost is limited to one per user per original post.
	RetweetRepost RepostKind = "retweet"
	// ShareRepost has no duplicate restriction.
	ShareRepost RepostKind = "share"
)

// CreateUserParams ...
type CreateUserParams struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UpdateProfileParams contains optional fields, nil fields are left unchanged.
type UpdateProfileParams struct {
	Username *string
	Email    *string
	Bio      *string
	Photo    *string
}

// CreatePostParams ...
type CreatePostParams struct {
	ID        string
	Owner     string // user id
	Content   string
	Parent    *string
	Repost    *RepostKind
	CreatedAt time.Time
}

// ListPostsParams ...
type ListPostsParams struct {
	// Owner filters posts by owner's username.
	Owner *string
	// FeedOwner filters posts down to the given user's feed: posts authored
	// by the user or by anybody the user follows.
	FeedOwner *string
}

// CreateCommentParams ...
type CreateCommentParams struct {
	ID        string
	PostID    string
	Owner     string // user id
	Content   string
	CreatedAt time.Time
}
