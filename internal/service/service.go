// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/whatsup-net/whatsup/internal/entities"
	"github.com/whatsup-net/whatsup/internal/storage"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrSelfFollow returned when a user tries to follow himself.
var ErrSelfFollow = errors.New("can not follow yourself")

// ErrInvalidCredentials returned by Login on unknown username or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrForbidden returned when a user tries to modify somebody else's post.
var ErrForbidden = errors.New("forbidden")

// Service ...
type Service interface {
	Register(ctx context.Context, p RegisterParams) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*entities.User, error)

	GetProfile(ctx context.Context, username string) (*entities.ProfileDetail, error)
	ListProfiles(ctx context.Context) ([]*entities.ProfileDetail, error)
	UpdateProfile(ctx context.Context, actor *entities.User, p *storage.UpdateProfileParams) (*entities.ProfileDetail, error)
	Follow(ctx context.Context, actor *entities.User, username string) error
	Unfollow(ctx context.Context, actor *entities.User, username string) error

	CreatePost(ctx context.Context, actor *entities.User, content string) (*entities.Post, error)
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	UpdatePost(ctx context.Context, actor *entities.User, id, content string) (*entities.Post, error)
	DeletePost(ctx context.Context, actor *entities.User, id string) error
	Feed(ctx context.Context, actor *entities.User) ([]*entities.Post, error)
	UserPosts(ctx context.Context, username string) ([]*entities.Post, error)

	CreateComment(ctx context.Context, actor *entities.User, postID, content string) (*entities.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*entities.Comment, error)

	ToggleLike(ctx context.Context, actor *entities.User, postID string) (entities.ToggleOutcome, error)
	Retweet(ctx context.Context, actor *entities.User, postID string) (*entities.Post, error)
	Share(ctx context.Context, actor *entities.User, postID string) (*entities.Post, error)
}

// RegisterParams ...
type RegisterParams struct {
	Username string
	Email    string
	Password string
}
