// Package impl is implementation of service interface.
package impl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/whatsup-net/whatsup/internal/entities"
	"github.com/whatsup-net/whatsup/internal/service"
	"github.com/whatsup-net/whatsup/internal/storage"
)

const bcryptCost = 10

// service ...
type srv struct {
	s storage.Storage
}

// New creates new instance of service.
func New(s storage.Storage) service.Service {
	return srv{
		s: s,
	}
}

func (s srv) Register(ctx context.Context, p service.RegisterParams) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New().String()

	var token string
	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if err := tx.CreateUser(ctx, &storage.CreateUserParams{
			ID:           id,
			Username:     p.Username,
			Email:        p.Email,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		t, err := tx.GetOrCreateToken(ctx, id, uuid.New().String())
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		token = t

		return nil
	}); err != nil {
		return "", err
	}

	return token, nil
}

func (s srv) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.s.GetUserByUsername(ctx, username)
	if err != nil {
		if err == storage.ErrNotFound {
			return "", service.ErrInvalidCredentials
		}

		return "", fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := s.s.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", service.ErrInvalidCredentials
	}

	token, err := s.s.GetOrCreateToken(ctx, user.ID, uuid.New().String())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return token, nil
}

func (s srv) Authenticate(ctx context.Context, token string) (*entities.User, error) {
	user, err := s.s.GetUserByToken(ctx, token)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}

	return user, nil
}

func (s srv) GetProfile(ctx context.Context, username string) (*entities.ProfileDetail, error) {
	p, err := s.s.GetProfile(ctx, username)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return s.profileDetail(ctx, p)
}

func (s srv) ListProfiles(ctx context.Context) ([]*entities.ProfileDetail, error) {
	pp, err := s.s.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	out := make([]*entities.ProfileDetail, len(pp))
	for i, p := range pp {
		d, err := s.profileDetail(ctx, p)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}

	return out, nil
}

func (s srv) UpdateProfile(ctx context.Context, actor *entities.User, p *storage.UpdateProfileParams) (*entities.ProfileDetail, error) {
	if err := s.s.UpdateProfile(ctx, actor.ID, p); err != nil {
		if err == storage.ErrAlreadyExists || err == storage.ErrNotFound {
			return nil, err
		}

		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	profile, err := s.s.GetProfileByUserID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return s.profileDetail(ctx, profile)
}

func (s srv) profileDetail(ctx context.Context, p *entities.Profile) (*entities.ProfileDetail, error) {
	following, err := s.s.ListFollowing(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}

	followers, err := s.s.ListFollowers(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	posts, err := s.s.ListPosts(ctx, &storage.ListPostsParams{Owner: &p.Username})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &entities.ProfileDetail{
		Profile:   *p,
		Following: following,
		Followers: followers,
		Posts:     posts,
	}, nil
}

func (s srv) Follow(ctx context.Context, actor *entities.User, username string) error {
	target, err := s.s.GetUserByUsername(ctx, username)
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to get user: %w", err)
	}

	if target.ID == actor.ID {
		return service.ErrSelfFollow
	}

	if err := s.s.Follow(ctx, actor.ID, target.ID); err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}

	return nil
}

func (s srv) Unfollow(ctx context.Context, actor *entities.User, username string) error {
	target, err := s.s.GetUserByUsername(ctx, username)
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.s.Unfollow(ctx, actor.ID, target.ID); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}

	return nil
}

func (s srv) CreatePost(ctx context.Context, actor *entities.User, content string) (*entities.Post, error) {
	id := uuid.New().String()

	if err := s.s.CreatePost(ctx, &storage.CreatePostParams{
		ID:        id,
		Owner:     actor.ID,
		Content:   content,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	post, err := s.s.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

func (s srv) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	post, err := s.s.GetPost(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

func (s srv) UpdatePost(ctx context.Context, actor *entities.User, id, content string) (*entities.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.OwnerID != actor.ID {
		return nil, service.ErrForbidden
	}

	if err := s.s.UpdatePost(ctx, id, content); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return s.GetPost(ctx, id)
}

func (s srv) DeletePost(ctx context.Context, actor *entities.User, id string) error {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}

	if post.OwnerID != actor.ID {
		return service.ErrForbidden
	}

	if err := s.s.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return nil
}

func (s srv) Feed(ctx context.Context, actor *entities.User) ([]*entities.Post, error) {
	posts, err := s.s.ListPosts(ctx, &storage.ListPostsParams{FeedOwner: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (s srv) UserPosts(ctx context.Context, username string) ([]*entities.Post, error) {
	if _, err := s.s.GetUserByUsername(ctx, username); err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	posts, err := s.s.ListPosts(ctx, &storage.ListPostsParams{Owner: &username})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (s srv) CreateComment(ctx context.Context, actor *entities.User, postID, content string) (*entities.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	c := entities.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		Owner:     actor.Username,
		Content:   content,
		CreatedAt: time.Now(),
	}

	if err := s.s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        c.ID,
		PostID:    c.PostID,
		Owner:     actor.ID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return &c, nil
}

func (s srv) ListComments(ctx context.Context, postID string) ([]*entities.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	cc, err := s.s.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return cc, nil
}

func (s srv) ToggleLike(ctx context.Context, actor *entities.User, postID string) (entities.ToggleOutcome, error) {
	var out entities.ToggleOutcome

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		created, err := tx.CreateLike(ctx, actor.ID, postID, time.Now())
		if err != nil {
			if err == storage.ErrNotFound {
				return storage.ErrNotFound
			}

			return fmt.Errorf("failed to create like: %w", err)
		}

		if created {
			out = entities.Liked
			return nil
		}

		if _, err := tx.DeleteLike(ctx, actor.ID, postID); err != nil {
			return fmt.Errorf("failed to delete like: %w", err)
		}

		out = entities.Unliked
		return nil
	}); err != nil {
		return "", err
	}

	return out, nil
}

func (s srv) Retweet(ctx context.Context, actor *entities.User, postID string) (*entities.Post, error) {
	return s.repost(ctx, actor, postID, storage.RetweetRepost)
}

func (s srv) Share(ctx context.Context, actor *entities.User, postID string) (*entities.Post, error) {
	return s.repost(ctx, actor, postID, storage.ShareRepost)
}

func (s srv) repost(ctx context.Context, actor *entities.User, postID string, kind storage.RepostKind) (*entities.Post, error) {
	original, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()

	if err := s.s.CreatePost(ctx, &storage.CreatePostParams{
		ID:        id,
		Owner:     actor.ID,
		Content:   original.Content,
		Parent:    &original.ID,
		Repost:    &kind,
		CreatedAt: time.Now(),
	}); err != nil {
		if err == storage.ErrAlreadyExists {
			return nil, storage.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return s.GetPost(ctx, id)
}
