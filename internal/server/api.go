package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/whatsup-net/whatsup/internal/entities"
)

// Error ...
type Error struct {
	Error string `json:"error"`
}

// TokenResponse ...
type TokenResponse struct {
	Token string `json:"token"`
}

// DetailResponse ...
type DetailResponse struct {
	Detail string `json:"detail"`
}

// RegisterRequest ...
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// LoginRequest ...
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PostRequest ...
type PostRequest struct {
	Content string `json:"content"`
}

// CommentRequest ...
type CommentRequest struct {
	Content string `json:"content"`
}

// UpdateProfileRequest contains optional fields, absent fields are left unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
	Photo    *string `json:"photo"`
}

// Post ...
type Post struct {
	ID            string      `json:"id"`
	User          string      `json:"user"`
	Content       string      `json:"content"`
	CreatedAt     int64       `json:"created_at"`
	Parent        *string     `json:"parent"`
	ParentDetail  *ParentPost `json:"parent_detail"`
	LikesCount    uint32      `json:"likes_count"`
	CommentsCount uint32      `json:"comments_count"`
	RetweetsCount uint32      `json:"retweets_count"`
}

// ParentPost ...
type ParentPost struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Comment ...
type Comment struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// ProfileRef ...
type ProfileRef struct {
	Username string `json:"username"`
	Photo    string `json:"photo"`
}

// Profile ...
type Profile struct {
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	Bio            string       `json:"bio"`
	Photo          string       `json:"photo"`
	Following      []ProfileRef `json:"following"`
	Followers      []ProfileRef `json:"followers"`
	FollowingCount int          `json:"following_count"`
	FollowersCount int          `json:"followers_count"`
	Posts          []*Post      `json:"posts"`
}

func writeOK(w http.ResponseWriter, status int, v interface{}) {
	b, _ := json.Marshal(v)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeOK(w, status, Error{Error: message})
}

func writeInternalError(w http.ResponseWriter, message string) {
	logrus.Error(message)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func toAPIPost(p *entities.Post) *Post {
	if p == nil {
		return nil
	}

	out := Post{
		ID:            p.ID,
		User:          p.Owner,
		Content:       p.Content,
		CreatedAt:     p.CreatedAt.Unix(),
		LikesCount:    p.Likes,
		CommentsCount: p.Comments,
		RetweetsCount: p.Retweets,
	}

	if p.Parent != nil {
		out.Parent = &p.Parent.ID
		out.ParentDetail = &ParentPost{
			ID:        p.Parent.ID,
			User:      p.Parent.Owner,
			Content:   p.Parent.Content,
			CreatedAt: p.Parent.CreatedAt.Unix(),
		}
	}

	return &out
}

func toAPIPosts(pp []*entities.Post) []*Post {
	out := make([]*Post, len(pp))
	for i, v := range pp {
		out[i] = toAPIPost(v)
	}

	return out
}

func toAPIComment(c *entities.Comment) *Comment {
	return &Comment{
		ID:        c.ID,
		Username:  c.Owner,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.Unix(),
	}
}

func toAPIProfile(p *entities.ProfileDetail) *Profile {
	out := Profile{
		Username:       p.Username,
		Email:          p.Email,
		Bio:            p.Bio,
		Photo:          p.Photo,
		Following:      toAPIRefs(p.Following),
		Followers:      toAPIRefs(p.Followers),
		FollowingCount: len(p.Following),
		FollowersCount: len(p.Followers),
		Posts:          toAPIPosts(p.Posts),
	}

	return &out
}

func toAPIRefs(rr []*entities.ProfileRef) []ProfileRef {
	out := make([]ProfileRef, len(rr))
	for i, v := range rr {
		out[i] = ProfileRef{
			Username: v.Username,
			Photo:    v.Photo,
		}
	}

	return out
}
