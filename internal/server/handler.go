package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whatsup-net/whatsup/internal/entities"
	mm "github.com/whatsup-net/whatsup/internal/middleware"
	"github.com/whatsup-net/whatsup/internal/service"
	"github.com/whatsup-net/whatsup/internal/storage"
)

func (s server) register(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /register Users Register
	//
	// Register a new user and issue a token.
	//
	// ---
	// responses:
	//   '201':
	//     description: token
	//   '400':
	//     description: bad request

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	if req.Password != req.Password2 {
		writeError(w, http.StatusBadRequest, "password: passwords do not match")
		return
	}

	token, err := s.s.Register(r.Context(), service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "username is already taken")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to register: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusCreated, TokenResponse{Token: token})
}

func (s server) login(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /login Users Login
	//
	// Exchange credentials for a token.
	//
	// ---
	// responses:
	//   '200':
	//     description: token
	//   '401':
	//     description: invalid credentials

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	token, err := s.s.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to login: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, TokenResponse{Token: token})
}

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts Posts CreatePost
	//
	// Create a post owned by the authenticated user.
	//
	// ---
	// responses:
	//   '201':
	//     description: Post
	//   '400':
	//     description: bad request

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content: this field may not be blank")
		return
	}

	post, err := s.s.CreatePost(r.Context(), mm.GetUser(r.Context()), req.Content)
	if err != nil {
		writeInternalError(w, fmt.Sprintf("failed to create post: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusCreated, toAPIPost(post))
}

func (s server) feed(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/feed Posts Feed
	//
	// Return posts authored by the authenticated user and everybody the user follows,
	// newest first.
	//
	// ---
	// responses:
	//   '200':
	//     description: Posts

	posts, err := s.s.Feed(r.Context(), mm.GetUser(r.Context()))
	if err != nil {
		writeInternalError(w, fmt.Sprintf("failed to compose feed: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, toAPIPosts(posts))
}

func (s server) userPosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/user/{username} Posts UserPosts
	//
	// Return posts by the given user, newest first.
	//
	// ---
	// responses:
	//   '200':
	//     description: Posts
	//   '404':
	//     description: user not found

	posts, err := s.s.UserPosts(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to list posts: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, toAPIPosts(posts))
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.s.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to get post: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) updatePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation PUT /posts/{id} Posts UpdatePost
	//
	// Replace post content, owner only.
	//
	// ---
	// responses:
	//   '200':
	//     description: Post
	//   '403':
	//     description: not an owner
	//   '404':
	//     description: post not found

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content: this field may not be blank")
		return
	}

	post, err := s.s.UpdatePost(r.Context(), mm.GetUser(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		s.writePostError(w, err, "failed to update post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.s.DeletePost(r.Context(), mm.GetUser(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writePostError(w, err, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) listComments(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{id}/comments Posts ListComments
	//
	// Return comments of a post, newest first.
	//
	// ---
	// responses:
	//   '200':
	//     description: Comments
	//   '404':
	//     description: post not found

	cc, err := s.s.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to list comments: %s", err.Error()))
		return
	}

	out := make([]*Comment, len(cc))
	for i, v := range cc {
		out[i] = toAPIComment(v)
	}

	writeOK(w, http.StatusOK, out)
}

func (s server) createComment(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/comment Posts CreateComment
	//
	// Comment on a post.
	//
	// ---
	// responses:
	//   '201':
	//     description: Comment
	//   '400':
	//     description: bad request
	//   '404':
	//     description: post not found

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content: this field may not be blank")
		return
	}

	c, err := s.s.CreateComment(r.Context(), mm.GetUser(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to create comment: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusCreated, toAPIComment(c))
}

func (s server) toggleLike(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/like Posts ToggleLike
	//
	// Like the post, or remove an existing like.
	//
	// ---
	// responses:
	//   '201':
	//     description: liked
	//   '204':
	//     description: unliked
	//   '404':
	//     description: post not found

	outcome, err := s.s.ToggleLike(r.Context(), mm.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to toggle like: %s", err.Error()))
		return
	}

	if outcome == entities.Liked {
		writeOK(w, http.StatusCreated, DetailResponse{Detail: "Liked"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) retweet(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/retweet Posts Retweet
	//
	// Create a retweet of the post, one per user per original.
	//
	// ---
	// responses:
	//   '201':
	//     description: Post
	//   '400':
	//     description: already retweeted
	//   '404':
	//     description: post not found

	post, err := s.s.Retweet(r.Context(), mm.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "you have already retweeted this post")
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to retweet: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusCreated, toAPIPost(post))
}

func (s server) share(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/share Posts Share
	//
	// Create a share of the post.
	//
	// ---
	// responses:
	//   '201':
	//     description: Post
	//   '404':
	//     description: post not found

	post, err := s.s.Share(r.Context(), mm.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to share: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusCreated, toAPIPost(post))
}

func (s server) listProfiles(w http.ResponseWriter, r *http.Request) {
	pp, err := s.s.ListProfiles(r.Context())
	if err != nil {
		writeInternalError(w, fmt.Sprintf("failed to list profiles: %s", err.Error()))
		return
	}

	out := make([]*Profile, len(pp))
	for i, v := range pp {
		out[i] = toAPIProfile(v)
	}

	writeOK(w, http.StatusOK, out)
}

func (s server) ownProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.s.GetProfile(r.Context(), mm.GetUser(r.Context()).Username)
	if err != nil {
		writeInternalError(w, fmt.Sprintf("failed to get profile: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, toAPIProfile(profile))
}

func (s server) updateProfile(w http.ResponseWriter, r *http.Request) {
	// swagger:operation PUT /profile/me Profiles UpdateProfile
	//
	// Partially update the authenticated user's profile.
	//
	// ---
	// responses:
	//   '200':
	//     description: Profile
	//   '400':
	//     description: bad request

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Username != nil && *req.Username == "" {
		writeError(w, http.StatusBadRequest, "username: this field may not be blank")
		return
	}
	if req.Email != nil && *req.Email == "" {
		writeError(w, http.StatusBadRequest, "email: this field may not be blank")
		return
	}

	profile, err := s.s.UpdateProfile(r.Context(), mm.GetUser(r.Context()), &storage.UpdateProfileParams{
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
		Photo:    req.Photo,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "username is already taken")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to update profile: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, toAPIProfile(profile))
}

func (s server) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.s.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to get profile: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, toAPIProfile(profile))
}

func (s server) follow(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /profile/{username}/follow Profiles Follow
	//
	// Follow the given user.
	//
	// ---
	// responses:
	//   '200':
	//     description: followed
	//   '400':
	//     description: self-follow
	//   '404':
	//     description: user not found

	username := chi.URLParam(r, "username")

	if err := s.s.Follow(r.Context(), mm.GetUser(r.Context()), username); err != nil {
		if errors.Is(err, service.ErrSelfFollow) {
			writeError(w, http.StatusBadRequest, "you can not follow yourself")
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to follow: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, DetailResponse{Detail: fmt.Sprintf("you are now following %s", username)})
}

func (s server) unfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := s.s.Unfollow(r.Context(), mm.GetUser(r.Context()), username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternalError(w, fmt.Sprintf("failed to unfollow: %s", err.Error()))
		return
	}

	writeOK(w, http.StatusOK, DetailResponse{Detail: fmt.Sprintf("you unfollowed %s", username)})
}

func (s server) writePostError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "you are not the owner of this post")
	default:
		writeInternalError(w, fmt.Sprintf("%s: %s", msg, err.Error()))
	}
}
