// Package server Whatsup
//
// The Whatsup is a social-feed backend which provides access to posts, comments, likes,
// follows and profiles.
//
//     Schemes: https
//     BasePath: /v1
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	mm "github.com/whatsup-net/whatsup/internal/middleware"
	"github.com/whatsup-net/whatsup/internal/service"
)

const profilesCacheTTL = time.Minute

type server struct {
	s service.Service
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, r chi.Router, timeout time.Duration, maxBodySize int64) {
	r.Use(
		mm.Logger,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		middleware.RequestSize(maxBodySize),
	)

	srv := server{
		s: s,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/register", srv.register)
		r.Post("/login", srv.login)

		r.Group(func(r chi.Router) {
			r.Use(mm.Auth(s))

			r.Route("/posts", func(r chi.Router) {
				r.Post("/", srv.createPost)
				r.Get("/feed", srv.feed)
				r.Get("/user/{username}", srv.userPosts)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", srv.getPost)
					r.Put("/", srv.updatePost)
					r.Patch("/", srv.updatePost)
					r.Delete("/", srv.deletePost)

					r.Get("/comments", srv.listComments)
					r.Post("/comment", srv.createComment)
					r.Post("/like", srv.toggleLike)
					r.Post("/retweet", srv.retweet)
					r.Post("/share", srv.share)
				})
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", mm.Cached(profilesCacheTTL, srv.listProfiles))
				r.Get("/me", srv.ownProfile)
				r.Put("/me", srv.updateProfile)
				r.Patch("/me", srv.updateProfile)
				r.Get("/{username}", srv.getProfile)
				r.Post("/{username}/follow", srv.follow)
				r.Delete("/{username}/follow", srv.unfollow)
			})
		})
	})
}
