// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/whatsup-net/whatsup/internal/entities"
	"github.com/whatsup-net/whatsup/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx within tx")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type profileDTO struct {
	UserID    string    `db:"user_id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Bio       string    `db:"bio"`
	Photo     string    `db:"photo"`
	CreatedAt time.Time `db:"created_at"`
}

type postDTO struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Owner     string    `db:"owner"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`

	ParentID        *string    `db:"parent_id"`
	ParentOwner     *string    `db:"parent_owner"`
	ParentContent   *string    `db:"parent_content"`
	ParentCreatedAt *time.Time `db:"parent_created_at"`

	Likes    uint32 `db:"likes_count"`
	Comments uint32 `db:"comments_count"`
	Retweets uint32 `db:"retweets_count"`
}

type commentDTO struct {
	ID        string    `db:"id"`
	PostID    string    `db:"post_id"`
	Owner     string    `db:"owner"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

const postColumns = `
		p.id, p.owner_id, u.username AS owner, p.content, p.created_at,
		pp.id AS parent_id, pu.username AS parent_owner, pp.content AS parent_content, pp.created_at AS parent_created_at,
		(SELECT COUNT(*) FROM "like" l WHERE l.post_id = p.id) AS likes_count,
		(SELECT COUNT(*) FROM comment c WHERE c.post_id = p.id) AS comments_count,
		(SELECT COUNT(*) FROM post r WHERE r.parent_id = p.id) AS retweets_count
`

const postJoins = `
	FROM post p
	JOIN users u ON u.id = p.owner_id
	LEFT JOIN post pp ON pp.id = p.parent_id
	LEFT JOIN users pu ON pu.id = pp.owner_id
`

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) CreateUser(ctx context.Context, p *storage.CreateUserParams) error {
	user := userDTO{
		ID:           p.ID,
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt.UTC(),
	}

	if _, err := sqlx.NamedExecContext(ctx, s.ext,
		`
			INSERT INTO users(id, username, email, password_hash, created_at)
			VALUES(:id, :username, :email, :password_hash, :created_at)
		`, user,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == uniqueViolation {
			return storage.ErrAlreadyExists
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	if _, err := s.ext.ExecContext(ctx, `INSERT INTO profile(user_id) VALUES($1)`, p.ID); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	var u userDTO
	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1
		`, username,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	if err := sqlx.GetContext(ctx, s.ext, &hash, `SELECT password_hash FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}

		return "", fmt.Errorf("failed to query: %w", err)
	}

	return hash, nil
}

func (s pg) GetOrCreateToken(ctx context.Context, userID, token string) (string, error) {
	if _, err := s.ext.ExecContext(ctx,
		`INSERT INTO token(user_id, token) VALUES($1, $2) ON CONFLICT(user_id) DO NOTHING`,
		userID, token,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return "", storage.ErrNotFound
		}

		return "", fmt.Errorf("failed to exec: %w", err)
	}

	var out string
	if err := sqlx.GetContext(ctx, s.ext, &out, `SELECT token FROM token WHERE user_id = $1`, userID); err != nil {
		return "", fmt.Errorf("failed to query: %w", err)
	}

	return out, nil
}

func (s pg) GetUserByToken(ctx context.Context, token string) (*entities.User, error) {
	var u userDTO
	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT u.id, u.username, u.email, u.password_hash, u.created_at
			FROM users u JOIN token t ON t.user_id = u.id
			WHERE t.token = $1
		`, token,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

const profileColumns = `
		pr.user_id, u.username, u.email, pr.bio, pr.photo, u.created_at
`

func (s pg) GetProfile(ctx context.Context, username string) (*entities.Profile, error) {
	var p profileDTO
	if err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT `+profileColumns+` FROM profile pr JOIN users u ON u.id = pr.user_id WHERE u.username = $1`,
		username,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toProfile(&p), nil
}

func (s pg) GetProfileByUserID(ctx context.Context, userID string) (*entities.Profile, error) {
	var p profileDTO
	if err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT `+profileColumns+` FROM profile pr JOIN users u ON u.id = pr.user_id WHERE pr.user_id = $1`,
		userID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toProfile(&p), nil
}

func (s pg) ListProfiles(ctx context.Context) ([]*entities.Profile, error) {
	var pp []*profileDTO
	if err := sqlx.SelectContext(ctx, s.ext, &pp,
		`SELECT `+profileColumns+` FROM profile pr JOIN users u ON u.id = pr.user_id ORDER BY u.username`,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Profile, len(pp))
	for i, v := range pp {
		out[i] = toProfile(v)
	}

	return out, nil
}

func (s pg) UpdateProfile(ctx context.Context, userID string, p *storage.UpdateProfileParams) error {
	if p.Username != nil || p.Email != nil {
		if _, err := s.ext.ExecContext(ctx,
			`UPDATE users SET username = COALESCE($2, username), email = COALESCE($3, email) WHERE id = $1`,
			userID, p.Username, p.Email,
		); err != nil {
			if err, ok := err.(*pq.Error); ok && err.Code == uniqueViolation {
				return storage.ErrAlreadyExists
			}

			return fmt.Errorf("failed to exec: %w", err)
		}
	}

	res, err := s.ext.ExecContext(ctx,
		`UPDATE profile SET bio = COALESCE($2, bio), photo = COALESCE($3, photo) WHERE user_id = $1`,
		userID, p.Bio, p.Photo,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) Follow(ctx context.Context, follower, followee string) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO follow(follower, followee) VALUES($1, $2) ON CONFLICT DO NOTHING
		`, follower, followee,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) Unfollow(ctx context.Context, follower, followee string) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			DELETE FROM follow WHERE follower=$1 AND followee=$2
		`, follower, followee,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) ListFollowing(ctx context.Context, userID string) ([]*entities.ProfileRef, error) {
	return s.listRefs(ctx, `
			SELECT u.username, pr.photo
			FROM follow f
			JOIN users u ON u.id = f.followee
			JOIN profile pr ON pr.user_id = u.id
			WHERE f.follower = $1
		`, userID)
}

func (s pg) ListFollowers(ctx context.Context, userID string) ([]*entities.ProfileRef, error) {
	return s.listRefs(ctx, `
			SELECT u.username, pr.photo
			FROM follow f
			JOIN users u ON u.id = f.follower
			JOIN profile pr ON pr.user_id = u.id
			WHERE f.followee = $1
		`, userID)
}

func (s pg) listRefs(ctx context.Context, query, userID string) ([]*entities.ProfileRef, error) {
	var rr []*struct {
		Username string `db:"username"`
		Photo    string `db:"photo"`
	}

	if err := sqlx.SelectContext(ctx, s.ext, &rr, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.ProfileRef, len(rr))
	for i, v := range rr {
		out[i] = &entities.ProfileRef{
			Username: v.Username,
			Photo:    v.Photo,
		}
	}

	return out, nil
}

func (s pg) CreatePost(ctx context.Context, p *storage.CreatePostParams) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO post(id, owner_id, content, parent_id, repost, created_at)
			VALUES($1, $2, $3, $4, $5, $6)
		`, p.ID, p.Owner, p.Content, p.Parent, p.Repost, p.CreatedAt.UTC(),
	); err != nil {
		if err, ok := err.(*pq.Error); ok {
			switch err.Code {
			case uniqueViolation:
				return storage.ErrAlreadyExists
			case foreignKeyViolation:
				return storage.ErrNotFound
			}
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	var p postDTO
	if err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT `+postColumns+postJoins+` WHERE p.id = $1`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toPost(&p), nil
}

func (s pg) ListPosts(ctx context.Context, params *storage.ListPostsParams) ([]*entities.Post, error) {
	where := ""
	args := make([]interface{}, 0, 1)

	switch {
	case params.Owner != nil:
		where = `WHERE u.username = $1`
		args = append(args, *params.Owner)
	case params.FeedOwner != nil:
		where = `WHERE p.owner_id = $1 OR p.owner_id IN (SELECT followee FROM follow WHERE follower = $1)`
		args = append(args, *params.FeedOwner)
	}

	var pp []*postDTO
	if err := sqlx.SelectContext(ctx, s.ext, &pp,
		`SELECT `+postColumns+postJoins+where+` ORDER BY p.created_at DESC, p.id DESC`,
		args...,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Post, len(pp))
	for i, v := range pp {
		out[i] = toPost(v)
	}

	return out, nil
}

func (s pg) UpdatePost(ctx context.Context, id, content string) error {
	res, err := s.ext.ExecContext(ctx, `UPDATE post SET content=$2 WHERE id=$1`, id, content)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeletePost(ctx context.Context, id string) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM post WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreateComment(ctx context.Context, p *storage.CreateCommentParams) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO comment(id, post_id, owner_id, content, created_at)
			VALUES($1, $2, $3, $4, $5)
		`, p.ID, p.PostID, p.Owner, p.Content, p.CreatedAt.UTC(),
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) ListComments(ctx context.Context, postID string) ([]*entities.Comment, error) {
	var cc []*commentDTO
	if err := sqlx.SelectContext(ctx, s.ext, &cc, `
			SELECT c.id, c.post_id, u.username AS owner, c.content, c.created_at
			FROM comment c
			JOIN users u ON u.id = c.owner_id
			WHERE c.post_id = $1
			ORDER BY c.created_at DESC, c.id DESC
		`, postID,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Comment, len(cc))
	for i, v := range cc {
		out[i] = &entities.Comment{
			ID:        v.ID,
			PostID:    v.PostID,
			Owner:     v.Owner,
			Content:   v.Content,
			CreatedAt: v.CreatedAt,
		}
	}

	return out, nil
}

func (s pg) CreateLike(ctx context.Context, userID, postID string, timestamp time.Time) (bool, error) {
	res, err := s.ext.ExecContext(ctx, `
			INSERT INTO "like"(post_id, owner_id, created_at) VALUES($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, postID, userID, timestamp.UTC(),
	)
	if err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return false, storage.ErrNotFound
		}

		return false, fmt.Errorf("failed to exec: %w", err)
	}

	c, _ := res.RowsAffected()

	return c == 1, nil
}

func (s pg) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM "like" WHERE post_id=$1 AND owner_id=$2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to exec: %w", err)
	}

	c, _ := res.RowsAffected()

	return c == 1, nil
}

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func toUser(u *userDTO) *entities.User {
	return &entities.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toProfile(p *profileDTO) *entities.Profile {
	return &entities.Profile{
		UserID:    p.UserID,
		Username:  p.Username,
		Email:     p.Email,
		Bio:       p.Bio,
		Photo:     p.Photo,
		CreatedAt: p.CreatedAt,
	}
}

func toPost(p *postDTO) *entities.Post {
	out := entities.Post{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Owner:     p.Owner,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		Likes:     p.Likes,
		Comments:  p.Comments,
		Retweets:  p.Retweets,
	}

	if p.ParentID != nil {
		out.Parent = &entities.ParentPost{
			ID:        *p.ParentID,
			Owner:     *p.ParentOwner,
			Content:   *p.ParentContent,
			CreatedAt: *p.ParentCreatedAt,
		}
	}

	return &out
}
