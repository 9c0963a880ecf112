//+build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	m "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/whatsup-net/whatsup/internal/storage"
)

var (
	db  *sql.DB
	ctx = context.Background()
	s   storage.Storage
)

func TestMain(m *testing.M) {
	shutdown := setup()

	s = New(db)

	code := m.Run()
	shutdown()
	os.Exit(code)
}

func setup() func() {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:12",
		Env:          map[string]string{"POSTGRES_PASSWORD": "root"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
	})
	if err != nil {
		logrus.WithError(err).Fatalf("failed to create container")
	}

	if err := c.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to start container")
	}

	host, err := c.Host(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to get host")
	}

	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		logrus.WithError(err).Fatal("failed to map port")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=postgres password=root sslmode=disable", host, port.Int())

	db, err = sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open connection")
	}

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	shutdownFn := func() {
		if c != nil {
			c.Terminate(ctx)
		}
	}

	migrate("postgres", "root", host, "postgres", port.Int())

	return shutdownFn
}

func migrate(username, password, hostname, dbname string, port int) {
	_, currFile, _, ok := runtime.Caller(0)
	if !ok {
		logrus.Fatal("failed to get current file location")
	}

	migrations := filepath.Join(currFile, "../../../../scripts/migrations/postgres/")

	migrator, err := m.New(
		fmt.Sprintf("file://%s", migrations),
		fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			username, password, hostname, port, dbname),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		logrus.WithError(err).Fatal("failed to migrate")
	}
}

func cleanup(t *testing.T) {
	_, err := db.ExecContext(ctx, `DELETE FROM users`)
	require.NoError(t, err)
}

func createUser(t *testing.T, id, username string) {
	require.NoError(t, s.CreateUser(ctx, &storage.CreateUserParams{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}))
}

func createPost(t *testing.T, id, owner, content string, createdAt time.Time) {
	require.NoError(t, s.CreatePost(ctx, &storage.CreatePostParams{
		ID:        id,
		Owner:     owner,
		Content:   content,
		CreatedAt: createdAt,
	}))
}

func TestPg_CreateUser(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")

	u, err := s.GetUserByUsername(ctx, "jack")
	require.NoError(t, err)
	require.Equal(t, "1", u.ID)
	require.Equal(t, "jack", u.Username)
	require.Equal(t, "jack@example.com", u.Email)

	// a profile row is created alongside
	p, err := s.GetProfile(ctx, "jack")
	require.NoError(t, err)
	require.Equal(t, "1", p.UserID)

	require.Equal(t, storage.ErrAlreadyExists, s.CreateUser(ctx, &storage.CreateUserParams{
		ID:           "2",
		Username:     "jack",
		Email:        "other@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}))
}

func TestPg_GetUserByUsername(t *testing.T) {
	defer cleanup(t)

	_, err := s.GetUserByUsername(ctx, "nobody")
	require.Equal(t, storage.ErrNotFound, err)
}

func TestPg_GetPasswordHash(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")

	hash, err := s.GetPasswordHash(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "hash", hash)
}

func TestPg_GetOrCreateToken(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")

	first, err := s.GetOrCreateToken(ctx, "1", "token-a")
	require.NoError(t, err)
	require.Equal(t, "token-a", first)

	// existing token wins over the proposed one
	second, err := s.GetOrCreateToken(ctx, "1", "token-b")
	require.NoError(t, err)
	require.Equal(t, "token-a", second)

	u, err := s.GetUserByToken(ctx, "token-a")
	require.NoError(t, err)
	require.Equal(t, "1", u.ID)

	_, err = s.GetUserByToken(ctx, "token-b")
	require.Equal(t, storage.ErrNotFound, err)
}

func TestPg_UpdateProfile(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")

	bio := "my bio"
	require.NoError(t, s.UpdateProfile(ctx, "1", &storage.UpdateProfileParams{Bio: &bio}))

	p, err := s.GetProfileByUserID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "my bio", p.Bio)
	require.Equal(t, "jack", p.Username)

	username := "john"
	require.NoError(t, s.UpdateProfile(ctx, "1", &storage.UpdateProfileParams{Username: &username}))

	p, err = s.GetProfileByUserID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "john", p.Username)
	require.Equal(t, "my bio", p.Bio)
}

func TestPg_UpdateProfile_takenUsername(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")

	username := "jack"
	require.Equal(t, storage.ErrAlreadyExists, s.UpdateProfile(ctx, "2", &storage.UpdateProfileParams{Username: &username}))
}

func TestPg_Follow(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")

	require.NoError(t, s.Follow(ctx, "1", "2"))
	// idempotent
	require.NoError(t, s.Follow(ctx, "1", "2"))

	following, err := s.ListFollowing(ctx, "1")
	require.NoError(t, err)
	require.Len(t, following, 1)
	require.Equal(t, "jill", following[0].Username)

	followers, err := s.ListFollowers(ctx, "2")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	require.Equal(t, "jack", followers[0].Username)

	require.Equal(t, storage.ErrNotFound, s.Follow(ctx, "1", "unknown"))
}

func TestPg_Unfollow(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")

	require.NoError(t, s.Follow(ctx, "1", "2"))
	require.NoError(t, s.Unfollow(ctx, "1", "2"))
	// idempotent
	require.NoError(t, s.Unfollow(ctx, "1", "2"))

	following, err := s.ListFollowing(ctx, "1")
	require.NoError(t, err)
	require.Empty(t, following)
}

func TestPg_CreatePost(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")

	timestamp := time.Now().UTC()
	createPost(t, "p1", "1", "hello", timestamp)

	p, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", p.ID)
	require.Equal(t, "1", p.OwnerID)
	require.Equal(t, "jack", p.Owner)
	require.Equal(t, "hello", p.Content)
	require.Equal(t, timestamp.Unix(), p.CreatedAt.Unix())
	require.Nil(t, p.Parent)
	require.Zero(t, p.Likes)
	require.Zero(t, p.Comments)
	require.Zero(t, p.Retweets)
}

func TestPg_GetPost(t *testing.T) {
	defer cleanup(t)

	_, err := s.GetPost(ctx, "unknown")
	require.Equal(t, storage.ErrNotFound, err)
}

func TestPg_UpdatePost(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createPost(t, "p1", "1", "hello", time.Now())

	require.NoError(t, s.UpdatePost(ctx, "p1", "edited"))

	p, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "edited", p.Content)

	require.Equal(t, storage.ErrNotFound, s.UpdatePost(ctx, "unknown", "edited"))
}

func TestPg_DeletePost(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")
	createPost(t, "p1", "1", "hello", time.Now())

	require.NoError(t, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c1",
		PostID:    "p1",
		Owner:     "2",
		Content:   "nice",
		CreatedAt: time.Now(),
	}))
	_, err := s.CreateLike(ctx, "2", "p1", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(ctx, "p1"))

	_, err = s.GetPost(ctx, "p1")
	require.Equal(t, storage.ErrNotFound, err)

	// comments and likes go with the post
	var count int
	require.NoError(t, sqlx.GetContext(ctx, sqlx.NewDb(db, "postgres"), &count,
		`SELECT COUNT(*) FROM comment WHERE post_id='p1'`))
	require.Zero(t, count)
	require.NoError(t, sqlx.GetContext(ctx, sqlx.NewDb(db, "postgres"), &count,
		`SELECT COUNT(*) FROM "like" WHERE post_id='p1'`))
	require.Zero(t, count)

	require.Equal(t, storage.ErrNotFound, s.DeletePost(ctx, "p1"))
}

func TestPg_ListPosts(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")
	createUser(t, "3", "joe")

	// jack follows jill but not joe
	require.NoError(t, s.Follow(ctx, "1", "2"))

	createPost(t, "p1", "1", "by jack", time.Unix(1, 0))
	createPost(t, "p2", "2", "by jill", time.Unix(2, 0))
	createPost(t, "p3", "3", "by joe", time.Unix(3, 0))
	createPost(t, "p4", "2", "by jill again", time.Unix(2, 0))

	owner := "jill"
	feedOwner := "1"

	tt := []struct {
		name string
		p    storage.ListPostsParams
		ids  []string
	}{
		{
			name: "owner",
			p:    storage.ListPostsParams{Owner: &owner},
			ids:  []string{"p4", "p2"},
		},
		{
			name: "feed",
			p:    storage.ListPostsParams{FeedOwner: &feedOwner},
			ids:  []string{"p4", "p2", "p1"},
		},
		{
			name: "all",
			p:    storage.ListPostsParams{},
			ids:  []string{"p3", "p4", "p2", "p1"},
		},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			pp, err := s.ListPosts(ctx, &tc.p)
			require.NoError(t, err)
			require.Len(t, pp, len(tc.ids))
			for i, v := range tc.ids {
				require.Equal(t, v, pp[i].ID)
			}
		})
	}
}

func TestPg_CreateLike(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")
	createPost(t, "p1", "1", "hello", time.Now())

	created, err := s.CreateLike(ctx, "2", "p1", time.Now())
	require.NoError(t, err)
	require.True(t, created)

	// second like is a no-op
	created, err = s.CreateLike(ctx, "2", "p1", time.Now())
	require.NoError(t, err)
	require.False(t, created)

	p, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 1, p.Likes)

	deleted, err := s.DeleteLike(ctx, "2", "p1")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = s.DeleteLike(ctx, "2", "p1")
	require.NoError(t, err)
	require.False(t, deleted)

	p, err = s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.Zero(t, p.Likes)

	_, err = s.CreateLike(ctx, "2", "unknown", time.Now())
	require.Equal(t, storage.ErrNotFound, err)
}

func TestPg_CreatePost_retweet(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")
	createPost(t, "p1", "1", "hello", time.Unix(1, 0))

	parent := "p1"
	retweet := storage.RetweetRepost

	require.NoError(t, s.CreatePost(ctx, &storage.CreatePostParams{
		ID:        "r1",
		Owner:     "2",
		Content:   "hello",
		Parent:    &parent,
		Repost:    &retweet,
		CreatedAt: time.Unix(2, 0),
	}))

	// one retweet per user per original
	require.Equal(t, storage.ErrAlreadyExists, s.CreatePost(ctx, &storage.CreatePostParams{
		ID:        "r2",
		Owner:     "2",
		Content:   "hello",
		Parent:    &parent,
		Repost:    &retweet,
		CreatedAt: time.Unix(3, 0),
	}))

	p, err := s.GetPost(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "jill", p.Owner)
	require.NotNil(t, p.Parent)
	assert.Equal(t, "p1", p.Parent.ID)
	assert.Equal(t, "jack", p.Parent.Owner)
	assert.Equal(t, "hello", p.Parent.Content)

	original, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 1, original.Retweets)
}

func TestPg_CreatePost_share(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")
	createPost(t, "p1", "1", "hello", time.Unix(1, 0))

	parent := "p1"
	share := storage.ShareRepost

	// shares are not limited per user
	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, s.CreatePost(ctx, &storage.CreatePostParams{
			ID:        id,
			Owner:     "2",
			Content:   "hello",
			Parent:    &parent,
			Repost:    &share,
			CreatedAt: time.Unix(2, 0),
		}))
	}

	original, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 2, original.Retweets)
}

func TestPg_CreateComment(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "jill")
	createPost(t, "p1", "1", "hello", time.Now())

	require.NoError(t, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c1",
		PostID:    "p1",
		Owner:     "2",
		Content:   "first",
		CreatedAt: time.Unix(1, 0),
	}))
	require.NoError(t, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c2",
		PostID:    "p1",
		Owner:     "1",
		Content:   "second",
		CreatedAt: time.Unix(2, 0),
	}))

	require.Equal(t, storage.ErrNotFound, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c3",
		PostID:    "unknown",
		Owner:     "1",
		Content:   "lost",
		CreatedAt: time.Now(),
	}))

	cc, err := s.ListComments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, cc, 2)
	assert.Equal(t, "c2", cc[0].ID)
	assert.Equal(t, "jack", cc[0].Owner)
	assert.Equal(t, "c1", cc[1].ID)
	assert.Equal(t, "jill", cc[1].Owner)

	p, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 2, p.Comments)
}

func TestPg_InTx(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createPost(t, "p1", "1", "hello", time.Now())

	// rollback on error leaves no trace
	wantErr := fmt.Errorf("boom")
	err := s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.CreateLike(ctx, "1", "p1", time.Now()); err != nil {
			return err
		}
		return wantErr
	})
	require.Equal(t, wantErr, err)

	p, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.Zero(t, p.Likes)

	require.NoError(t, s.InTx(ctx, func(tx storage.Storage) error {
		_, err := tx.CreateLike(ctx, "1", "p1", time.Now())
		return err
	}))

	p, err = s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 1, p.Likes)
}

func TestPg_ListProfiles(t *testing.T) {
	defer cleanup(t)

	createUser(t, "1", "jack")
	createUser(t, "2", "ann")

	pp, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, pp, 2)
	assert.Equal(t, "ann", pp[0].Username)
	assert.Equal(t, "jack", pp[1].Username)
}
