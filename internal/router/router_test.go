package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/realtime"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/anonto42/inkpress/backend/internal/testdb"
	"github.com/anonto42/inkpress/backend/pkg/config"
	"github.com/anonto42/inkpress/backend/pkg/logger"
	"github.com/anonto42/inkpress/backend/validators"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type apiEnv struct {
	t     *testing.T
	e     *echo.Echo
	db    *gorm.DB
	posts *memPosts
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	db := testdb.Open(t)
	posts := newMemPosts()
	repos := &Repositories{
		Users:         repositories.NewPostgresUserRepository(db),
		Posts:         posts,
		PostRefs:      repositories.NewPostgresPostRefsRepository(db),
		Comments:      repositories.NewPostgresCommentRepository(db),
		Likes:         repositories.NewPostgresLikeRepository(db),
		Follows:       repositories.NewPostgresFollowRepository(db),
		Notifications: repositories.NewPostgresNotificationRepository(db),
	}
	cfg := &config.Config{JWTSecret: "router-test", RateLimitRPS: 1000, RateLimitBurst: 1000}

	e := echo.New()
	e.Validator = validators.NewValidator()
	SetupRoutes(e, cfg, repos, realtime.NewHub(logger.Discard()), nil, logger.Discard())
	return &apiEnv{t: t, e: e, db: db, posts: posts}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Message string          `json:"message"`
}

func (a *apiEnv) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

type account struct {
	ID    uint
	Token string
}

func (a *apiEnv) register(username string) account {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@inkpress.test",
		"password": "secret123",
	})
	if code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", username, code, env.Message)
	}
	data := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](a.t, env.Data)
	return account{ID: data.User.ID, Token: data.Token}
}

func (a *apiEnv) createPost(owner account, title string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/posts", owner.Token, map[string]any{"title": title, "body": "body of " + title})
	if code != http.StatusCreated {
		a.t.Fatalf("create post: %d", code)
	}
	data := decode[struct {
		Post models.Post `json:"post"`
	}](a.t, env.Data)
	return data.Post.ID.Hex()
}

func (a *apiEnv) inbox(user account) ([]models.NotificationView, int64) {
	a.t.Helper()
	code, env := a.do(http.MethodGet, "/api/v1/notifications", user.Token, nil)
	if code != http.StatusOK {
		a.t.Fatalf("list notifications: %d", code)
	}
	data := decode[struct {
		Notifications []models.NotificationView `json:"notifications"`
		UnreadCount   int64                     `json:"unreadCount"`
	}](a.t, env.Data)
	return data.Notifications, data.UnreadCount
}

func TestAuthFlow(t *testing.T) {
	api := newAPI(t)
	alice := api.register("alice")

	code, _ := api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice2", "email": "alice@inkpress.test", "password": "secret123",
	})
	if code != http.StatusConflict {
		t.Errorf("duplicate email: %d, want 409", code)
	}

	code, _ = api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@inkpress.test", "password": "wrong-pass"})
	if code != http.StatusUnauthorized {
		t.Errorf("bad password: %d, want 401", code)
	}
	code, env := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ALICE@inkpress.test", "password": "secret123"})
	if code != http.StatusOK {
		t.Fatalf("login: %d", code)
	}
	token := decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token

	code, env = api.do(http.MethodGet, "/api/v1/auth/profile", token, nil)
	if code != http.StatusOK {
		t.Fatalf("profile: %d", code)
	}
	if got := decode[struct {
		User models.User `json:"user"`
	}](t, env.Data).User; got.ID != alice.ID {
		t.Errorf("profile user = %d, want %d", got.ID, alice.ID)
	}

	if code, _ := api.do(http.MethodGet, "/api/v1/auth/profile", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous profile: %d, want 401", code)
	}
	if code, _ := api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "x"}); code != http.StatusBadRequest {
		t.Errorf("invalid register body: %d, want 400", code)
	}
	if code, _ := api.do(http.MethodPost, "/api/v1/auth/firebase-login", "", nil); code != http.StatusServiceUnavailable {
		t.Errorf("firebase login without firebase: %d, want 503", code)
	}
}

func TestLikeNotifiesPostAuthor(t *testing.T) {
	api := newAPI(t)
	alice, bob := api.register("alice"), api.register("bob")
	postID := api.createPost(bob, "first")

	code, _ := api.do(http.MethodPost, "/api/v1/likes/posts/"+postID, alice.Token, nil)
	if code != http.StatusCreated {
		t.Fatalf("like: %d", code)
	}
	if code, _ := api.do(http.MethodPost, "/api/v1/likes/posts/"+postID, alice.Token, nil); code != http.StatusConflict {
		t.Errorf("duplicate like: %d, want 409", code)
	}

	items, unread := api.inbox(bob)
	if len(items) != 1 || unread != 1 {
		t.Fatalf("bob inbox = %d items, %d unread", len(items), unread)
	}
	n := items[0]
	if n.Kind != models.KindLike || n.SenderID != alice.ID || n.PostID == nil || *n.PostID != postID ||
		n.Message != "alice liked your post" || n.SenderUsername != "alice" {
		t.Errorf("notification = %+v", n)
	}

	if p, _ := api.posts.GetPostByID(context.Background(), postID); p.LikesCount != 1 {
		t.Errorf("likes count = %d", p.LikesCount)
	}

	code, env := api.do(http.MethodGet, "/api/v1/likes/posts/"+postID+"/check", alice.Token, nil)
	if code != http.StatusOK || !decode[struct {
		Liked bool `json:"liked"`
	}](t, env.Data).Liked {
		t.Errorf("check like: %d %s", code, env.Data)
	}

	if code, _ := api.do(http.MethodDelete, "/api/v1/likes/posts/"+postID, alice.Token, nil); code != http.StatusNoContent {
		t.Errorf("unlike: %d", code)
	}
	if code, _ := api.do(http.MethodDelete, "/api/v1/likes/posts/"+postID, alice.Token, nil); code != http.StatusNotFound {
		t.Errorf("second unlike: %d, want 404", code)
	}
}

func TestSelfActionsDoNotNotify(t *testing.T) {
	api := newAPI(t)
	bob := api.register("bob")
	postID := api.createPost(bob, "mine")

	if code, _ := api.do(http.MethodPost, "/api/v1/likes/posts/"+postID, bob.Token, nil); code != http.StatusCreated {
		t.Fatalf("self like: %d", code)
	}
	if code, _ := api.do(http.MethodPost, "/api/v1/comments", bob.Token, map[string]any{"postId": postID, "body": "me again"}); code != http.StatusCreated {
		t.Fatalf("self comment: %d", code)
	}
	if code, _ := api.do(http.MethodPost, fmt.Sprintf("/api/v1/follows/%d", bob.ID), bob.Token, nil); code != http.StatusBadRequest {
		t.Errorf("self follow: %d, want 400", code)
	}

	if items, _ := api.inbox(bob); len(items) != 0 {
		t.Errorf("self actions produced %d notifications", len(items))
	}
}

func TestNotificationFailureDoesNotFailAction(t *testing.T) {
	api := newAPI(t)
	alice := api.register("alice")
	// author does not exist in Postgres, so the notification insert fails
	orphan := &models.Post{AuthorID: 9999, Title: "orphan", Body: "x"}
	_ = api.posts.CreatePost(context.Background(), orphan)

	code, _ := api.do(http.MethodPost, "/api/v1/likes/posts/"+orphan.ID.Hex(), alice.Token, nil)
	if code != http.StatusCreated {
		t.Errorf("like with failing notification: %d, want 201", code)
	}
}

func TestFollowFlow(t *testing.T) {
	api := newAPI(t)
	alice, bob, carol := api.register("alice"), api.register("bob"), api.register("carol")

	path := fmt.Sprintf("/api/v1/follows/%d", bob.ID)
	if code, _ := api.do(http.MethodPost, path, alice.Token, nil); code != http.StatusCreated {
		t.Fatalf("follow: %d", code)
	}
	if code, _ := api.do(http.MethodPost, path, alice.Token, nil); code != http.StatusConflict {
		t.Errorf("duplicate follow: %d, want 409", code)
	}
	if code, _ := api.do(http.MethodPost, "/api/v1/follows/4242", alice.Token, nil); code != http.StatusNotFound {
		t.Errorf("follow unknown user: %d, want 404", code)
	}

	items, _ := api.inbox(bob)
	if len(items) != 1 || items[0].Kind != models.KindFollow || items[0].Message != "alice started following you" ||
		items[0].PostID != nil || items[0].CommentID != nil {
		t.Fatalf("bob inbox = %+v", items)
	}

	code, env := api.do(http.MethodGet, fmt.Sprintf("/api/v1/follows/%d/followers", bob.ID), "", nil)
	followers := decode[struct {
		Users []models.UserCompact `json:"users"`
	}](t, env.Data).Users
	if code != http.StatusOK || len(followers) != 1 || followers[0].ID != alice.ID {
		t.Errorf("followers = %d %+v", code, followers)
	}

	code, env = api.do(http.MethodGet, "/api/v1/follows/suggestions/users", alice.Token, nil)
	suggestions := decode[struct {
		Users []models.SuggestedUser `json:"users"`
	}](t, env.Data).Users
	if code != http.StatusOK || len(suggestions) != 1 || suggestions[0].ID != carol.ID {
		t.Errorf("suggestions = %d %+v", code, suggestions)
	}

	code, env = api.do(http.MethodGet, "/api/v1/users/bob", alice.Token, nil)
	profile := decode[struct {
		User models.UserProfile `json:"user"`
	}](t, env.Data).User
	if code != http.StatusOK || !profile.IsFollowing || profile.FollowersCount != 1 {
		t.Errorf("profile = %d %+v", code, profile)
	}

	if code, _ := api.do(http.MethodDelete, path, alice.Token, nil); code != http.StatusOK {
		t.Errorf("unfollow: %d", code)
	}
}

func TestCommentNotificationAndPostDeleteCascade(t *testing.T) {
	api := newAPI(t)
	alice, bob := api.register("alice"), api.register("bob")
	postID := api.createPost(bob, "discuss")

	code, env := api.do(http.MethodPost, "/api/v1/comments", alice.Token, map[string]any{"postId": postID, "body": "nice one"})
	if code != http.StatusCreated {
		t.Fatalf("comment: %d", code)
	}
	comment := decode[struct {
		Comment models.Comment `json:"comment"`
	}](t, env.Data).Comment

	code, _ = api.do(http.MethodPost, "/api/v1/comments", bob.Token, map[string]any{"postId": postID, "body": "thanks", "parentId": comment.ID})
	if code != http.StatusCreated {
		t.Fatalf("reply: %d", code)
	}

	items, _ := api.inbox(bob)
	if len(items) != 1 {
		t.Fatalf("bob inbox has %d items, want 1", len(items))
	}
	n := items[0]
	if n.Kind != models.KindComment || n.RecipientID != bob.ID || n.SenderID != alice.ID || n.IsRead ||
		n.CommentID == nil || *n.CommentID != comment.ID || *n.PostID != postID {
		t.Errorf("notification = %+v", n)
	}

	code, env = api.do(http.MethodGet, "/api/v1/comments/post/"+postID, "", nil)
	tree := decode[struct {
		Comments []*models.CommentNode `json:"comments"`
		Total    int                   `json:"total"`
	}](t, env.Data)
	if code != http.StatusOK || tree.Total != 2 || len(tree.Comments) != 1 || len(tree.Comments[0].Replies) != 1 {
		t.Errorf("comment tree = %d %+v", code, tree)
	}

	if code, _ := api.do(http.MethodDelete, "/api/v1/posts/"+postID, alice.Token, nil); code != http.StatusForbidden {
		t.Errorf("delete someone else's post: %d, want 403", code)
	}
	if code, _ := api.do(http.MethodDelete, "/api/v1/posts/"+postID, bob.Token, nil); code != http.StatusNoContent {
		t.Fatalf("delete post: %d", code)
	}
	if items, _ := api.inbox(bob); len(items) != 0 {
		t.Errorf("notifications survived post delete: %+v", items)
	}
	var left int64
	api.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&left)
	if left != 0 {
		t.Errorf("%d comments survived post delete", left)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	api := newAPI(t)
	alice, bob, carol := api.register("alice"), api.register("bob"), api.register("carol")
	for _, follower := range []account{alice, carol} {
		if code, _ := api.do(http.MethodPost, fmt.Sprintf("/api/v1/follows/%d", bob.ID), follower.Token, nil); code != http.StatusCreated {
			t.Fatalf("follow: %d", code)
		}
	}

	items, unread := api.inbox(bob)
	if len(items) != 2 || unread != 2 {
		t.Fatalf("inbox = %d items, %d unread", len(items), unread)
	}
	if items[0].SenderID != carol.ID {
		t.Errorf("newest notification from %d, want carol", items[0].SenderID)
	}

	readPath := fmt.Sprintf("/api/v1/notifications/%d/read", items[0].ID)
	if code, _ := api.do(http.MethodPut, readPath, alice.Token, nil); code != http.StatusNotFound {
		t.Errorf("foreign mark-read: %d, want 404", code)
	}
	for i := 0; i < 2; i++ {
		if code, _ := api.do(http.MethodPut, readPath, bob.Token, nil); code != http.StatusOK {
			t.Errorf("mark-read #%d: %d", i+1, code)
		}
	}
	if code, _ := api.do(http.MethodPut, "/api/v1/notifications/abc/read", bob.Token, nil); code != http.StatusBadRequest {
		t.Errorf("bad id: %d, want 400", code)
	}

	code, env := api.do(http.MethodGet, "/api/v1/notifications/unread-count", bob.Token, nil)
	if count := decode[struct {
		Count int64 `json:"count"`
	}](t, env.Data).Count; code != http.StatusOK || count != 1 {
		t.Errorf("unread-count = %d, %d", code, count)
	}

	code, env = api.do(http.MethodPut, "/api/v1/notifications/mark-all-read", bob.Token, nil)
	if updated := decode[struct {
		UpdatedCount int64 `json:"updatedCount"`
	}](t, env.Data).UpdatedCount; code != http.StatusOK || updated != 1 {
		t.Errorf("mark-all-read = %d, %d", code, updated)
	}
	if _, unread := api.inbox(bob); unread != 0 {
		t.Errorf("unread after mark-all = %d", unread)
	}

	code, env = api.do(http.MethodGet, "/api/v1/notifications?page=2&limit=1", bob.Token, nil)
	if code != http.StatusOK || env.Meta["currentPage"] != float64(2) || env.Meta["totalItems"] != float64(2) {
		t.Errorf("paged list meta = %d %+v", code, env.Meta)
	}

	if code, _ := api.do(http.MethodGet, "/api/v1/notifications", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous inbox: %d, want 401", code)
	}
}

func TestPostsAndDrafts(t *testing.T) {
	api := newAPI(t)
	alice, bob := api.register("alice"), api.register("bob")
	api.createPost(alice, "published")

	code, env := api.do(http.MethodPost, "/api/v1/posts", alice.Token, map[string]any{"title": "secret", "body": "wip", "isDraft": true})
	if code != http.StatusCreated {
		t.Fatalf("create draft: %d", code)
	}
	draftID := decode[struct {
		Post models.Post `json:"post"`
	}](t, env.Data).Post.ID.Hex()

	if code, _ := api.do(http.MethodGet, "/api/v1/posts/"+draftID, bob.Token, nil); code != http.StatusNotFound {
		t.Errorf("draft visible to others: %d", code)
	}
	if code, _ := api.do(http.MethodGet, "/api/v1/posts/"+draftID, alice.Token, nil); code != http.StatusOK {
		t.Errorf("draft hidden from author: %d", code)
	}

	_, env = api.do(http.MethodGet, "/api/v1/posts", "", nil)
	if env.Meta["totalItems"] != float64(1) {
		t.Errorf("public listing meta = %+v", env.Meta)
	}
	_, env = api.do(http.MethodGet, "/api/v1/posts/drafts", alice.Token, nil)
	if env.Meta["totalItems"] != float64(1) {
		t.Errorf("drafts meta = %+v", env.Meta)
	}

	if code, _ := api.do(http.MethodPost, fmt.Sprintf("/api/v1/follows/%d", alice.ID), bob.Token, nil); code != http.StatusCreated {
		t.Fatal("follow failed")
	}
	_, env = api.do(http.MethodGet, "/api/v1/posts/feed", bob.Token, nil)
	feed := decode[struct {
		Posts []struct {
			Title  string             `json:"title"`
			Author models.UserCompact `json:"author"`
		} `json:"posts"`
	}](t, env.Data).Posts
	if len(feed) != 1 || feed[0].Title != "published" || feed[0].Author.Username != "alice" {
		t.Errorf("feed = %+v", feed)
	}

	if code, _ := api.do(http.MethodGet, "/api/v1/posts/not-an-id", "", nil); code != http.StatusBadRequest {
		t.Errorf("malformed id: %d, want 400", code)
	}
}
