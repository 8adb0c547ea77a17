package router

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memPosts is an in-memory PostRepository.
type memPosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemPosts() *memPosts {
	return &memPosts{posts: map[string]*models.Post{}}
}

func (m *memPosts) CreatePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	m.posts[post.ID.Hex()] = &cp
	return nil
}

func (m *memPosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repositories.ErrInvalidPostID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) ListPosts(_ context.Context, f models.PostFilter, skip, limit int64) ([]models.Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	authors := map[uint]bool{}
	for _, id := range f.AuthorIDs {
		authors[id] = true
	}
	var out []models.Post
	for _, p := range m.posts {
		switch {
		case f.DraftsOnly && !p.IsDraft,
			!f.DraftsOnly && !f.IncludeDrafts && p.IsDraft,
			f.AuthorID != 0 && p.AuthorID != f.AuthorID,
			f.AuthorID == 0 && f.AuthorIDs != nil && !authors[p.AuthorID],
			f.Search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Body), strings.ToLower(f.Search)):
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if skip >= total {
		return []models.Post{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return out[skip:end], total, nil
}

func (m *memPosts) UpdatePost(_ context.Context, id string, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	cp := *post
	m.posts[id] = &cp
	return nil
}

func (m *memPosts) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) CountPostsByAuthor(_ context.Context, authorID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.posts {
		if p.AuthorID == authorID && !p.IsDraft {
			n++
		}
	}
	return n, nil
}

func (m *memPosts) IncrementLikesCount(_ context.Context, postID string, delta int) error {
	return m.bump(postID, func(p *models.Post) { p.LikesCount += delta })
}

func (m *memPosts) IncrementCommentsCount(_ context.Context, postID string, delta int) error {
	return m.bump(postID, func(p *models.Post) { p.CommentsCount += delta })
}

func (m *memPosts) bump(postID string, fn func(*models.Post)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(p)
	return nil
}
