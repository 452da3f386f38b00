package blog

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"trustlens/internal/domain"
	"trustlens/internal/ports"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Service struct {
	posts ports.BlogRepository
}

func New(posts ports.BlogRepository) *Service { return &Service{posts: posts} }

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.BlogPost, error) {
	if offset < 0 {
		offset = 0
	}
	posts, err := s.posts.ListPosts(ctx, clampLimit(limit), offset)
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return nonNil(posts), nil
}

func (s *Service) BySlug(ctx context.Context, slug string) (domain.BlogPost, error) {
	post, found, err := s.posts.GetPostBySlug(ctx, slug)
	if err != nil {
		return domain.BlogPost{}, errors.Wrap(err, "load post")
	}
	if !found {
		return domain.BlogPost{}, domain.ErrNotFound
	}
	return post, nil
}

// Search matches query against title, summary and content.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.BlogPost, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.BlogPost{}, nil
	}
	posts, err := s.posts.SearchPosts(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "search posts")
	}
	return nonNil(posts), nil
}

// Create validates and stores a post. Only the seed command publishes posts.
func (s *Service) Create(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error) {
	if err := Validate(post); err != nil {
		return domain.BlogPost{}, err
	}
	created, err := s.posts.CreatePost(ctx, post)
	if err != nil {
		return domain.BlogPost{}, errors.Wrapf(err, "create post %s", post.Slug)
	}
	return created, nil
}

func Validate(p domain.BlogPost) error {
	verr := &domain.ValidationError{}
	minLen := func(field, value string, n int, msg string) {
		if len([]rune(strings.TrimSpace(value))) < n {
			verr.Add(field, msg)
		}
	}
	minLen("title", p.Title, 5, "Title must be at least 5 characters")
	minLen("slug", p.Slug, 5, "Slug must be at least 5 characters")
	minLen("content", p.Content, 50, "Content must be at least 50 characters")
	minLen("summary", p.Summary, 20, "Summary must be at least 20 characters")
	return verr.OrNil()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func nonNil(posts []domain.BlogPost) []domain.BlogPost {
	if posts == nil {
		return []domain.BlogPost{}
	}
	return posts
}
