package ports

import (
	"context"
	"time"

	"trustlens/internal/domain"
)

// WebsiteRepository stores analysis records keyed by normalized domain.
type WebsiteRepository interface {
	GetByDomain(ctx context.Context, host string) (site domain.Website, found bool, err error)
	GetByID(ctx context.Context, id int64) (site domain.Website, found bool, err error)
	// Upsert creates the record or replaces every field of the existing one,
	// including LastAnalyzed.
	Upsert(ctx context.Context, site domain.Website) (domain.Website, error)
	// ListStale returns domains last analyzed before the cutoff, oldest first.
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// ReviewRepository stores community reviews. Reviews are never updated.
type ReviewRepository interface {
	ListByWebsite(ctx context.Context, websiteID int64) ([]domain.Review, error)
	Ratings(ctx context.Context, websiteID int64) ([]int, error)
	CreateReview(ctx context.Context, r domain.Review) (domain.Review, error)
}

// BlogRepository serves blog posts, newest first.
type BlogRepository interface {
	ListPosts(ctx context.Context, limit, offset int) ([]domain.BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (post domain.BlogPost, found bool, err error)
	SearchPosts(ctx context.Context, query string, limit int) ([]domain.BlogPost, error)
	CreatePost(ctx context.Context, p domain.BlogPost) (domain.BlogPost, error)
}

// UserRepository is only used by the seed command.
type UserRepository interface {
	GetOrCreateUser(ctx context.Context, username, password string) (domain.User, error)
}

// Store is everything a storage adapter provides.
type Store interface {
	WebsiteRepository
	ReviewRepository
	BlogRepository
	UserRepository
	Close()
}
