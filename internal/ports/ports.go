package ports

import (
	"context"

	"trustlens/internal/domain"
)

// Analyses runs or reuses domain analyses.
type Analyses interface {
	Analyze(ctx context.Context, rawURL string) (domain.Report, error)
	Get(ctx context.Context, host string) (domain.Report, error)
}

// Reviews lists and records community reviews.
type Reviews interface {
	List(ctx context.Context, websiteID int64) ([]domain.Review, error)
	Create(ctx context.Context, websiteID int64, in ReviewInput) (domain.Review, error)
}

type ReviewInput struct {
	Rating      int     `json:"rating"`
	Comment     *string `json:"comment"`
	IsAnonymous *bool   `json:"isAnonymous"`
}

// Blog serves read-only blog content.
type Blog interface {
	List(ctx context.Context, limit, offset int) ([]domain.BlogPost, error)
	BySlug(ctx context.Context, slug string) (domain.BlogPost, error)
	Search(ctx context.Context, query string, limit int) ([]domain.BlogPost, error)
}
