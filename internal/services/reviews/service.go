package reviews

import (
	"context"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"trustlens/internal/domain"
	"trustlens/internal/ports"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

type Service struct {
	websites ports.WebsiteRepository
	reviews  ports.ReviewRepository
	clock    clockwork.Clock
}

func New(websites ports.WebsiteRepository, reviews ports.ReviewRepository, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{websites: websites, reviews: reviews, clock: clock}
}

// List returns the website's reviews, newest first.
func (s *Service) List(ctx context.Context, websiteID int64) ([]domain.Review, error) {
	reviews, err := s.reviews.ListByWebsite(ctx, websiteID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}

// Create records an anonymous review unless the input explicitly opts out.
func (s *Service) Create(ctx context.Context, websiteID int64, in ports.ReviewInput) (domain.Review, error) {
	if err := Validate(in); err != nil {
		return domain.Review{}, err
	}

	_, found, err := s.websites.GetByID(ctx, websiteID)
	if err != nil {
		return domain.Review{}, errors.Wrap(err, "load website")
	}
	if !found {
		return domain.Review{}, domain.ErrNotFound
	}

	anonymous := true
	if in.IsAnonymous != nil {
		anonymous = *in.IsAnonymous
	}
	review, err := s.reviews.CreateReview(ctx, domain.Review{
		WebsiteID:   websiteID,
		Rating:      in.Rating,
		Comment:     in.Comment,
		IsAnonymous: anonymous,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		return domain.Review{}, errors.Wrap(err, "create review")
	}
	return review, nil
}

func Validate(in ports.ReviewInput) error {
	verr := &domain.ValidationError{}
	if in.Rating < MinRating || in.Rating > MaxRating {
		verr.Add("rating", "Rating must be between 1 and 5")
	}
	if in.Comment != nil && utf8.RuneCountInString(*in.Comment) > MaxCommentLength {
		verr.Add("comment", "Comment must be at most 500 characters")
	}
	return verr.OrNil()
}
