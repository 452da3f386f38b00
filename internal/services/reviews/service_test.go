package reviews

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"trustlens/internal/domain"
	"trustlens/internal/ports"
)

type fakeWebsites struct{ ids map[int64]bool }

func (f fakeWebsites) GetByDomain(ctx context.Context, host string) (domain.Website, bool, error) {
	return domain.Website{}, false, nil
}

func (f fakeWebsites) GetByID(ctx context.Context, id int64) (domain.Website, bool, error) {
	return domain.Website{ID: id}, f.ids[id], nil
}

func (f fakeWebsites) Upsert(ctx context.Context, site domain.Website) (domain.Website, error) {
	return site, nil
}

func (f fakeWebsites) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	return nil, nil
}

type fakeReviews struct{ created []domain.Review }

func (f *fakeReviews) ListByWebsite(ctx context.Context, websiteID int64) ([]domain.Review, error) {
	var out []domain.Review
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].WebsiteID == websiteID {
			out = append(out, f.created[i])
		}
	}
	return out, nil
}

func (f *fakeReviews) Ratings(ctx context.Context, websiteID int64) ([]int, error) { return nil, nil }

func (f *fakeReviews) CreateReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	r.ID = int64(len(f.created) + 1)
	f.created = append(f.created, r)
	return r, nil
}

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	store := &fakeReviews{}
	svc := New(fakeWebsites{ids: map[int64]bool{1: true}}, store, clock)

	review, err := svc.Create(context.Background(), 1, ports.ReviewInput{Rating: 4, Comment: ptr("Looks legit")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !review.IsAnonymous {
		t.Error("reviews default to anonymous")
	}
	if review.UserID != nil {
		t.Error("reviews carry no user")
	}
	if !review.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %s", review.CreatedAt)
	}

	review, err = svc.Create(context.Background(), 1, ports.ReviewInput{Rating: 2, IsAnonymous: ptr(false)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if review.IsAnonymous {
		t.Error("explicit isAnonymous=false must be honored")
	}

	list, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Rating != 2 {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(fakeWebsites{ids: map[int64]bool{1: true}}, &fakeReviews{}, nil)

	tests := []struct {
		name  string
		input ports.ReviewInput
		field string
	}{
		{"rating too low", ports.ReviewInput{Rating: 0}, "rating"},
		{"rating too high", ports.ReviewInput{Rating: 6}, "rating"},
		{"comment too long", ports.ReviewInput{Rating: 3, Comment: ptr(strings.Repeat("x", 501))}, "comment"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, test.input)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Fields[0].Field != test.field {
				t.Errorf("field = %s, expected %s", verr.Fields[0].Field, test.field)
			}
		})
	}

	if err := Validate(ports.ReviewInput{Rating: 5, Comment: ptr(strings.Repeat("é", 500))}); err != nil {
		t.Errorf("500 characters must be accepted: %v", err)
	}
}

func TestCreateUnknownWebsite(t *testing.T) {
	svc := New(fakeWebsites{}, &fakeReviews{}, nil)
	_, err := svc.Create(context.Background(), 42, ports.ReviewInput{Rating: 3})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListEmpty(t *testing.T) {
	svc := New(fakeWebsites{}, &fakeReviews{}, nil)
	list, err := svc.List(context.Background(), 7)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", list)
	}
}
