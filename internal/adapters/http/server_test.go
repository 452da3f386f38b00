package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"trustlens/internal/adapters/sqlite"
	"trustlens/internal/domain"
	"trustlens/internal/services/analysis"
	"trustlens/internal/services/blog"
	"trustlens/internal/services/reviews"
)

type stubAnalyzer struct {
	score int
	panic bool
}

func (s stubAnalyzer) Analyze(ctx context.Context, host string, now time.Time) (domain.Website, error) {
	if s.panic {
		panic("resolver exploded")
	}
	ip := "192.0.2.10"
	return domain.Website{
		Domain:           host,
		TrustScore:       s.score,
		IPAddress:        &ip,
		HasValidSSL:      true,
		PhishingRisk:     domain.RiskLow,
		MalwareRisk:      domain.RiskLow,
		ScamRisk:         domain.RiskMedium,
		BlacklistStatus:  domain.BlacklistUnknown,
		TechnicalDetails: map[string]any{"encryption": "TLS_AES_128_GCM_SHA256"},
	}, nil
}

type fixture struct {
	server *httptest.Server
	blog   *blog.Service
}

func newFixture(t *testing.T, a analysis.Analyzer) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.Memory)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC))
	blogs := blog.New(db)
	srv := New(
		analysis.New(db, db, a, analysis.Options{Clock: clock}),
		reviews.New(db, db, clock),
		blogs,
		nil,
	)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, blog: blogs}
}

func (f *fixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("%s %s: content type %q", method, path, ct)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Message string              `json:"message"`
	Error   []domain.FieldError `json:"error"`
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, stubAnalyzer{score: 70})
	var body map[string]string
	if code := f.do(t, http.MethodGet, "/healthz", "", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", code, body)
	}
}

func TestAnalyzeAndFetch(t *testing.T) {
	f := newFixture(t, stubAnalyzer{score: 70})

	var report domain.Report
	code := f.do(t, http.MethodPost, "/api/analyze", `{"url":"https://www.Example.com/login?x=1"}`, &report)
	if code != http.StatusOK {
		t.Fatalf("analyze status %d", code)
	}
	if report.Website.Domain != "example.com" || report.Website.ID == 0 {
		t.Errorf("unexpected website %+v", report.Website)
	}
	if report.OverallTrustScore != 70 || report.CommunityTrustScore != nil || report.ReviewStats.Total != 0 {
		t.Errorf("unexpected report %+v", report)
	}

	var fetched domain.Report
	if code := f.do(t, http.MethodGet, "/api/websites/WWW.example.com", "", &fetched); code != http.StatusOK {
		t.Fatalf("get status %d", code)
	}
	if fetched.Website.ID != report.Website.ID {
		t.Errorf("fetched id %d, expected %d", fetched.Website.ID, report.Website.ID)
	}
	if fetched.Website.TechnicalDetails["encryption"] != "TLS_AES_128_GCM_SHA256" {
		t.Errorf("technical details = %v", fetched.Website.TechnicalDetails)
	}

	var missing errorBody
	if code := f.do(t, http.MethodGet, "/api/websites/unknown-site.com", "", &missing); code != http.StatusNotFound {
		t.Errorf("missing website status %d", code)
	}
	if missing.Message != "Website not found" {
		t.Errorf("message = %q", missing.Message)
	}
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, stubAnalyzer{score: 70})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not a domain", `{"url":"not a domain"}`, "url"},
		{"empty", `{"url":""}`, "url"},
		{"malformed json", `{"url":`, "body"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var body errorBody
			if code := f.do(t, http.MethodPost, "/api/analyze", test.body, &body); code != http.StatusBadRequest {
				t.Fatalf("status %d", code)
			}
			if len(body.Error) == 0 || body.Error[0].Field != test.field {
				t.Errorf("errors = %+v, expected field %s", body.Error, test.field)
			}
		})
	}
}

func TestAnalyzeFailureRecord(t *testing.T) {
	f := newFixture(t, stubAnalyzer{panic: true})

	var report domain.Report
	if code := f.do(t, http.MethodPost, "/api/analyze", `{"url":"example.org"}`, &report); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	w := report.Website
	if w.TrustScore != 0 || w.PhishingRisk != domain.RiskUnknown || w.IPAddress != nil {
		t.Errorf("unexpected failure record %+v", w)
	}
}

func TestReviews(t *testing.T) {
	f := newFixture(t, stubAnalyzer{score: 60})

	var report domain.Report
	f.do(t, http.MethodPost, "/api/analyze", `{"url":"shop.example.net"}`, &report)
	base := "/api/websites/" + strconv.FormatInt(report.Website.ID, 10) + "/reviews"

	var created struct {
		Review domain.Review `json:"review"`
	}
	if code := f.do(t, http.MethodPost, base, `{"rating":5,"comment":"Fast delivery"}`, &created); code != http.StatusCreated {
		t.Fatalf("create status %d", code)
	}
	if !created.Review.IsAnonymous || created.Review.Rating != 5 || created.Review.ID == 0 {
		t.Errorf("unexpected review %+v", created.Review)
	}
	if code := f.do(t, http.MethodPost, base, `{"rating":1,"isAnonymous":false}`, &created); code != http.StatusCreated {
		t.Fatalf("create status %d", code)
	}
	if created.Review.IsAnonymous {
		t.Error("isAnonymous=false was ignored")
	}

	var list struct {
		Reviews []domain.Review `json:"reviews"`
	}
	if code := f.do(t, http.MethodGet, base, "", &list); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if len(list.Reviews) != 2 {
		t.Errorf("expected 2 reviews, got %d", len(list.Reviews))
	}

	var updated domain.Report
	f.do(t, http.MethodGet, "/api/websites/shop.example.net", "", &updated)
	if updated.ReviewStats.Total != 2 || updated.ReviewStats.SafePercentage != 50 || updated.ReviewStats.DangerousPercentage != 50 {
		t.Errorf("unexpected stats %+v", updated.ReviewStats)
	}
	if updated.CommunityTrustScore == nil || *updated.CommunityTrustScore != 0 {
		t.Errorf("community = %v, expected 0", updated.CommunityTrustScore)
	}
	// w = 0.02: round(60*0.98 + 0*0.02) = 59
	if updated.OverallTrustScore != 59 {
		t.Errorf("overall = %d, expected 59", updated.OverallTrustScore)
	}

	var bad errorBody
	if code := f.do(t, http.MethodPost, base, `{"rating":9}`, &bad); code != http.StatusBadRequest {
		t.Errorf("invalid rating status %d", code)
	}
	if len(bad.Error) == 0 || bad.Error[0].Field != "rating" {
		t.Errorf("errors = %+v", bad.Error)
	}

	var msg errorBody
	if code := f.do(t, http.MethodPost, "/api/websites/99999/reviews", `{"rating":3}`, &msg); code != http.StatusNotFound {
		t.Errorf("unknown website status %d", code)
	}
	if code := f.do(t, http.MethodGet, "/api/websites/abc/reviews", "", &msg); code != http.StatusBadRequest {
		t.Errorf("non-numeric id status %d", code)
	}
	if msg.Message != "Invalid website ID" {
		t.Errorf("message = %q", msg.Message)
	}
}

func TestBlog(t *testing.T) {
	f := newFixture(t, stubAnalyzer{score: 60})
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, slug := range []string{"first-post", "second-post", "third-post"} {
		_, err := f.blog.Create(ctx, domain.BlogPost{
			Title:       "Post about " + slug,
			Slug:        slug,
			Summary:     "A summary that is long enough",
			Content:     strings.Repeat("Staying safe online takes a little care. ", 2) + slug,
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("seed post: %v", err)
		}
	}

	var page struct {
		Posts []domain.BlogPost `json:"posts"`
	}
	if code := f.do(t, http.MethodGet, "/api/blog?limit=2&offset=1", "", &page); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if len(page.Posts) != 2 || page.Posts[0].Slug != "second-post" {
		t.Errorf("unexpected page %+v", page.Posts)
	}

	var single struct {
		Post domain.BlogPost `json:"post"`
	}
	if code := f.do(t, http.MethodGet, "/api/blog/first-post", "", &single); code != http.StatusOK || single.Post.Slug != "first-post" {
		t.Errorf("get post = %d %+v", code, single.Post)
	}

	var msg errorBody
	if code := f.do(t, http.MethodGet, "/api/blog/no-such-post", "", &msg); code != http.StatusNotFound || msg.Message != "Blog post not found" {
		t.Errorf("missing post = %d %q", code, msg.Message)
	}

	if code := f.do(t, http.MethodGet, "/api/blog/search/third?limit=5", "", &page); code != http.StatusOK {
		t.Fatalf("search status %d", code)
	}
	if len(page.Posts) != 1 || page.Posts[0].Slug != "third-post" {
		t.Errorf("search results %+v", page.Posts)
	}

	if code := f.do(t, http.MethodGet, "/api/blog?limit=abc", "", &msg); code != http.StatusBadRequest {
		t.Errorf("invalid limit status %d", code)
	}
}

