package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"

	"trustlens/internal/domain"
	"trustlens/internal/logging"
	"trustlens/internal/ports"
)

const requestTimeout = 60 * time.Second

type Server struct {
	analyses ports.Analyses
	reviews  ports.Reviews
	blog     ports.Blog
	errLog   logging.ErrLogger
}

func New(analyses ports.Analyses, reviews ports.Reviews, blog ports.Blog, errLog logging.ErrLogger) *Server {
	if errLog == nil {
		errLog = logging.Nop
	}
	return &Server{analyses: analyses, reviews: reviews, blog: blog, errLog: errLog}
}

// Routes returns the API router with middleware mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.getHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.postAnalyze)
		// {ref} is a domain on the record route and a numeric id below it
		r.Route("/websites/{ref}", func(r chi.Router) {
			r.Get("/", s.getWebsite)
			r.Get("/reviews", s.getReviews)
			r.Post("/reviews", s.postReview)
		})
		r.Get("/blog", s.getBlogPosts)
		r.Get("/blog/search/{query}", s.searchBlogPosts)
		r.Get("/blog/{slug}", s.getBlogPost)
	})
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	URL string `json:"url"`
}

func (s *Server) postAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	report, err := s.analyses.Analyze(r.Context(), body.URL)
	if err != nil {
		s.fail(w, r, err, "Website not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getWebsite(w http.ResponseWriter, r *http.Request) {
	var host string
	if err := bindPath("domain", chi.URLParam(r, "ref"), &host); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid domain")
		return
	}
	report, err := s.analyses.Get(r.Context(), host)
	if err != nil {
		s.fail(w, r, err, "Website not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getReviews(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := websiteIDParam(w, r)
	if !ok {
		return
	}
	reviews, err := s.reviews.List(r.Context(), websiteID)
	if err != nil {
		s.fail(w, r, err, "Website not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *Server) postReview(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := websiteIDParam(w, r)
	if !ok {
		return
	}
	var in ports.ReviewInput
	if !decodeBody(w, r, &in) {
		return
	}
	review, err := s.reviews.Create(r.Context(), websiteID, in)
	if err != nil {
		s.fail(w, r, err, "Website not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"review": review})
}

func (s *Server) getBlogPosts(w http.ResponseWriter, r *http.Request) {
	var limit, offset *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid offset")
		return
	}
	posts, err := s.blog.List(r.Context(), deref(limit), deref(offset))
	if err != nil {
		s.fail(w, r, err, "Blog post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) getBlogPost(w http.ResponseWriter, r *http.Request) {
	var slug string
	if err := bindPath("slug", chi.URLParam(r, "slug"), &slug); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid slug")
		return
	}
	post, err := s.blog.BySlug(r.Context(), slug)
	if err != nil {
		s.fail(w, r, err, "Blog post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (s *Server) searchBlogPosts(w http.ResponseWriter, r *http.Request) {
	var query string
	if err := bindPath("query", chi.URLParam(r, "query"), &query); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid query")
		return
	}
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	posts, err := s.blog.Search(r.Context(), query, deref(limit))
	if err != nil {
		s.fail(w, r, err, "Blog post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func websiteIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	if err := bindPath("websiteId", chi.URLParam(r, "ref"), &id); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid website ID")
		return 0, false
	}
	return id, true
}

func bindPath(name, value string, dest any) error {
	return runtime.BindStyledParameterWithOptions("simple", name, value, dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": []domain.FieldError{{Field: "body", Message: "Invalid JSON body"}},
		})
		return false
	}
	return true
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
