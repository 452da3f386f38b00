// Command seed loads demo websites, reviews and blog posts into the store.
package main

import (
	"context"
	_ "embed"
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v2"

	"trustlens/internal/adapters/store"
	"trustlens/internal/config"
	"trustlens/internal/domain"
	"trustlens/internal/logging"
	"trustlens/internal/ports"
	"trustlens/internal/services/blog"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
	Websites []seedWebsite `yaml:"websites"`
	Reviews  []seedReview  `yaml:"reviews"`
	Posts    []seedPost    `yaml:"posts"`
}

type seedWebsite struct {
	Domain           string `yaml:"domain"`
	TrustScore       int    `yaml:"trust_score"`
	DomainAge        int    `yaml:"domain_age"`
	RegistrationDate string `yaml:"registration_date"`
	ExpirationDate   string `yaml:"expiration_date"`
	Registrar        string `yaml:"registrar"`
	SSLIssuer        string `yaml:"ssl_issuer"`
	SSLValidFrom     string `yaml:"ssl_valid_from"`
	SSLValidTo       string `yaml:"ssl_valid_to"`
	ServerType       string `yaml:"server_type"`
	ServerLocation   string `yaml:"server_location"`
	IPAddress        string `yaml:"ip_address"`
	HostingProvider  string `yaml:"hosting_provider"`
	Encryption       string `yaml:"encryption"`
}

type seedReview struct {
	Domain    string `yaml:"domain"`
	ByAdmin   bool   `yaml:"by_admin"`
	Rating    int    `yaml:"rating"`
	Comment   string `yaml:"comment"`
	CreatedAt string `yaml:"created_at"`
}

type seedPost struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Summary     string `yaml:"summary"`
	Content     string `yaml:"content"`
	ImageURL    string `yaml:"image_url"`
	PublishedAt string `yaml:"published_at"`
}

func main() {
	file := flag.String("file", "", "seed data file (defaults to the embedded demo data)")
	flag.Parse()

	cfg, err := config.Load()
	logging.Setup(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	data := defaultSeed
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("read seed file")
		}
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatal().Err(err).Msg("parse seed file")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init")
	}
	defer st.Close()

	if err := run(ctx, st, seed); err != nil {
		log.Error().Err(err).Msg("seeding failed")
		return
	}
	log.Info().Msg("seeding completed")
}

func run(ctx context.Context, st ports.Store, seed seedFile) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	admin, err := st.GetOrCreateUser(ctx, seed.Admin.Username, string(hash))
	if err != nil {
		return err
	}

	ids := make(map[string]int64)
	seeded := false
	for _, w := range seed.Websites {
		existing, found, err := st.GetByDomain(ctx, w.Domain)
		if err != nil {
			return err
		}
		if found {
			ids[w.Domain] = existing.ID
			seeded = true
			continue
		}
		site, err := w.website()
		if err != nil {
			return err
		}
		saved, err := st.Upsert(ctx, site)
		if err != nil {
			return err
		}
		ids[w.Domain] = saved.ID
		log.Info().Str("domain", w.Domain).Msg("seeded website")
	}

	// reviews are append-only; only add them alongside fresh websites
	if !seeded {
		for _, r := range seed.Reviews {
			review, err := r.review(ids, admin.ID)
			if err != nil {
				return err
			}
			if _, err := st.CreateReview(ctx, review); err != nil {
				return err
			}
		}
		log.Info().Int("count", len(seed.Reviews)).Msg("seeded reviews")
	} else {
		log.Info().Msg("websites already present, skipping reviews")
	}

	posts := blog.New(st)
	for _, p := range seed.Posts {
		post, err := p.post(admin.ID)
		if err != nil {
			return err
		}
		if _, err := posts.Create(ctx, post); err != nil {
			return err
		}
		log.Info().Str("slug", p.Slug).Msg("seeded post")
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse date %q", s)
	}
	return &t, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (w seedWebsite) website() (domain.Website, error) {
	site := domain.Website{
		Domain:          w.Domain,
		TrustScore:      w.TrustScore,
		LastAnalyzed:    time.Now().UTC(),
		Registrar:       optional(w.Registrar),
		HasValidSSL:     w.SSLIssuer != "",
		SSLIssuer:       optional(w.SSLIssuer),
		ServerType:      optional(w.ServerType),
		ServerLocation:  optional(w.ServerLocation),
		IPAddress:       optional(w.IPAddress),
		HostingProvider: optional(w.HostingProvider),
		PhishingRisk:    domain.RiskLow,
		MalwareRisk:     domain.RiskLow,
		ScamRisk:        domain.RiskLow,
		BlacklistStatus: domain.BlacklistClean,
	}
	if w.DomainAge > 0 {
		age := w.DomainAge
		site.DomainAge = &age
	}
	if w.Encryption != "" {
		site.TechnicalDetails = map[string]any{"encryption": w.Encryption}
	}

	var err error
	for _, f := range []struct {
		dst **time.Time
		src string
	}{
		{&site.RegistrationDate, w.RegistrationDate},
		{&site.ExpirationDate, w.ExpirationDate},
		{&site.SSLValidFrom, w.SSLValidFrom},
		{&site.SSLValidTo, w.SSLValidTo},
	} {
		if *f.dst, err = parseDate(f.src); err != nil {
			return domain.Website{}, errors.Wrap(err, w.Domain)
		}
	}
	return site, nil
}

func (r seedReview) review(ids map[string]int64, adminID int64) (domain.Review, error) {
	websiteID, ok := ids[r.Domain]
	if !ok {
		return domain.Review{}, errors.Errorf("review references unknown website %s", r.Domain)
	}
	created, err := parseDate(r.CreatedAt)
	if err != nil {
		return domain.Review{}, err
	}
	review := domain.Review{
		WebsiteID:   websiteID,
		Rating:      r.Rating,
		Comment:     optional(r.Comment),
		IsAnonymous: !r.ByAdmin,
	}
	if r.ByAdmin {
		review.UserID = &adminID
	}
	if created != nil {
		review.CreatedAt = *created
	}
	return review, nil
}

func (p seedPost) post(authorID int64) (domain.BlogPost, error) {
	published, err := parseDate(p.PublishedAt)
	if err != nil {
		return domain.BlogPost{}, err
	}
	post := domain.BlogPost{
		Title:    p.Title,
		Slug:     p.Slug,
		Summary:  p.Summary,
		Content:  p.Content,
		ImageURL: p.ImageURL,
		AuthorID: &authorID,
	}
	if published != nil {
		post.PublishedAt = *published
	}
	return post, nil
}
