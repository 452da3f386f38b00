package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	pkgerrors "github.com/pkg/errors"

	"trustlens/internal/domain"
)

const websiteColumns = `id, domain, trust_score, last_analyzed, domain_age, registration_date,
	expiration_date, registrar, has_valid_ssl, ssl_issuer, ssl_valid_from, ssl_valid_to,
	server_type, server_location, ip_address, hosting_provider, malware_detected,
	phishing_risk, malware_risk, scam_risk, blacklist_status, technical_details`

func scanWebsite(row pgx.Row) (domain.Website, error) {
	var w domain.Website
	err := row.Scan(&w.ID, &w.Domain, &w.TrustScore, &w.LastAnalyzed, &w.DomainAge, &w.RegistrationDate,
		&w.ExpirationDate, &w.Registrar, &w.HasValidSSL, &w.SSLIssuer, &w.SSLValidFrom, &w.SSLValidTo,
		&w.ServerType, &w.ServerLocation, &w.IPAddress, &w.HostingProvider, &w.MalwareDetected,
		&w.PhishingRisk, &w.MalwareRisk, &w.ScamRisk, &w.BlacklistStatus, &w.TechnicalDetails)
	return w, err
}

// WebsiteRepository

func (db *DB) GetByDomain(ctx context.Context, host string) (domain.Website, bool, error) {
	w, err := scanWebsite(db.Pool.QueryRow(ctx,
		`SELECT `+websiteColumns+` FROM websites WHERE domain = $1`, strings.ToLower(host)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Website{}, false, nil
	}
	if err != nil {
		return domain.Website{}, false, pkgerrors.Wrap(err, "select website")
	}
	return w, true, nil
}

func (db *DB) GetByID(ctx context.Context, id int64) (domain.Website, bool, error) {
	w, err := scanWebsite(db.Pool.QueryRow(ctx,
		`SELECT `+websiteColumns+` FROM websites WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Website{}, false, nil
	}
	if err != nil {
		return domain.Website{}, false, pkgerrors.Wrap(err, "select website")
	}
	return w, true, nil
}

func (db *DB) Upsert(ctx context.Context, w domain.Website) (domain.Website, error) {
	saved, err := scanWebsite(db.Pool.QueryRow(ctx, `
		INSERT INTO websites (domain, trust_score, last_analyzed, domain_age, registration_date,
			expiration_date, registrar, has_valid_ssl, ssl_issuer, ssl_valid_from, ssl_valid_to,
			server_type, server_location, ip_address, hosting_provider, malware_detected,
			phishing_risk, malware_risk, scam_risk, blacklist_status, technical_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (domain) DO UPDATE SET
			trust_score = EXCLUDED.trust_score,
			last_analyzed = EXCLUDED.last_analyzed,
			domain_age = EXCLUDED.domain_age,
			registration_date = EXCLUDED.registration_date,
			expiration_date = EXCLUDED.expiration_date,
			registrar = EXCLUDED.registrar,
			has_valid_ssl = EXCLUDED.has_valid_ssl,
			ssl_issuer = EXCLUDED.ssl_issuer,
			ssl_valid_from = EXCLUDED.ssl_valid_from,
			ssl_valid_to = EXCLUDED.ssl_valid_to,
			server_type = EXCLUDED.server_type,
			server_location = EXCLUDED.server_location,
			ip_address = EXCLUDED.ip_address,
			hosting_provider = EXCLUDED.hosting_provider,
			malware_detected = EXCLUDED.malware_detected,
			phishing_risk = EXCLUDED.phishing_risk,
			malware_risk = EXCLUDED.malware_risk,
			scam_risk = EXCLUDED.scam_risk,
			blacklist_status = EXCLUDED.blacklist_status,
			technical_details = EXCLUDED.technical_details
		RETURNING `+websiteColumns,
		strings.ToLower(w.Domain), w.TrustScore, w.LastAnalyzed, w.DomainAge, w.RegistrationDate,
		w.ExpirationDate, w.Registrar, w.HasValidSSL, w.SSLIssuer, w.SSLValidFrom, w.SSLValidTo,
		w.ServerType, w.ServerLocation, w.IPAddress, w.HostingProvider, w.MalwareDetected,
		w.PhishingRisk, w.MalwareRisk, w.ScamRisk, w.BlacklistStatus, w.TechnicalDetails))
	if err != nil {
		return domain.Website{}, pkgerrors.Wrapf(err, "upsert website %s", w.Domain)
	}
	return saved, nil
}

func (db *DB) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT domain FROM websites
		WHERE last_analyzed < $1
		ORDER BY last_analyzed
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select stale websites")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ReviewRepository

func (db *DB) ListByWebsite(ctx context.Context, websiteID int64) ([]domain.Review, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.id, r.website_id, r.user_id, r.rating, r.comment, r.is_anonymous, r.created_at,
			u.id, u.username
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.website_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`, websiteID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select reviews")
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			r        domain.Review
			userID   *int64
			username *string
		)
		if err := rows.Scan(&r.ID, &r.WebsiteID, &r.UserID, &r.Rating, &r.Comment, &r.IsAnonymous, &r.CreatedAt,
			&userID, &username); err != nil {
			return nil, pkgerrors.Wrap(err, "scan review")
		}
		r.User = userRef(userID, username)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) Ratings(ctx context.Context, websiteID int64) ([]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT rating FROM reviews WHERE website_id = $1`, websiteID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select ratings")
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (db *DB) CreateReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO reviews (website_id, user_id, rating, comment, is_anonymous, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.WebsiteID, r.UserID, r.Rating, r.Comment, r.IsAnonymous, r.CreatedAt).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return domain.Review{}, pkgerrors.Wrap(err, "insert review")
	}
	return r, nil
}

// BlogRepository

const postColumns = `p.id, p.title, p.slug, p.content, p.summary, p.image_url, p.published_at, p.author_id,
	u.id, u.username`

func collectPosts(rows pgx.Rows) ([]domain.BlogPost, error) {
	defer rows.Close()
	var out []domain.BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPost(row pgx.Row) (domain.BlogPost, error) {
	var (
		p        domain.BlogPost
		userID   *int64
		username *string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Summary, &p.ImageURL, &p.PublishedAt, &p.AuthorID,
		&userID, &username); err != nil {
		return domain.BlogPost{}, err
	}
	p.Author = userRef(userID, username)
	return p, nil
}

func (db *DB) ListPosts(ctx context.Context, limit, offset int) ([]domain.BlogPost, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		LEFT JOIN users u ON u.id = p.author_id
		ORDER BY p.published_at DESC, p.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select posts")
	}
	return collectPosts(rows)
}

func (db *DB) GetPostBySlug(ctx context.Context, slug string) (domain.BlogPost, bool, error) {
	p, err := scanPost(db.Pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.slug = $1
	`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BlogPost{}, false, nil
	}
	if err != nil {
		return domain.BlogPost{}, false, pkgerrors.Wrap(err, "select post")
	}
	return p, true, nil
}

func (db *DB) SearchPosts(ctx context.Context, query string, limit int) ([]domain.BlogPost, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.title ILIKE $1 ESCAPE '\' OR p.content ILIKE $1 ESCAPE '\' OR p.summary ILIKE $1 ESCAPE '\'
		ORDER BY p.published_at DESC, p.id DESC
		LIMIT $2
	`, LikePattern(query), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "search posts")
	}
	return collectPosts(rows)
}

func (db *DB) CreatePost(ctx context.Context, p domain.BlogPost) (domain.BlogPost, error) {
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now().UTC()
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO blog_posts (title, slug, content, summary, image_url, published_at, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, published_at
	`, p.Title, p.Slug, p.Content, p.Summary, p.ImageURL, p.PublishedAt, p.AuthorID).Scan(&p.ID, &p.PublishedAt)
	if err != nil {
		return domain.BlogPost{}, pkgerrors.Wrapf(err, "insert post %s", p.Slug)
	}
	return p, nil
}

// UserRepository

func (db *DB) GetOrCreateUser(ctx context.Context, username, password string) (domain.User, error) {
	u := domain.User{Username: username}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, password
	`, username, password).Scan(&u.ID, &u.Password)
	if err != nil {
		return domain.User{}, pkgerrors.Wrapf(err, "upsert user %s", username)
	}
	return u, nil
}

// LikePattern wraps query in wildcards, escaping LIKE metacharacters.
func LikePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

func userRef(id *int64, username *string) *domain.UserRef {
	if id == nil || username == nil {
		return nil
	}
	return &domain.UserRef{ID: *id, Username: *username}
}
