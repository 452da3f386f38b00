package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"trustlens/internal/domain"
)

const websiteColumns = `id, domain, trust_score, last_analyzed, domain_age, registration_date,
	expiration_date, registrar, has_valid_ssl, ssl_issuer, ssl_valid_from, ssl_valid_to,
	server_type, server_location, ip_address, hosting_provider, malware_detected,
	phishing_risk, malware_risk, scam_risk, blacklist_status, technical_details`

type scanner interface {
	Scan(dest ...any) error
}

func scanWebsite(row scanner) (domain.Website, error) {
	var (
		w       domain.Website
		details sql.NullString
	)
	err := row.Scan(&w.ID, &w.Domain, &w.TrustScore, &w.LastAnalyzed, &w.DomainAge, &w.RegistrationDate,
		&w.ExpirationDate, &w.Registrar, &w.HasValidSSL, &w.SSLIssuer, &w.SSLValidFrom, &w.SSLValidTo,
		&w.ServerType, &w.ServerLocation, &w.IPAddress, &w.HostingProvider, &w.MalwareDetected,
		&w.PhishingRisk, &w.MalwareRisk, &w.ScamRisk, &w.BlacklistStatus, &details)
	if err != nil {
		return domain.Website{}, err
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &w.TechnicalDetails); err != nil {
			return domain.Website{}, pkgerrors.Wrap(err, "decode technical details")
		}
	}
	return w, nil
}

// utc normalizes bound timestamps so stored text sorts chronologically.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// WebsiteRepository

func (db *DB) GetByDomain(ctx context.Context, host string) (domain.Website, bool, error) {
	return db.getWebsite(ctx, `SELECT `+websiteColumns+` FROM websites WHERE domain = ?`, strings.ToLower(host))
}

func (db *DB) GetByID(ctx context.Context, id int64) (domain.Website, bool, error) {
	return db.getWebsite(ctx, `SELECT `+websiteColumns+` FROM websites WHERE id = ?`, id)
}

func (db *DB) getWebsite(ctx context.Context, query string, arg any) (domain.Website, bool, error) {
	w, err := scanWebsite(db.SQL.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Website{}, false, nil
	}
	if err != nil {
		return domain.Website{}, false, pkgerrors.Wrap(err, "select website")
	}
	return w, true, nil
}

func (db *DB) Upsert(ctx context.Context, w domain.Website) (domain.Website, error) {
	var details any
	if w.TechnicalDetails != nil {
		raw, err := json.Marshal(w.TechnicalDetails)
		if err != nil {
			return domain.Website{}, pkgerrors.Wrap(err, "encode technical details")
		}
		details = string(raw)
	}

	host := strings.ToLower(w.Domain)
	_, err := db.SQL.ExecContext(ctx, `
		INSERT INTO websites (domain, trust_score, last_analyzed, domain_age, registration_date,
			expiration_date, registrar, has_valid_ssl, ssl_issuer, ssl_valid_from, ssl_valid_to,
			server_type, server_location, ip_address, hosting_provider, malware_detected,
			phishing_risk, malware_risk, scam_risk, blacklist_status, technical_details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain) DO UPDATE SET
			trust_score = excluded.trust_score,
			last_analyzed = excluded.last_analyzed,
			domain_age = excluded.domain_age,
			registration_date = excluded.registration_date,
			expiration_date = excluded.expiration_date,
			registrar = excluded.registrar,
			has_valid_ssl = excluded.has_valid_ssl,
			ssl_issuer = excluded.ssl_issuer,
			ssl_valid_from = excluded.ssl_valid_from,
			ssl_valid_to = excluded.ssl_valid_to,
			server_type = excluded.server_type,
			server_location = excluded.server_location,
			ip_address = excluded.ip_address,
			hosting_provider = excluded.hosting_provider,
			malware_detected = excluded.malware_detected,
			phishing_risk = excluded.phishing_risk,
			malware_risk = excluded.malware_risk,
			scam_risk = excluded.scam_risk,
			blacklist_status = excluded.blacklist_status,
			technical_details = excluded.technical_details
	`,
		host, w.TrustScore, w.LastAnalyzed.UTC(), w.DomainAge, utc(w.RegistrationDate),
		utc(w.ExpirationDate), w.Registrar, w.HasValidSSL, w.SSLIssuer, utc(w.SSLValidFrom), utc(w.SSLValidTo),
		w.ServerType, w.ServerLocation, w.IPAddress, w.HostingProvider, w.MalwareDetected,
		w.PhishingRisk, w.MalwareRisk, w.ScamRisk, w.BlacklistStatus, details)
	if err != nil {
		return domain.Website{}, pkgerrors.Wrapf(err, "upsert website %s", w.Domain)
	}

	// RETURNING loses column types, so read the row back
	saved, found, err := db.GetByDomain(ctx, host)
	if err != nil {
		return domain.Website{}, err
	}
	if !found {
		return domain.Website{}, pkgerrors.Errorf("website %s vanished after upsert", host)
	}
	return saved, nil
}

func (db *DB) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := db.SQL.QueryContext(ctx, `
		SELECT domain FROM websites
		WHERE last_analyzed < ?
		ORDER BY last_analyzed
		LIMIT ?
	`, before.UTC(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select stale websites")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, pkgerrors.Wrap(err, "scan domain")
		}
		out = append(out, host)
	}
	return out, rows.Err()
}

// ReviewRepository

func (db *DB) ListByWebsite(ctx context.Context, websiteID int64) ([]domain.Review, error) {
	rows, err := db.SQL.QueryContext(ctx, `
		SELECT r.id, r.website_id, r.user_id, r.rating, r.comment, r.is_anonymous, r.created_at,
			u.id, u.username
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.website_id = ?
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
	rows, err := db.SQL.QueryContext(ctx, `SELECT rating FROM reviews WHERE website_id = ?`, websiteID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select ratings")
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, pkgerrors.Wrap(err, "scan rating")
		}
		out = append(out, rating)
	}
	return out, rows.Err()
}

func (db *DB) CreateReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	err := db.SQL.QueryRowContext(ctx, `
		INSERT INTO reviews (website_id, user_id, rating, comment, is_anonymous, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, r.WebsiteID, r.UserID, r.Rating, r.Comment, r.IsAnonymous, r.CreatedAt).Scan(&r.ID)
	if err != nil {
		return domain.Review{}, pkgerrors.Wrap(err, "insert review")
	}
	return r, nil
}

// BlogRepository

const postColumns = `p.id, p.title, p.slug, p.content, p.summary, p.image_url, p.published_at, p.author_id,
	u.id, u.username`

func scanPost(row scanner) (domain.BlogPost, error) {
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

func (db *DB) queryPosts(ctx context.Context, query string, args ...any) ([]domain.BlogPost, error) {
	rows, err := db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select posts")
	}
	defer rows.Close()

	var out []domain.BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan post")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) ListPosts(ctx context.Context, limit, offset int) ([]domain.BlogPost, error) {
	return db.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		LEFT JOIN users u ON u.id = p.author_id
		ORDER BY p.published_at DESC, p.id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

func (db *DB) GetPostBySlug(ctx context.Context, slug string) (domain.BlogPost, bool, error) {
	p, err := scanPost(db.SQL.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.slug = ?
	`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BlogPost{}, false, nil
	}
	if err != nil {
		return domain.BlogPost{}, false, pkgerrors.Wrap(err, "select post")
	}
	return p, true, nil
}

func (db *DB) SearchPosts(ctx context.Context, query string, limit int) ([]domain.BlogPost, error) {
	pattern := likePattern(query)
	return db.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.title LIKE ? ESCAPE '\' OR p.content LIKE ? ESCAPE '\' OR p.summary LIKE ? ESCAPE '\'
		ORDER BY p.published_at DESC, p.id DESC
		LIMIT ?
	`, pattern, pattern, pattern, limit)
}

func (db *DB) CreatePost(ctx context.Context, p domain.BlogPost) (domain.BlogPost, error) {
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now()
	}
	p.PublishedAt = p.PublishedAt.UTC()
	err := db.SQL.QueryRowContext(ctx, `
		INSERT INTO blog_posts (title, slug, content, summary, image_url, published_at, author_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET slug = excluded.slug
		RETURNING id
	`, p.Title, p.Slug, p.Content, p.Summary, p.ImageURL, p.PublishedAt, p.AuthorID).Scan(&p.ID)
	if err != nil {
		return domain.BlogPost{}, pkgerrors.Wrapf(err, "insert post %s", p.Slug)
	}
	return p, nil
}

// UserRepository

func (db *DB) GetOrCreateUser(ctx context.Context, username, password string) (domain.User, error) {
	u := domain.User{Username: username}
	err := db.SQL.QueryRowContext(ctx, `
		INSERT INTO users (username, password)
		VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET username = excluded.username
		RETURNING id, password
	`, username, password).Scan(&u.ID, &u.Password)
	if err != nil {
		return domain.User{}, pkgerrors.Wrapf(err, "upsert user %s", username)
	}
	return u, nil
}

func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

func userRef(id *int64, username *string) *domain.UserRef {
	if id == nil || username == nil {
		return nil
	}
	return &domain.UserRef{ID: *id, Username: *username}
}
