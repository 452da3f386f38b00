package domain

import "time"

// Core domain models. JSON tags follow the wire shape the UI consumes
// (camelCase, nullable optionals).

// Risk labels.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"

	BlacklistClean   = "clean"
	BlacklistUnknown = "unknown"
)

// Website is the persisted analysis record for one normalized domain.
type Website struct {
	ID               int64          `json:"id"`
	Domain           string         `json:"domain"`
	TrustScore       int            `json:"trustScore"`
	LastAnalyzed     time.Time      `json:"lastAnalyzed"`
	DomainAge        *int           `json:"domainAge"`
	RegistrationDate *time.Time     `json:"registrationDate"`
	ExpirationDate   *time.Time     `json:"expirationDate"`
	Registrar        *string        `json:"registrar"`
	HasValidSSL      bool           `json:"hasValidSSL"`
	SSLIssuer        *string        `json:"sslIssuer"`
	SSLValidFrom     *time.Time     `json:"sslValidFrom"`
	SSLValidTo       *time.Time     `json:"sslValidTo"`
	ServerType       *string        `json:"serverType"`
	ServerLocation   *string        `json:"serverLocation"`
	IPAddress        *string        `json:"ipAddress"`
	HostingProvider  *string        `json:"hostingProvider"`
	MalwareDetected  bool           `json:"malwareDetected"`
	PhishingRisk     string         `json:"phishingRisk"`
	MalwareRisk      string         `json:"malwareRisk"`
	ScamRisk         string         `json:"scamRisk"`
	BlacklistStatus  string         `json:"blacklistStatus"`
	TechnicalDetails map[string]any `json:"technicalDetails"`
}

// Fresh reports whether the record was analyzed within maxAge of now.
func (w Website) Fresh(now time.Time, maxAge time.Duration) bool {
	return !w.LastAnalyzed.IsZero() && now.Sub(w.LastAnalyzed) < maxAge
}

type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Review struct {
	ID          int64     `json:"id"`
	WebsiteID   int64     `json:"websiteId"`
	UserID      *int64    `json:"userId"`
	Rating      int       `json:"rating"`
	Comment     *string   `json:"comment"`
	IsAnonymous bool      `json:"isAnonymous"`
	CreatedAt   time.Time `json:"createdAt"`
	User        *UserRef  `json:"user,omitempty"`
}

// ReviewStats partitions ratings into safe (4-5), suspicious (3) and
// dangerous (1-2) percentages.
type ReviewStats struct {
	Total                int `json:"total"`
	SafePercentage       int `json:"safePercentage"`
	SuspiciousPercentage int `json:"suspiciousPercentage"`
	DangerousPercentage  int `json:"dangerousPercentage"`
}

type BlogPost struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	ImageURL    string    `json:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	AuthorID    *int64    `json:"authorId"`
	Author      *UserRef  `json:"author,omitempty"`
}

type User struct {
	ID       int64
	Username string
	Password string
}

// Report is what the analysis endpoints return: the technical record plus
// community figures recomputed on every request.
type Report struct {
	Website             Website     `json:"website"`
	ReviewStats         ReviewStats `json:"reviewStats"`
	CommunityTrustScore *float64    `json:"communityTrustScore"`
	OverallTrustScore   int         `json:"overallTrustScore"`
}
