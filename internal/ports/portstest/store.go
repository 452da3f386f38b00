// Package portstest holds a conformance suite every storage adapter runs.
package portstest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"trustlens/internal/domain"
	"trustlens/internal/ports"
)

// TestStore exercises a freshly migrated store. Domains and slugs are
// suffixed with a unique token so the suite can run against a shared
// database.
func TestStore(t *testing.T, store ports.Store) {
	t.Helper()
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	t.Run("websites", func(t *testing.T) { testWebsites(t, store, token) })
	t.Run("reviews", func(t *testing.T) { testReviews(t, store, token) })
	t.Run("blog", func(t *testing.T) { testBlog(t, store, token) })
}

func ptr[T any](v T) *T { return &v }

func sampleWebsite(host string, analyzed time.Time) domain.Website {
	registered := time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC)
	return domain.Website{
		Domain:           host,
		TrustScore:       87,
		LastAnalyzed:     analyzed,
		DomainAge:        ptr(10001),
		RegistrationDate: &registered,
		Registrar:        ptr("Example Registrar"),
		HasValidSSL:      true,
		SSLIssuer:        ptr("DigiCert Inc"),
		IPAddress:        ptr("93.184.216.34"),
		PhishingRisk:     domain.RiskLow,
		MalwareRisk:      domain.RiskLow,
		ScamRisk:         domain.RiskLow,
		BlacklistStatus:  domain.BlacklistClean,
		TechnicalDetails: map[string]any{
			"encryption":  "TLS_AES_128_GCM_SHA256",
			"nameServers": []any{"a.iana-servers.net"},
		},
	}
}

func testWebsites(t *testing.T, store ports.Store, token string) {
	ctx := context.Background()
	host := "example-" + token + ".com"
	analyzed := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	if _, found, err := store.GetByDomain(ctx, host); err != nil || found {
		t.Fatalf("GetByDomain on empty store: found=%v err=%v", found, err)
	}

	created, err := store.Upsert(ctx, sampleWebsite(host, analyzed))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an id")
	}

	got, found, err := store.GetByDomain(ctx, host)
	if err != nil || !found {
		t.Fatalf("GetByDomain: found=%v err=%v", found, err)
	}
	if got.TrustScore != 87 || got.DomainAge == nil || *got.DomainAge != 10001 {
		t.Errorf("unexpected website %+v", got)
	}
	if !got.LastAnalyzed.Equal(analyzed) {
		t.Errorf("LastAnalyzed = %s, expected %s", got.LastAnalyzed, analyzed)
	}
	if got.ExpirationDate != nil || got.ServerLocation != nil {
		t.Error("unset optionals must round-trip as nil")
	}
	if got.TechnicalDetails["encryption"] != "TLS_AES_128_GCM_SHA256" {
		t.Errorf("technical details = %v", got.TechnicalDetails)
	}

	update := sampleWebsite(host, analyzed.Add(48*time.Hour))
	update.TrustScore = 0
	update.IPAddress = nil
	updated, err := store.Upsert(ctx, update)
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("upsert changed id %d -> %d", created.ID, updated.ID)
	}
	if updated.TrustScore != 0 || updated.IPAddress != nil {
		t.Errorf("upsert did not replace fields: %+v", updated)
	}

	byID, found, err := store.GetByID(ctx, created.ID)
	if err != nil || !found || byID.Domain != host {
		t.Errorf("GetByID: %+v found=%v err=%v", byID, found, err)
	}
	if _, found, _ := store.GetByID(ctx, -1); found {
		t.Error("GetByID(-1) found a record")
	}

	stale, err := store.ListStale(ctx, analyzed.Add(72*time.Hour), 1000)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if !contains(stale, host) {
		t.Errorf("ListStale missing %s: %v", host, stale)
	}
	stale, err = store.ListStale(ctx, analyzed, 1000)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if contains(stale, host) {
		t.Errorf("ListStale returned a fresh record: %v", stale)
	}
}

func testReviews(t *testing.T, store ports.Store, token string) {
	ctx := context.Background()
	site, err := store.Upsert(ctx, sampleWebsite("reviewed-"+token+".org", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	user, err := store.GetOrCreateUser(ctx, "reviewer-"+token, "hash")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	again, err := store.GetOrCreateUser(ctx, "reviewer-"+token, "other")
	if err != nil || again.ID != user.ID {
		t.Fatalf("GetOrCreateUser is not idempotent: %+v %v", again, err)
	}

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inputs := []domain.Review{
		{WebsiteID: site.ID, Rating: 5, IsAnonymous: true, CreatedAt: base},
		{WebsiteID: site.ID, Rating: 1, Comment: ptr("fake shop"), IsAnonymous: false, UserID: &user.ID, CreatedAt: base.Add(time.Hour)},
		{WebsiteID: site.ID, Rating: 3, IsAnonymous: true, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range inputs {
		if _, err := store.CreateReview(ctx, r); err != nil {
			t.Fatalf("CreateReview: %v", err)
		}
	}

	list, err := store.ListByWebsite(ctx, site.ID)
	if err != nil {
		t.Fatalf("ListByWebsite: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(list))
	}
	if list[0].Rating != 3 || list[2].Rating != 5 {
		t.Errorf("reviews not newest first: %+v", list)
	}
	if list[1].User == nil || list[1].User.ID != user.ID || list[1].User.Username != user.Username {
		t.Errorf("review user = %+v", list[1].User)
	}
	if list[0].User != nil {
		t.Error("anonymous review carries a user")
	}
	if list[1].Comment == nil || *list[1].Comment != "fake shop" {
		t.Errorf("comment = %v", list[1].Comment)
	}

	ratings, err := store.Ratings(ctx, site.ID)
	if err != nil {
		t.Fatalf("Ratings: %v", err)
	}
	if len(ratings) != 3 {
		t.Errorf("ratings = %v", ratings)
	}
}

func testBlog(t *testing.T, store ports.Store, token string) {
	ctx := context.Background()
	author, err := store.GetOrCreateUser(ctx, "author-"+token, "hash")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []domain.BlogPost{
		{Title: "Older post " + token, Slug: "older-" + token, Summary: "An older summary text",
			Content: "Plain content about 100% safe_shopping habits online.", PublishedAt: base},
		{Title: "Newer post " + token, Slug: "newer-" + token, Summary: "A newer summary text",
			Content: "Content mentioning phishing-" + token + " kits.", PublishedAt: base.Add(24 * time.Hour), AuthorID: &author.ID},
	}
	for _, p := range posts {
		if _, err := store.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost: %v", err)
		}
	}

	got, found, err := store.GetPostBySlug(ctx, "newer-"+token)
	if err != nil || !found {
		t.Fatalf("GetPostBySlug: found=%v err=%v", found, err)
	}
	if got.Author == nil || got.Author.Username != author.Username {
		t.Errorf("author = %+v", got.Author)
	}
	if _, found, _ := store.GetPostBySlug(ctx, "missing-"+token); found {
		t.Error("found a missing slug")
	}

	results, err := store.SearchPosts(ctx, "PHISHING-"+token, 10)
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "newer-"+token {
		t.Errorf("search results = %+v", results)
	}
	results, err = store.SearchPosts(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if len(results) == 0 {
		t.Error("literal percent search found nothing")
	}

	page, err := store.ListPosts(ctx, 1000, 0)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	newer, older := -1, -1
	for i, p := range page {
		switch p.Slug {
		case "newer-" + token:
			newer = i
		case "older-" + token:
			older = i
		}
	}
	if newer < 0 || older < 0 || newer > older {
		t.Errorf("posts not newest first: newer=%d older=%d", newer, older)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
