package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/suhufapp/suhuf/internal/news"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func article(url, lang, cat string, published time.Time) news.Article {
	return news.Article{
		ID:          uuid.NewString(),
		Title:       "title " + url,
		Summary:     "summary",
		URL:         url,
		ImageURL:    "https://img.test/x.jpg",
		PublishedAt: published,
		SourceName:  "Test",
		Category:    cat,
		Language:    lang,
		Author:      "Test",
		CreatedAt:   time.Now(),
	}
}

func TestInsertAndExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := article("https://a.test/1", "en", "world", time.Now())
	if err := s.Insert(ctx, a); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ok, err := s.ExistsByURL(ctx, a.URL)
	if err != nil || !ok {
		t.Fatalf("ExistsByURL = %v, %v; want true", ok, err)
	}
	ok, err = s.ExistsByURL(ctx, "https://a.test/other")
	if err != nil || ok {
		t.Fatalf("ExistsByURL(other) = %v, %v; want false", ok, err)
	}

	dup := article(a.URL, "en", "world", time.Now())
	if err := s.Insert(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second insert err = %v, want ErrDuplicate", err)
	}
}

func TestConcurrentInsertsKeepOneRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(ctx, article("https://race.test/1", "en", "world", time.Now()))
			if err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			} else if !errors.Is(err, ErrDuplicate) {
				t.Errorf("Insert: %v", err)
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Fatalf("inserted = %d, want exactly 1", inserted)
	}
	got, err := s.ListArticles(ctx, Query{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
}

func TestListArticlesOrderAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		cat := "world"
		if i%2 == 1 {
			cat = "sports"
		}
		if err := s.Insert(ctx, article(fmt.Sprintf("https://en.test/%d", i), "en", cat, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Insert(ctx, article("https://ar.test/1", "ar", "world", base)); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListArticles(ctx, Query{Language: "en", Category: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("en/all = %d rows, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].PublishedAt.After(all[i-1].PublishedAt) {
			t.Fatalf("rows not ordered newest first: %v then %v", all[i-1].PublishedAt, all[i].PublishedAt)
		}
	}
	if !all[0].PublishedAt.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("newest = %v", all[0].PublishedAt)
	}

	world, _ := s.ListArticles(ctx, Query{Language: "en", Category: "world", Limit: 2})
	if len(world) != 2 || world[0].URL != "https://en.test/4" || world[1].URL != "https://en.test/2" {
		t.Fatalf("en/world limit 2 = %+v", world)
	}

	older, _ := s.ListArticles(ctx, Query{Language: "en", Before: base.Add(2 * time.Hour)})
	if len(older) != 2 {
		t.Fatalf("before cursor = %d rows, want 2", len(older))
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats["en"] != 5 || stats["ar"] != 1 || stats["total"] != 6 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestListArticlesPagesThroughSharedTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	same := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.Insert(ctx, article(fmt.Sprintf("https://same.test/%d", i), "en", "world", same)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Insert(ctx, article("https://same.test/older", "en", "world", same.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	first, err := s.ListArticles(ctx, Query{Language: "en", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("first page = %d rows, want 2", len(first))
	}
	last := first[1]

	second, err := s.ListArticles(ctx, Query{Language: "en", Limit: 2, Before: last.PublishedAt, BeforeID: last.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 2 {
		t.Fatalf("second page = %d rows, want 2", len(second))
	}
	if !second[0].PublishedAt.Equal(same) || second[1].URL != "https://same.test/older" {
		t.Fatalf("second page = %s, %s", second[0].URL, second[1].URL)
	}

	seen := map[string]bool{}
	for _, a := range append(first, second...) {
		if seen[a.URL] {
			t.Fatalf("%s returned on both pages", a.URL)
		}
		seen[a.URL] = true
	}
	if len(seen) != 4 {
		t.Fatalf("paged through %d rows, want 4", len(seen))
	}
}

func TestRecentTitles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 4; i++ {
		a := article(fmt.Sprintf("https://t.test/%d", i), "ar", "world", base.Add(time.Duration(i)*time.Minute))
		a.Title = fmt.Sprintf("عنوان %d", i)
		if err := s.Insert(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	titles, err := s.RecentTitles(ctx, "ar", "world", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"عنوان 3", "عنوان 2", "عنوان 1"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v", titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, titles[i], want[i])
		}
	}

	if other, _ := s.RecentTitles(ctx, "ar", "sports", 3); len(other) != 0 {
		t.Errorf("sports titles = %v, want none", other)
	}
}

func TestViralityRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	label := "trending"
	a := article("https://v.test/1", "en", "world", time.Now())
	a.Virality = &label
	if err := s.Insert(ctx, a); err != nil {
		t.Fatal(err)
	}
	b := article("https://v.test/2", "en", "world", time.Now().Add(-time.Minute))
	if err := s.Insert(ctx, b); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListArticles(ctx, Query{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Virality == nil || *got[0].Virality != "trending" {
		t.Errorf("virality = %v", got[0].Virality)
	}
	if got[1].Virality != nil {
		t.Errorf("absent virality should scan as nil, got %q", *got[1].Virality)
	}
}

func TestTranslationCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetTranslation(ctx, "h1"); ok || err != nil {
		t.Fatalf("empty cache = %v, %v", ok, err)
	}
	if err := s.SetTranslation(ctx, "h1", "ar", "مرحبا", "google"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTranslation(ctx, "h1", "ar", "أهلا", "openai"); err != nil {
		t.Fatal(err)
	}
	text, ok, err := s.GetTranslation(ctx, "h1")
	if err != nil || !ok || text != "أهلا" {
		t.Fatalf("GetTranslation = %q, %v, %v", text, ok, err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error")
	}
}
