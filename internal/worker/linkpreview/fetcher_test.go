package linkpreview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/fritter/internal/model"
)

// passthroughSSRFGuard は検証を素通しするSSRFValidatorのフェイク実装。
// httptestサーバーへの接続を許可するためにテストで使用する。
type passthroughSSRFGuard struct {
	validateErr error
}

func (g *passthroughSSRFGuard) ValidateURL(rawURL string) error {
	return g.validateErr
}

func (g *passthroughSSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// recordingCollector はタイトル取得メトリクスを記録するフェイク実装。
type recordingCollector struct {
	successes    int
	failReasons  []string
	latencyCount int
}

func (c *recordingCollector) RecordFreetCreated()          {}
func (c *recordingCollector) RecordVoteCast(credible bool) {}
func (c *recordingCollector) RecordTitleFetchSuccess()     { c.successes++ }
func (c *recordingCollector) RecordTitleFetchFailure(reason string) {
	c.failReasons = append(c.failReasons, reason)
}
func (c *recordingCollector) RecordTitleFetchLatency(duration time.Duration) { c.latencyCount++ }
func (c *recordingCollector) RecordHTTPStatus(statusCode int)                {}

func newTestFetcher(repo *mockLinkRepo, guard SSRFValidator, collector *recordingCollector) *Fetcher {
	return NewFetcher(repo, guard, collector, discardLogger(), 5*time.Second, 1<<20)
}

func linkTo(url string) *model.ReferenceLink {
	return &model.ReferenceLink{ID: "link-1", FreetID: "freet-1", URL: url}
}

// TestFetcher_Fetch_SavesTitle は取得したページの<title>が保存されることを確認する。
func TestFetcher_Fetch_SavesTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Example Article</title></head><body></body></html>`))
	}))
	defer server.Close()

	var savedID, savedTitle string
	repo := &mockLinkRepo{
		updateTitleFn: func(ctx context.Context, linkID, title string) error {
			savedID = linkID
			savedTitle = title
			return nil
		},
	}
	collector := &recordingCollector{}
	f := newTestFetcher(repo, &passthroughSSRFGuard{}, collector)

	if err := f.Fetch(context.Background(), linkTo(server.URL)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedID != "link-1" {
		t.Errorf("saved link ID = %q, want link-1", savedID)
	}
	if savedTitle != "Example Article" {
		t.Errorf("saved title = %q, want %q", savedTitle, "Example Article")
	}
	if collector.successes != 1 {
		t.Errorf("successes = %d, want 1", collector.successes)
	}
	if collector.latencyCount != 1 {
		t.Errorf("latency observations = %d, want 1", collector.latencyCount)
	}
}

// TestFetcher_Fetch_SSRFBlocked はSSRF検証に失敗したリンクが取得されず、
// 再試行を止めるためにタイトル取得済みとして記録されることを確認する。
func TestFetcher_Fetch_SSRFBlocked(t *testing.T) {
	var saved bool
	repo := &mockLinkRepo{
		updateTitleFn: func(ctx context.Context, linkID, title string) error {
			saved = true
			if title != "" {
				t.Errorf("title = %q, want empty", title)
			}
			return nil
		},
	}
	collector := &recordingCollector{}
	guard := &passthroughSSRFGuard{validateErr: errors.New("private address blocked")}
	f := newTestFetcher(repo, guard, collector)

	if err := f.Fetch(context.Background(), linkTo("http://169.254.169.254/meta")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !saved {
		t.Error("fetched-at must be recorded even when SSRF validation fails")
	}
	if len(collector.failReasons) != 1 || collector.failReasons[0] != "ssrf_blocked" {
		t.Errorf("failReasons = %v, want [ssrf_blocked]", collector.failReasons)
	}
}

func TestFetcher_Fetch_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var saved bool
	repo := &mockLinkRepo{
		updateTitleFn: func(ctx context.Context, linkID, title string) error {
			saved = true
			return nil
		},
	}
	collector := &recordingCollector{}
	f := newTestFetcher(repo, &passthroughSSRFGuard{}, collector)

	if err := f.Fetch(context.Background(), linkTo(server.URL)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !saved {
		t.Error("fetched-at must be recorded on non-200 response")
	}
	if len(collector.failReasons) != 1 || collector.failReasons[0] != "http_status" {
		t.Errorf("failReasons = %v, want [http_status]", collector.failReasons)
	}
}

func TestFetcher_Fetch_NoTitleElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head></head><body>no title here</body></html>`))
	}))
	defer server.Close()

	var savedTitle string
	repo := &mockLinkRepo{
		updateTitleFn: func(ctx context.Context, linkID, title string) error {
			savedTitle = title
			return nil
		},
	}
	collector := &recordingCollector{}
	f := newTestFetcher(repo, &passthroughSSRFGuard{}, collector)

	if err := f.Fetch(context.Background(), linkTo(server.URL)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedTitle != "" {
		t.Errorf("saved title = %q, want empty", savedTitle)
	}
	if len(collector.failReasons) != 1 || collector.failReasons[0] != "no_title" {
		t.Errorf("failReasons = %v, want [no_title]", collector.failReasons)
	}
}

func TestFetcher_Fetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // 接続を拒否させる

	var saved bool
	repo := &mockLinkRepo{
		updateTitleFn: func(ctx context.Context, linkID, title string) error {
			saved = true
			return nil
		},
	}
	collector := &recordingCollector{}
	f := newTestFetcher(repo, &passthroughSSRFGuard{}, collector)

	if err := f.Fetch(context.Background(), linkTo(url)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !saved {
		t.Error("fetched-at must be recorded on connection failure")
	}
	if len(collector.failReasons) != 1 || collector.failReasons[0] != "http_error" {
		t.Errorf("failReasons = %v, want [http_error]", collector.failReasons)
	}
}

func TestFetcher_Fetch_SaveFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<title>Example</title>`))
	}))
	defer server.Close()

	repo := &mockLinkRepo{
		updateTitleFn: func(ctx context.Context, linkID, title string) error {
			return errors.New("connection refused")
		},
	}
	f := newTestFetcher(repo, &passthroughSSRFGuard{}, &recordingCollector{})

	if err := f.Fetch(context.Background(), linkTo(server.URL)); err == nil {
		t.Error("expected error when saving the title fails")
	}
}

// --- ExtractTitle テスト ---

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"通常のHTML文書",
			`<html><head><title>Hello World</title></head></html>`,
			"Hello World",
		},
		{
			"空白の正規化",
			"<title>  Hello \n\t World  </title>",
			"Hello World",
		},
		{
			"最初のtitle要素を採用",
			`<title>First</title><title>Second</title>`,
			"First",
		},
		{
			"title要素なし",
			`<html><body><h1>Heading</h1></body></html>`,
			"",
		},
		{
			"空のtitle要素",
			`<title></title>`,
			"",
		},
		{
			"日本語タイトル",
			`<title>こんにちは世界</title>`,
			"こんにちは世界",
		},
		{
			"壊れたHTMLでも<title>までは読める",
			`<html><head><title>Partial</title><div<<`,
			"Partial",
		},
		{
			"空文書",
			``,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.doc); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTitle_TruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("あ", 300)
	got := ExtractTitle("<title>" + long + "</title>")

	runes := []rune(got)
	if len(runes) != maxTitleLength {
		t.Errorf("title length = %d runes, want %d", len(runes), maxTitleLength)
	}
}
