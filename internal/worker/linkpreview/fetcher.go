package linkpreview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/fritter/internal/metrics"
	"github.com/hitoshi/fritter/internal/model"
	"github.com/hitoshi/fritter/internal/repository"
)

// maxTitleLength は保存するタイトルの最大文字数（バイトではなくルーン数）。
const maxTitleLength = 200

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Fetcher は個別リンクのHTTPフェッチと<title>抽出を行う。
// SSRF検証済みクライアントでページを取得し、HTMLをパースして
// タイトルを保存する。失敗時もtitle_fetched_atを記録し、
// 同じリンクを再試行し続けないようにする。
type Fetcher struct {
	linkRepo    repository.LinkRepository
	ssrfGuard   SSRFValidator
	collector   metrics.MetricsCollector
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。collectorはnil可。
func NewFetcher(
	linkRepo repository.LinkRepository,
	ssrfGuard SSRFValidator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		linkRepo:    linkRepo,
		ssrfGuard:   ssrfGuard,
		collector:   collector,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は引用リンク先のページタイトルを取得し、結果を保存する。
// TitleFetcherServiceインターフェースを実装する。
func (f *Fetcher) Fetch(ctx context.Context, link *model.ReferenceLink) error {
	start := time.Now()

	// SSRF検証。登録時にも検証済みだが、DNSの変化に備えて取得直前にも行う。
	if err := f.ssrfGuard.ValidateURL(link.URL); err != nil {
		f.logger.Warn("SSRF検証に失敗しました",
			slog.String("link_id", link.ID),
			slog.String("url", link.URL),
			slog.String("error", err.Error()),
		)
		return f.finish(ctx, link, "", "ssrf_blocked", start)
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "Fritter/1.0 Link Preview")
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Warn("HTTPリクエストに失敗しました",
			slog.String("link_id", link.ID),
			slog.String("url", link.URL),
			slog.String("error", err.Error()),
		)
		return f.finish(ctx, link, "", "http_error", start)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("タイトル取得が非200で応答されました",
			slog.String("link_id", link.ID),
			slog.String("url", link.URL),
			slog.Int("http_status", resp.StatusCode),
		)
		return f.finish(ctx, link, "", "http_status", start)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Warn("レスポンスボディの読み取りに失敗しました",
			slog.String("link_id", link.ID),
			slog.String("error", err.Error()),
		)
		return f.finish(ctx, link, "", "read_error", start)
	}

	title := ExtractTitle(string(body))
	if title == "" {
		return f.finish(ctx, link, "", "no_title", start)
	}

	f.logger.Info("タイトル取得が完了しました",
		slog.String("link_id", link.ID),
		slog.String("url", link.URL),
		slog.String("title", title),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return f.finish(ctx, link, title, "", start)
}

// finish は取得結果を保存し、メトリクスを記録する。
// タイトルが空でもtitle_fetched_atを更新して再試行を止める。
func (f *Fetcher) finish(ctx context.Context, link *model.ReferenceLink, title, failReason string, start time.Time) error {
	if err := f.linkRepo.UpdateTitle(ctx, link.ID, title); err != nil {
		return fmt.Errorf("タイトルの保存に失敗: %w", err)
	}

	if f.collector != nil {
		f.collector.RecordTitleFetchLatency(time.Since(start))
		if failReason == "" {
			f.collector.RecordTitleFetchSuccess()
		} else {
			f.collector.RecordTitleFetchFailure(failReason)
		}
	}
	return nil
}

// ExtractTitle はHTML文書から<title>要素のテキストを抽出する。
// 最初に現れたtitle要素を採用し、空白を正規化して返す。
// title要素が無い、またはパースできない場合は空文字列を返す。
func ExtractTitle(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.DataAtom.String() != "title" && token.Data != "title" {
				continue
			}
			if tokenizer.Next() != html.TextToken {
				return ""
			}
			return normalizeTitle(tokenizer.Token().Data)
		}
	}
}

// normalizeTitle は空白の連続を1つにまとめ、最大長に切り詰める。
func normalizeTitle(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")

	runes := []rune(title)
	if len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	return title
}
