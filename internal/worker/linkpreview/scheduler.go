// Package linkpreview は引用リンクのタイトル取得をバックグラウンドで行う。
// スケジューラとフェッチャーを含む。
package linkpreview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/fritter/internal/model"
	"github.com/hitoshi/fritter/internal/repository"
)

// TitleFetcherService はタイトル取得の実行インターフェース。
type TitleFetcherService interface {
	// Fetch は引用リンク先のページタイトルを取得し、結果を保存する。
	Fetch(ctx context.Context, link *model.ReferenceLink) error
}

// Scheduler はタイトル取得のスケジューリングと並列制御を行う。
// 一定間隔のティッカーで未取得リンクを取得し、
// semaphoreパターンで最大並列数を制御しながら取得を実行する。
type Scheduler struct {
	linkRepo       repository.LinkRepository
	fetcher        TitleFetcherService
	logger         *slog.Logger
	batchSize      int
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// batchSizeが0以下の場合は50、maxConcurrencyが0以下の場合は10を使用する。
func NewScheduler(
	linkRepo repository.LinkRepository,
	fetcher TitleFetcherService,
	logger *slog.Logger,
	batchSize int,
	maxConcurrency int,
) *Scheduler {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		linkRepo:       linkRepo,
		fetcher:        fetcher,
		logger:         logger,
		batchSize:      batchSize,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("タイトル取得スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", s.batchSize),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("タイトル取得サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("タイトル取得スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("タイトル取得サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はタイトル未取得のリンクを1バッチ取得し、並列で取得を実行する。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	links, err := s.linkRepo.ListNeedingTitleFetch(ctx, s.batchSize)
	if err != nil {
		return err
	}

	if len(links) == 0 {
		s.logger.Info("タイトル取得対象のリンクはありません")
		return nil
	}

	s.logger.Info("タイトル取得サイクルを開始します",
		slog.Int("link_count", len(links)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, link := range links {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(l *model.ReferenceLink) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.fetcher.Fetch(ctx, l); err != nil {
				s.logger.Error("タイトル取得に失敗しました",
					slog.String("link_id", l.ID),
					slog.String("url", l.URL),
					slog.String("error", err.Error()),
				)
			}
		}(link)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("タイトル取得サイクルが完了しました",
		slog.Int("link_count", len(links)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
