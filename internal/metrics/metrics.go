// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやリンクプレビューワーカーから利用する。
type MetricsCollector interface {
	RecordFreetCreated()
	RecordVoteCast(credible bool)
	RecordTitleFetchSuccess()
	RecordTitleFetchFailure(reason string)
	RecordTitleFetchLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	freetsCreated     prometheus.Counter
	votesCast         *prometheus.CounterVec
	titleFetchSuccess prometheus.Counter
	titleFetchFail    *prometheus.CounterVec
	titleFetchLatency prometheus.Histogram
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		freetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fritter_freets_created_total",
			Help: "作成されたFreetの合計数",
		}),
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fritter_votes_cast_total",
			Help: "投票された信憑性投票の合計数",
		}, []string{"credible"}),
		titleFetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fritter_link_title_fetch_success_total",
			Help: "引用リンクのタイトル取得成功の合計数",
		}),
		titleFetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fritter_link_title_fetch_fail_total",
			Help: "引用リンクのタイトル取得失敗の合計数",
		}, []string{"reason"}),
		titleFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fritter_link_title_fetch_latency_seconds",
			Help:    "引用リンクのタイトル取得レイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fritter_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.freetsCreated,
		c.votesCast,
		c.titleFetchSuccess,
		c.titleFetchFail,
		c.titleFetchLatency,
		c.httpStatus,
	)

	return c
}

// RecordFreetCreated はFreetの作成を記録する。
func (c *Collector) RecordFreetCreated() {
	c.freetsCreated.Inc()
}

// RecordVoteCast は信憑性投票を記録する。
func (c *Collector) RecordVoteCast(credible bool) {
	c.votesCast.WithLabelValues(strconv.FormatBool(credible)).Inc()
}

// RecordTitleFetchSuccess はタイトル取得成功を記録する。
func (c *Collector) RecordTitleFetchSuccess() {
	c.titleFetchSuccess.Inc()
}

// RecordTitleFetchFailure はタイトル取得失敗を理由付きで記録する。
func (c *Collector) RecordTitleFetchFailure(reason string) {
	c.titleFetchFail.WithLabelValues(reason).Inc()
}

// RecordTitleFetchLatency はタイトル取得のレイテンシを記録する。
func (c *Collector) RecordTitleFetchLatency(duration time.Duration) {
	c.titleFetchLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
