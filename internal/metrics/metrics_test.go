package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordFeedFetched_IncrementsCounterAndObservesLatency はフィード取得成功の記録を検証する。
func TestRecordFeedFetched_IncrementsCounterAndObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedFetched(100 * time.Millisecond)
	c.RecordFeedFetched(300 * time.Millisecond)

	fetched := gatherFamily(t, reg, "rss2notion_feeds_fetched_total")
	if val := fetched.GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("feeds_fetched_total = %v, want 2", val)
	}

	latency := gatherFamily(t, reg, "rss2notion_fetch_latency_seconds")
	h := latency.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if sum := h.GetSampleSum(); sum < 0.39 || sum > 0.41 {
		t.Errorf("sample sum = %v, want ~0.4", sum)
	}
}

// TestRecordFeedFailure_IncrementsCounter はフィード取得失敗カウンタが増加することを検証する。
func TestRecordFeedFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedFailure()

	mf := gatherFamily(t, reg, "rss2notion_feeds_failed_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("feeds_failed_total = %v, want 1", val)
	}
}

// TestRecordItemSkipped_IncrementsCounterWithLabel は理由ラベル別に記録されることを検証する。
func TestRecordItemSkipped_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordItemSkipped(ReasonOld)
	c.RecordItemSkipped(ReasonOld)
	c.RecordItemSkipped(ReasonDuplicate)

	mf := gatherFamily(t, reg, "rss2notion_items_skipped_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "reason" {
				got[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if got[ReasonOld] != 2 {
		t.Errorf("reason=old = %v, want 2", got[ReasonOld])
	}
	if got[ReasonDuplicate] != 1 {
		t.Errorf("reason=duplicate = %v, want 1", got[ReasonDuplicate])
	}
	if _, ok := got[ReasonKeyword]; ok {
		t.Error("未記録の理由ラベルは出力されないべき")
	}
}

// TestRecordItemCounters は記事の処理・保存・書き込み失敗カウンタを検証する。
func TestRecordItemCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordItemSeen()
	c.RecordItemSeen()
	c.RecordItemSeen()
	c.RecordItemStored()
	c.RecordWriteFailure()

	tests := []struct {
		name string
		want float64
	}{
		{"rss2notion_items_seen_total", 3},
		{"rss2notion_items_stored_total", 1},
		{"rss2notion_write_failures_total", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := gatherFamily(t, reg, tt.name)
			if val := mf.GetMetric()[0].GetCounter().GetValue(); val != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, val, tt.want)
			}
		})
	}
}

// TestRecordRunCompleted_SetsGauges は実行完了時のゲージが設定されることを検証する。
func TestRecordRunCompleted_SetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	before := float64(time.Now().Unix())
	c.RecordRunCompleted(2 * time.Second)

	duration := gatherFamily(t, reg, "rss2notion_run_duration_seconds")
	if val := duration.GetMetric()[0].GetGauge().GetValue(); val != 2 {
		t.Errorf("run_duration_seconds = %v, want 2", val)
	}

	last := gatherFamily(t, reg, "rss2notion_last_success_timestamp_seconds")
	if val := last.GetMetric()[0].GetGauge().GetValue(); val < before {
		t.Errorf("last_success_timestamp_seconds = %v, want >= %v", val, before)
	}
}

// TestPush_SendsMetricsToGateway はPushgatewayへメトリクスが送信されることを検証する。
func TestPush_SendsMetricsToGateway(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordItemStored()

	if err := Push(context.Background(), server.URL, reg); err != nil {
		t.Fatalf("Push がエラーを返した: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/metrics/job/"+JobName {
		t.Errorf("path = %s, want /metrics/job/%s", gotPath, JobName)
	}
	if !strings.Contains(gotBody, "rss2notion_items_stored_total") {
		t.Error("送信内容にrss2notion_items_stored_totalが含まれるべき")
	}
}

// TestPush_GatewayErrorIsReturned はPushgatewayのエラー応答がエラーとして返ることを検証する。
func TestPush_GatewayErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	if err := Push(context.Background(), server.URL, reg); err == nil {
		t.Fatal("Pushgatewayがエラーを返した場合はエラーになるべき")
	}
}

func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
	var _ MetricsCollector = NopCollector{}
}

func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordItemStored()

	mf := gatherFamily(t, reg2, "rss2notion_items_stored_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 0 {
		t.Errorf("reg2 の items_stored_total = %v, want 0", val)
	}
}
