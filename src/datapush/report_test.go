package datapush

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliverydash/src/config"
	"deliverydash/src/dataset"
	"deliverydash/src/metrics"
	"deliverydash/src/processor"
	"deliverydash/src/storage"
)

// Prometheus collectors register globally, so the package shares one.
var testMetrics = metrics.NewCollector("deliverydash_datapush_test")

func newReportTable(t *testing.T) *dataset.Table {
	t.Helper()

	df := dataframe.New(
		series.New([]string{"01-01-2022", "02-01-2022"}, series.String, dataset.ColOrderDate),
		series.New([]string{"Urban", "Metropolitian"}, series.String, dataset.ColCity),
		series.New([]string{"4.6", "2.2"}, series.String, dataset.ColRating),
		series.New([]string{"25", "35"}, series.String, dataset.ColTimeTaken),
	)
	return dataset.NewTable(dataset.Normalize(df))
}

func newPusher(t *testing.T, mutate func(*config.Config)) *Pusher {
	t.Helper()

	cfg := &config.Config{}
	cfg.Dataset.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	return NewPusher(cfg, logger, testMetrics)
}

func TestExportWorkbook(t *testing.T) {
	p := newPusher(t, nil)
	vm := processor.Render(newReportTable(t), processor.Filters{})

	path, err := p.exportWorkbook(vm)
	require.NoError(t, err)
	assert.Equal(t, p.cfg.Dataset.DataDir, filepath.Dir(path))

	df, err := dataset.ReadXLSX(path, "")
	require.NoError(t, err)

	metricsCol := df.Col("Metric").Records()
	assert.Contains(t, metricsCol, "Count of Orders")
	assert.Contains(t, metricsCol, "Avg Time Taken (min)")
	assert.Contains(t, metricsCol, "Rating 5 Orders")

	values := df.Col("Value").Records()
	assert.Equal(t, "2", values[0])
}

func TestReportText(t *testing.T) {
	vm := processor.Render(newReportTable(t), processor.Filters{})

	text := reportText(vm)
	assert.Contains(t, text, "Orders: 2")
	assert.Contains(t, text, "Avg time taken: 30.00 min")
	assert.Contains(t, text, "Avg rating: 3.40")
}

func TestReportTextEmptyTable(t *testing.T) {
	vm := processor.Render(newReportTable(t), processor.Filters{Cities: []string{}})

	text := reportText(vm)
	assert.Contains(t, text, "Orders: 0")
	assert.NotContains(t, text, "Avg time taken")
	assert.NotContains(t, text, "Avg rating")
}

func TestPushWebhook(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	p := newPusher(t, func(cfg *config.Config) {
		cfg.Report.WebhookURL = ts.URL
	})
	vm := processor.Render(newReportTable(t), processor.Filters{})

	require.NoError(t, p.pushWebhook(vm))
	assert.Equal(t, 2, got.Summary.Orders)
	require.Len(t, got.RatingCounts, 2)
	assert.Equal(t, 2, got.RatingCounts[0].Rating)
	assert.Equal(t, 5, got.RatingCounts[1].Rating)
}

func TestRunWithWebhookOnly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := newPusher(t, func(cfg *config.Config) {
		cfg.Report.WebhookURL = ts.URL
	})

	p.Run(newReportTable(t))

	entries, err := os.ReadDir(p.cfg.Dataset.DataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "daily_report_")
}
