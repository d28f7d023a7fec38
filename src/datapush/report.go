package datapush

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jordan-wright/email"

	"deliverydash/src/config"
	"deliverydash/src/dataset"
	"deliverydash/src/metrics"
	"deliverydash/src/processor"
	"deliverydash/src/storage"
)

const (
	retryTimes    = 5
	retryInterval = 2 * time.Second
	pushTimeout   = 10 * time.Second
)

// Pusher delivers the daily operations report: a workbook over SMTP and a
// compact JSON summary to the ops webhook. Either channel may be left
// unconfigured.
type Pusher struct {
	cfg     *config.Config
	logger  *storage.Logger
	metrics *metrics.Collector
}

func NewPusher(cfg *config.Config, logger *storage.Logger, collector *metrics.Collector) *Pusher {
	return &Pusher{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
	}
}

// Run renders the unfiltered view model and pushes it out. Delivery
// failures are logged and counted, never fatal.
func (p *Pusher) Run(table *dataset.Table) {
	vm := processor.Render(table, processor.Filters{})

	reportPath, err := p.exportWorkbook(vm)
	if err != nil {
		p.logger.Error("export report workbook: " + err.Error())
	}

	if p.cfg.Report.SMTPServer != "" && reportPath != "" {
		if err := p.sendReportEmail(vm, reportPath); err != nil {
			p.logger.Error("send report email: " + err.Error())
			p.metrics.RecordReportPush("email", "error")
		} else {
			p.metrics.RecordReportPush("email", "ok")
		}
	}

	if p.cfg.Report.WebhookURL != "" {
		if err := p.pushWebhook(vm); err != nil {
			p.logger.Error("push report webhook: " + err.Error())
			p.metrics.RecordReportPush("webhook", "error")
		} else {
			p.metrics.RecordReportPush("webhook", "ok")
		}
	}
}

// exportWorkbook writes the headline numbers and the rating distribution
// into a dated xlsx in the data directory.
func (p *Pusher) exportWorkbook(vm processor.ViewModel) (string, error) {
	dir := p.cfg.Dataset.DataDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	labels := []string{"Count of Orders"}
	values := []string{fmt.Sprintf("%d", vm.Summary.Orders)}
	if vm.Summary.AvgTimeTaken != nil {
		labels = append(labels, "Avg Time Taken (min)")
		values = append(values, fmt.Sprintf("%.2f", *vm.Summary.AvgTimeTaken))
	}
	if vm.Summary.AvgRating != nil {
		labels = append(labels, "Avg Rating")
		values = append(values, fmt.Sprintf("%.2f", *vm.Summary.AvgRating))
	}
	for _, rc := range vm.RatingDistribution {
		labels = append(labels, fmt.Sprintf("Rating %d Orders", rc.Rating))
		values = append(values, fmt.Sprintf("%d", rc.Orders))
	}

	df := dataframe.New(
		series.New(labels, series.String, "Metric"),
		series.New(values, series.String, "Value"),
	)

	path := filepath.Join(dir, fmt.Sprintf("daily_report_%s.xlsx", time.Now().Format("20060102")))
	if err := dataset.WriteXLSX(df, path); err != nil {
		return "", err
	}
	return path, nil
}

func (p *Pusher) sendReportEmail(vm processor.ViewModel, attachmentPath string) error {
	r := p.cfg.Report

	e := email.NewEmail()
	e.From = fmt.Sprintf("Delivery Dashboard <%s>", r.Username)
	e.To = []string{r.To}
	e.Subject = fmt.Sprintf("Delivery operations report %s", time.Now().Format("2006-01-02"))
	e.Text = []byte(reportText(vm))

	if _, err := e.AttachFile(attachmentPath); err != nil {
		return fmt.Errorf("attach %s: %w", attachmentPath, err)
	}

	smtpAddr := r.SMTPServer
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465"
	}
	host := strings.Split(smtpAddr, ":")[0]

	return e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", r.Username, r.Password, host),
		&tls.Config{ServerName: host},
	)
}

func reportText(vm processor.ViewModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Orders: %d\n", vm.Summary.Orders)
	if vm.Summary.AvgTimeTaken != nil {
		fmt.Fprintf(&b, "Avg time taken: %.2f min\n", *vm.Summary.AvgTimeTaken)
	}
	if vm.Summary.AvgRating != nil {
		fmt.Fprintf(&b, "Avg rating: %.2f\n", *vm.Summary.AvgRating)
	}
	return b.String()
}

// webhookPayload is the compact summary posted to the ops webhook.
type webhookPayload struct {
	Date         string                  `json:"date"`
	Summary      processor.Summary       `json:"summary"`
	RatingCounts []processor.RatingCount `json:"rating_counts"`
}

// pushWebhook posts the summary, retrying transient failures a bounded
// number of times.
func (p *Pusher) pushWebhook(vm processor.ViewModel) error {
	payload, err := json.Marshal(webhookPayload{
		Date:         time.Now().Format("2006-01-02"),
		Summary:      vm.Summary,
		RatingCounts: vm.RatingDistribution,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: pushTimeout}

	var lastErr error
	for attempt := 1; attempt <= retryTimes; attempt++ {
		resp, err := client.Post(p.cfg.Report.WebhookURL, "application/json", bytes.NewReader(payload))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("webhook returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < retryTimes {
			time.Sleep(retryInterval)
		}
	}

	return fmt.Errorf("webhook push failed after %d attempts: %w", retryTimes, lastErr)
}
