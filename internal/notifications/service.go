package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"spool/internal/config"
)

const userAgent = "spool/0.1.0"

// Slack attachment color bars.
const (
	colorGood    = "good"
	colorWarning = "warning"
	colorDanger  = "danger"
)

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyQueueStarted(ctx context.Context, queueTitle string, pending int) error
	NotifyQueueCompleted(ctx context.Context, queueTitle string, completed, failed int, duration time.Duration) error
	NotifyItemCompleted(ctx context.Context, itemTitle string, sizeBytes int64) error
	NotifyItemFailed(ctx context.Context, itemTitle, errorKind, message string) error
	NotifySizeThreshold(ctx context.Context, queueTitle string, totalBytes int64) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by a Slack webhook when
// configured. When no webhook URL is configured, a noop implementation is
// returned.
func NewService(cfg *config.Config) Service {
	webhookURL := strings.TrimSpace(cfg.Notifications.SlackWebhookURL)
	if webhookURL == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &slackService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		notifyItem: cfg.Notifications.Items,
		notifyErrs: cfg.Notifications.Errors,
		notifyQ:    cfg.Notifications.Queue,
	}
}

type slackService struct {
	webhookURL string
	client     *http.Client
	notifyQ    bool
	notifyItem bool
	notifyErrs bool
}

type attachment struct {
	Color  string  `json:"color,omitempty"`
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []field `json:"fields,omitempty"`
	Ts     int64   `json:"ts,omitempty"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type webhookPayload struct {
	Text        string       `json:"text,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

func (s *slackService) NotifyQueueStarted(ctx context.Context, queueTitle string, pending int) error {
	if !s.notifyQ {
		return nil
	}
	return s.send(ctx, attachment{
		Color: colorGood,
		Title: "Download queue started",
		Text:  fmt.Sprintf("%s: %d items to download", displayTitle(queueTitle), pending),
	})
}

func (s *slackService) NotifyQueueCompleted(ctx context.Context, queueTitle string, completed, failed int, duration time.Duration) error {
	if !s.notifyQ {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	color := colorGood
	title := "Download queue completed"
	if failed > 0 {
		color = colorWarning
		title = "Download queue completed with failures"
	}
	return s.send(ctx, attachment{
		Color: color,
		Title: title,
		Text:  displayTitle(queueTitle),
		Fields: []field{
			{Title: "Completed", Value: fmt.Sprintf("%d", completed), Short: true},
			{Title: "Failed", Value: fmt.Sprintf("%d", failed), Short: true},
			{Title: "Duration", Value: duration.String(), Short: true},
		},
	})
}

func (s *slackService) NotifyItemCompleted(ctx context.Context, itemTitle string, sizeBytes int64) error {
	if !s.notifyItem {
		return nil
	}
	text := displayTitle(itemTitle)
	if sizeBytes > 0 {
		text = fmt.Sprintf("%s (%s)", text, humanize.Bytes(uint64(sizeBytes)))
	}
	return s.send(ctx, attachment{
		Color: colorGood,
		Title: "Download completed",
		Text:  text,
	})
}

func (s *slackService) NotifyItemFailed(ctx context.Context, itemTitle, errorKind, message string) error {
	if !s.notifyErrs {
		return nil
	}
	return s.send(ctx, attachment{
		Color: colorDanger,
		Title: "Download failed",
		Text:  displayTitle(itemTitle),
		Fields: []field{
			{Title: "Kind", Value: errorKind, Short: true},
			{Title: "Error", Value: truncate(message, 300), Short: false},
		},
	})
}

func (s *slackService) NotifySizeThreshold(ctx context.Context, queueTitle string, totalBytes int64) error {
	if !s.notifyQ {
		return nil
	}
	return s.send(ctx, attachment{
		Color: colorWarning,
		Title: "Download size threshold crossed",
		Text: fmt.Sprintf("%s has downloaded %s this run",
			displayTitle(queueTitle), humanize.Bytes(uint64(totalBytes))),
	})
}

func (s *slackService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !s.notifyErrs {
		return nil
	}
	message := "unknown"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	title := "Error"
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		title = "Error: " + contextLabel
	}
	return s.send(ctx, attachment{
		Color: colorDanger,
		Title: title,
		Text:  truncate(message, 500),
	})
}

func (s *slackService) TestNotification(ctx context.Context) error {
	return s.send(ctx, attachment{
		Color: colorGood,
		Title: "Test notification",
		Text:  "Notification delivery is working",
	})
}

func (s *slackService) send(ctx context.Context, a attachment) error {
	if s == nil || s.client == nil {
		return nil
	}
	a.Ts = time.Now().Unix()

	body, err := json.Marshal(webhookPayload{Attachments: []attachment{a}})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled queue)"
	}
	return title
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

type noopService struct{}

func (noopService) NotifyQueueStarted(context.Context, string, int) error { return nil }

func (noopService) NotifyQueueCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyItemCompleted(context.Context, string, int64) error { return nil }

func (noopService) NotifyItemFailed(context.Context, string, string, string) error { return nil }

func (noopService) NotifySizeThreshold(context.Context, string, int64) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
