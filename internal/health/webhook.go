package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type WebhookSender struct {
	URL    string
	Format string
	Client *http.Client
}

func NewWebhookSender(url, format string) *WebhookSender {
	return &WebhookSender{
		URL:    url,
		Format: format,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

const (
	colorDown      = 0xFF0000
	colorRecovered = 0x00FF00
)

// SendAlert reports a probe that has failed failures times in a row. The
// payload carries the last result: expected and observed status, latency
// and the transport error if any.
func (ws *WebhookSender) SendAlert(r Result, failures int) error {
	if ws.URL == "" {
		return nil
	}

	var payload []byte
	var err error

	switch ws.Format {
	case "slack":
		payload, err = json.Marshal(map[string]string{
			"text": fmt.Sprintf("*%s* is DOWN (%s), %d consecutive failures\n%s", r.Name, r.URL, failures, describe(r)),
		})
	default:
		payload, err = json.Marshal(map[string]interface{}{
			"embeds": []map[string]interface{}{
				{
					"title":       fmt.Sprintf("Probe Down: %s", r.Name),
					"url":         r.URL,
					"description": fmt.Sprintf("%d consecutive failures", failures),
					"color":       colorDown,
					"fields":      resultFields(r),
					"timestamp":   r.CheckedAt.Format(time.RFC3339),
				},
			},
		})
	}
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return ws.post(payload)
}

// SendRecovery reports a probe answering its expected status again.
func (ws *WebhookSender) SendRecovery(r Result) error {
	if ws.URL == "" {
		return nil
	}

	var payload []byte
	var err error

	switch ws.Format {
	case "slack":
		payload, err = json.Marshal(map[string]string{
			"text": fmt.Sprintf("*%s* is back UP (%s)\n%s", r.Name, r.URL, describe(r)),
		})
	default:
		payload, err = json.Marshal(map[string]interface{}{
			"embeds": []map[string]interface{}{
				{
					"title":     fmt.Sprintf("Probe Recovered: %s", r.Name),
					"url":       r.URL,
					"color":     colorRecovered,
					"fields":    resultFields(r),
					"timestamp": r.CheckedAt.Format(time.RFC3339),
				},
			},
		})
	}
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return ws.post(payload)
}

// describe renders a result as one line: "HTTP 502, expected 200 in 84ms".
func describe(r Result) string {
	var s string
	if r.Status == 0 {
		s = fmt.Sprintf("no response, expected %d", r.Expected)
	} else {
		s = fmt.Sprintf("HTTP %d, expected %d", r.Status, r.Expected)
	}
	s += fmt.Sprintf(" in %dms", r.LatencyMs)
	if r.Error != "" {
		s += "\nLast error: " + r.Error
	}
	return s
}

func resultFields(r Result) []map[string]interface{} {
	got := "none"
	if r.Status != 0 {
		got = strconv.Itoa(r.Status)
	}
	fields := []map[string]interface{}{
		{"name": "Expected", "value": strconv.Itoa(r.Expected), "inline": true},
		{"name": "Got", "value": got, "inline": true},
		{"name": "Latency", "value": fmt.Sprintf("%dms", r.LatencyMs), "inline": true},
	}
	if r.Error != "" {
		fields = append(fields, map[string]interface{}{"name": "Error", "value": r.Error})
	}
	return fields
}

func (ws *WebhookSender) post(payload []byte) error {
	resp, err := ws.Client.Post(ws.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
