// Package webhook posts moderation alerts to a Discord webhook.
// Delivery is best effort: failures are logged, never propagated.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier posts embeds to a single webhook URL. A Notifier with an
// empty URL silently drops everything.
type Notifier struct {
	url    string
	client *http.Client
}

// New creates a Notifier for the given webhook URL.
func New(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
}

type payload struct {
	Embeds []embed `json:"embeds"`
}

const (
	colorRed    = 0xE74C3C
	colorOrange = 0xE67E22
)

func (n *Notifier) post(ctx context.Context, p payload) {
	if n.url == "" {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		slog.Warn("encoding webhook payload", "err", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("building webhook request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("posting webhook", "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("webhook rejected", "status", resp.StatusCode)
	}
}

// PunishmentAlert reports a moderation action against a user.
func (n *Notifier) PunishmentAlert(ctx context.Context, username string, userID int32, punishmentType, level, note string) {
	n.post(ctx, payload{Embeds: []embed{{
		Title: fmt.Sprintf("%s issued against %s (%d)", punishmentType, username, userID),
		Color: colorRed,
		Fields: []embedField{
			{Name: "Level", Value: level, Inline: true},
			{Name: "Note", Value: note},
		},
	}}})
}

// HWIDCollision reports a login whose machine fingerprint matches
// other accounts.
func (n *Notifier) HWIDCollision(ctx context.Context, username string, userID int32, matchedIDs []int32) {
	n.post(ctx, payload{Embeds: []embed{{
		Title:       fmt.Sprintf("Hardware match on login: %s (%d)", username, userID),
		Description: fmt.Sprintf("Fingerprint shared with user ids %v", matchedIDs),
		Color:       colorOrange,
	}}})
}
