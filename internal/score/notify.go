package score

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// GatewayClient calls the session gateway's internal admin endpoints.
// Delivery is best effort; the submission never fails on it.
type GatewayClient struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewGatewayClient creates a client for the bancho base URL,
// authenticating with the shared HMAC secret.
func NewGatewayClient(baseURL, key string) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		key:     key,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GatewayClient) post(ctx context.Context, path string, body map[string]any) {
	body["key"] = g.key
	data, err := json.Marshal(body)
	if err != nil {
		slog.Warn("encoding gateway request", "err", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		slog.Warn("building gateway request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		slog.Warn("calling gateway", "path", path, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("gateway rejected call", "path", path, "status", resp.StatusCode)
	}
}

// Notify delivers a message through the gateway: a bot PM, a channel
// message, or a client notification popup.
func (g *GatewayClient) Notify(ctx context.Context, message, messageType, target string) {
	g.post(ctx, "/api/v2/bancho/notification", map[string]any{
		"message":      message,
		"message_type": messageType,
		"target":       target,
	})
}

// Update asks the gateway to refresh a user's live session state.
// Known methods are "user:refresh" and "user:restricted".
func (g *GatewayClient) Update(ctx context.Context, method string, userID int32) {
	g.post(ctx, "/api/v2/bancho/update", map[string]any{
		"method":  method,
		"user_id": userID,
		"args":    []string{},
	})
}
