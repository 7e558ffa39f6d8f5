package bancho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Geo is the resolved location of a connecting client.
type Geo struct {
	Code string  `json:"countryCode"`
	Lat  float32 `json:"lat"`
	Lon  float32 `json:"lon"`
}

// Locator resolves client IPs to countries. A nil result means the
// lookup failed or the address was local; login proceeds either way.
type Locator interface {
	Locate(ctx context.Context, ip string) *Geo
}

// IPAPILocator queries ip-api.com.
type IPAPILocator struct {
	client *http.Client
}

// NewIPAPILocator creates the default locator.
func NewIPAPILocator() *IPAPILocator {
	return &IPAPILocator{client: &http.Client{Timeout: 5 * time.Second}}
}

// Locate resolves an IP. Loopback and empty addresses short-circuit
// to nil.
func (l *IPAPILocator) Locate(ctx context.Context, ip string) *Geo {
	if ip == "" || ip == "127.0.0.1" {
		return nil
	}
	url := fmt.Sprintf("http://ip-api.com/json/%s?fields=countryCode,lat,lon", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var g Geo
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil || g.Code == "" {
		return nil
	}
	return &g
}
