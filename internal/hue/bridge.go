// Package hue connects to a Hue bridge entertainment group: it arms streaming
// over the bridge REST API, resolves the group's lights and opens the DTLS
// channel that frames are streamed on.
package hue

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var ErrNoLights = errors.New("group has no lights")

// Bridge is the REST side of a hub.
type Bridge struct {
	BaseURL  string
	Username string
	Client   *http.Client
}

// NewBridge talks https to host. Bridges serve a self signed certificate so
// verification is off.
func NewBridge(host, username string) *Bridge {
	return &Bridge{
		BaseURL:  "https://" + host,
		Username: username,
		Client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		},
	}
}

func (b *Bridge) groupURL(group int) string {
	return fmt.Sprintf("%s/api/%s/groups/%d", b.BaseURL, b.Username, group)
}

type streamState struct {
	Stream struct {
		Active bool `json:"active"`
	} `json:"stream"`
}

type apiError struct {
	Error *struct {
		Type        int    `json:"type"`
		Address     string `json:"address"`
		Description string `json:"description"`
	} `json:"error"`
}

// SetStreaming arms or disarms streaming mode on an entertainment group.
func (b *Bridge) SetStreaming(ctx context.Context, group int, active bool) error {
	var body streamState
	body.Stream.Active = active
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.groupURL(group), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = b.do(req)
	return err
}

// GroupLights returns the light ids of group in the bridge's order.
func (b *Bridge) GroupLights(ctx context.Context, group int) ([]uint16, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.groupURL(group), nil)
	if err != nil {
		return nil, err
	}
	raw, err := b.do(req)
	if err != nil {
		return nil, err
	}
	return parseLights(raw)
}

func (b *Bridge) do(req *http.Request) ([]byte, error) {
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hue %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hue %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hue %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	if err := checkAPIError(raw); err != nil {
		return nil, fmt.Errorf("hue %s %s: %w", req.Method, req.URL.Path, err)
	}
	return raw, nil
}

// checkAPIError picks the first error out of a bridge result list. Bridges
// answer 200 even when the request was refused.
func checkAPIError(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var results []apiError
	if err := json.Unmarshal(raw, &results); err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("bridge error %d: %s", r.Error.Type, r.Error.Description)
		}
	}
	return nil
}

func parseLights(raw []byte) ([]uint16, error) {
	var group struct {
		Lights []string `json:"lights"`
	}
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	if len(group.Lights) == 0 {
		return nil, ErrNoLights
	}
	ids := make([]uint16, 0, len(group.Lights))
	for _, l := range group.Lights {
		id, err := strconv.ParseUint(l, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("light id %q: %w", l, err)
		}
		ids = append(ids, uint16(id))
	}
	return ids, nil
}
