package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPResolver resolves internal user display names from the identity
// service. The identity service owns user records; this client only reads
// names for session views.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	endpoint := fmt.Sprintf("%s/api/v1/users/display-names?ids=%s", r.baseURL, url.QueryEscape(strings.Join(userIDs, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve display names: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve display names: unexpected status %d", resp.StatusCode)
	}
	var payload struct {
		Names map[string]string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("resolve display names: %w", err)
	}
	if payload.Names == nil {
		payload.Names = map[string]string{}
	}
	return payload.Names, nil
}

// PassthroughResolver names users by their id. Used when no identity
// service is configured (dev, tests).
type PassthroughResolver struct{}

func NewPassthroughResolver() *PassthroughResolver { return &PassthroughResolver{} }

func (PassthroughResolver) Resolve(_ context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		names[id] = id
	}
	return names, nil
}
