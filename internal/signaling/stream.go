package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const callType = "default"

// StreamProvider talks to a Stream-Video-style REST API. Join tokens are
// minted locally by signing with the API secret, the same scheme the
// provider's own server SDKs use.
type StreamProvider struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

// NewStreamProvider creates a provider bound to the given credentials
func NewStreamProvider(apiKey, apiSecret, baseURL string) *StreamProvider {
	return &StreamProvider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCall registers the call with the provider and returns its cid
func (p *StreamProvider) CreateCall(ctx context.Context, callID, createdBy uuid.UUID) (string, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"created_by_id": createdBy.String(),
		},
	}

	var result struct {
		Call struct {
			CID string `json:"cid"`
		} `json:"call"`
	}

	path := fmt.Sprintf("/video/call/%s/%s", callType, callID)
	if err := p.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return "", fmt.Errorf("failed to create provider call: %w", err)
	}

	if result.Call.CID == "" {
		return fmt.Sprintf("%s:%s", callType, callID), nil
	}
	return result.Call.CID, nil
}

// IssueToken mints a join token for the user, valid for one day
func (p *StreamProvider) IssueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.apiSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign provider token: %w", err)
	}

	return signed, nil
}

// EndCall marks the provider-side call as ended
func (p *StreamProvider) EndCall(ctx context.Context, handle string) error {
	path := fmt.Sprintf("/video/call/%s/mark_ended", url.PathEscape(handle))
	if err := p.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to end provider call: %w", err)
	}
	return nil
}

// serverToken mints the server-to-server credential for API requests
func (p *StreamProvider) serverToken() (string, error) {
	claims := jwt.MapClaims{
		"server": true,
		"iat":    time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.apiSecret))
}

func (p *StreamProvider) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := fmt.Sprintf("%s%s?api_key=%s", p.baseURL, path, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	auth, err := p.serverToken()
	if err != nil {
		return fmt.Errorf("failed to sign server token: %w", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("stream-auth-type", "jwt")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}
