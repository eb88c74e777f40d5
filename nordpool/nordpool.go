package nordpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/angas/dayahead-go/marketday"
)

// ErrNotPublished signals that the requested day has no published prices
// yet. Expected for tomorrow before the publication cutoff.
var ErrNotPublished = errors.New("day-ahead prices not published yet")

type Client struct {
	baseURL string
	client  *http.Client
}

func New() *Client {
	return NewWithBaseURL(API_URL)
}

func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchDayAhead fetches the price curve for one area and delivery day.
func (c *Client) FetchDayAhead(ctx context.Context, area string, day marketday.Day, currency string) (*DayAheadPayload, error) {
	q := url.Values{}
	q.Set("date", day.String())
	q.Set("market", Market)
	q.Set("deliveryArea", area)
	q.Set("currency", currency)
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	// The portal answers 204 before publication; 404 shows up for dates
	// outside the published range.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotPublished
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload DayAheadPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &payload, nil
}
