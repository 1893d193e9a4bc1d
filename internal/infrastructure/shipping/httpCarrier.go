package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// httpCarrier quotes shipments against a Melhor-Envio-shaped API. Quotes for
// identical inputs are cached for a short TTL to spare the rate limit.
type httpCarrier struct {
	baseURL string
	token   string
	client  *http.Client

	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]cachedQuote
}

type cachedQuote struct {
	options []QuoteOption
	expires time.Time
}

func NewHTTPCarrier(baseURL, token string, timeout time.Duration) Carrier {
	return &httpCarrier{
		baseURL:  baseURL,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		cacheTTL: 10 * time.Minute,
		cache:    make(map[string]cachedQuote),
	}
}

type calculatePayload struct {
	From     map[string]string  `json:"from"`
	To       map[string]string  `json:"to"`
	Products []calculateProduct `json:"products"`
}

type calculateProduct struct {
	ID             string          `json:"id"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	Length         int             `json:"length"`
	Weight         decimal.Decimal `json:"weight"`
	InsuranceValue decimal.Decimal `json:"insurance_value"`
	Quantity       int             `json:"quantity"`
}

type calculateResult struct {
	ID           json.Number     `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DeliveryTime int             `json:"delivery_time"`
	Company      struct {
		Name string `json:"name"`
	} `json:"company"`
	Error string `json:"error"`
}

func (c *httpCarrier) Quote(ctx context.Context, fromCEP, toCEP string, items []QuoteItem) ([]QuoteOption, error) {
	key := cacheKey(fromCEP, toCEP, items)

	c.mu.Lock()
	if hit, ok := c.cache[key]; ok && time.Now().Before(hit.expires) {
		options := hit.options
		c.mu.Unlock()
		return options, nil
	}
	c.mu.Unlock()

	payload := calculatePayload{
		From: map[string]string{"postal_code": fromCEP},
		To:   map[string]string{"postal_code": toCEP},
	}
	for _, it := range items {
		payload.Products = append(payload.Products, calculateProduct{
			ID:             it.ProductID.String(),
			Width:          orDefault(it.WidthCm, 10),
			Height:         orDefault(it.HeightCm, 10),
			Length:         orDefault(it.LengthCm, 10),
			Weight:         defaultWeight(it.WeightKg),
			InsuranceValue: it.InsuranceValue,
			Quantity:       it.Quantity,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipment/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("carrier calculate: status %d: %s", resp.StatusCode, raw)
	}

	var results []calculateResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, err
	}

	var options []QuoteOption
	for _, r := range results {
		if r.Error != "" {
			continue // service unavailable for this route
		}
		options = append(options, QuoteOption{
			ID:           r.ID.String(),
			Name:         r.Name,
			Price:        r.Price,
			Company:      r.Company.Name,
			DeliveryDays: r.DeliveryTime,
		})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Price.LessThan(options[j].Price) })

	c.mu.Lock()
	c.cache[key] = cachedQuote{options: options, expires: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()

	return options, nil
}

func cacheKey(from, to string, items []QuoteItem) string {
	var b strings.Builder
	b.WriteString(from)
	b.WriteByte('|')
	b.WriteString(to)
	for _, it := range items {
		fmt.Fprintf(&b, "|%s:%d", it.ProductID, it.Quantity)
	}
	return b.String()
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func defaultWeight(w decimal.Decimal) decimal.Decimal {
	if w.IsPositive() {
		return w
	}
	return decimal.NewFromFloat(0.3)
}
