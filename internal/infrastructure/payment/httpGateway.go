package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

var ErrPaymentResourceNotFound = errors.New("payment resource not found at gateway")

// httpGateway talks to a Mercado-Pago-shaped REST API. Credentials and base
// URL are injected; nothing here is global.
type httpGateway struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewHTTPGateway(baseURL, accessToken string, timeout time.Duration) Gateway {
	return &httpGateway{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

func (g *httpGateway) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentResourceNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	return raw, nil
}

type preferencePayload struct {
	Items             []PreferenceItem  `json:"items"`
	Payer             map[string]string `json:"payer"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url"`
	StatementDesc     string            `json:"statement_descriptor"`
	Expires           bool              `json:"expires"`
	ExpirationFrom    string            `json:"expiration_date_from,omitempty"`
	ExpirationTo      string            `json:"expiration_date_to,omitempty"`
}

func (g *httpGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*CheckoutLink, error) {
	payload := preferencePayload{
		Items: req.Items,
		Payer: map[string]string{
			"name":  req.PayerName,
			"email": req.PayerEmail,
		},
		BackURLs: map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
			"pending": req.PendingURL,
		},
		AutoReturn:        "approved",
		ExternalReference: req.ExternalReference,
		NotificationURL:   req.NotificationURL,
		StatementDesc:     "ECOMMERCE",
	}
	if req.ExpiresIn > 0 {
		now := time.Now()
		payload.Expires = true
		payload.ExpirationFrom = now.Format(time.RFC3339)
		payload.ExpirationTo = now.Add(req.ExpiresIn).Format(time.RFC3339)
	}

	raw, err := g.do(ctx, http.MethodPost, "/checkout/preferences", payload)
	if err != nil {
		return nil, err
	}

	var body struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return &CheckoutLink{PreferenceID: body.ID, InitPoint: body.InitPoint, Raw: raw}, nil
}

type paymentBody struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
}

func paymentFromRaw(raw json.RawMessage) (*PaymentResource, error) {
	var body paymentBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return &PaymentResource{
		ID:                body.ID.String(),
		Status:            body.Status,
		ExternalReference: body.ExternalReference,
		TransactionAmount: body.TransactionAmount,
		Raw:               raw,
	}, nil
}

func (g *httpGateway) GetPayment(ctx context.Context, id string) (*PaymentResource, error) {
	raw, err := g.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return paymentFromRaw(raw)
}

func (g *httpGateway) SearchPaymentByReference(ctx context.Context, externalReference string) (*PaymentResource, error) {
	raw, err := g.do(ctx, http.MethodGet,
		"/v1/payments/search?sort=date_created&criteria=desc&external_reference="+url.QueryEscape(externalReference), nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, ErrPaymentResourceNotFound
	}
	return paymentFromRaw(body.Results[0])
}

type preapprovalPayload struct {
	Reason            string            `json:"reason"`
	PayerEmail        string            `json:"payer_email"`
	ExternalReference string            `json:"external_reference"`
	AutoRecurring     map[string]any    `json:"auto_recurring"`
	BackURLs          map[string]string `json:"back_urls"`
	Status            string            `json:"status"`
}

func (g *httpGateway) CreatePreapproval(ctx context.Context, req PreapprovalRequest) (*PreapprovalResource, error) {
	payload := preapprovalPayload{
		Reason:            req.Reason,
		PayerEmail:        req.PayerEmail,
		ExternalReference: req.ExternalReference,
		AutoRecurring: map[string]any{
			"frequency":          req.Frequency,
			"frequency_type":     req.FrequencyType,
			"transaction_amount": req.Amount,
			"currency_id":        "BRL",
		},
		BackURLs: map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
			"pending": req.PendingURL,
		},
		Status: StatusAuthorized,
	}

	raw, err := g.do(ctx, http.MethodPost, "/preapproval", payload)
	if err != nil {
		return nil, err
	}
	return preapprovalFromRaw(raw)
}

type preapprovalBody struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	ExternalReference string     `json:"external_reference"`
	InitPoint         string     `json:"init_point"`
	NextPaymentDate   *time.Time `json:"next_payment_date"`
}

func preapprovalFromRaw(raw json.RawMessage) (*PreapprovalResource, error) {
	var body preapprovalBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return &PreapprovalResource{
		ID:                body.ID,
		Status:            body.Status,
		ExternalReference: body.ExternalReference,
		InitPoint:         body.InitPoint,
		NextPaymentDate:   body.NextPaymentDate,
		Raw:               raw,
	}, nil
}

func (g *httpGateway) GetPreapproval(ctx context.Context, id string) (*PreapprovalResource, error) {
	raw, err := g.do(ctx, http.MethodGet, "/preapproval/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return preapprovalFromRaw(raw)
}

func (g *httpGateway) CancelPreapproval(ctx context.Context, id string) error {
	_, err := g.do(ctx, http.MethodPut, "/preapproval/"+url.PathEscape(id),
		map[string]string{"status": StatusCancelled})
	return err
}
