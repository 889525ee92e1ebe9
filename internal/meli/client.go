package meli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "https://api.mercadolibre.com"

// TokenSource hands out a bearer token per call. Fetching one may trigger a
// refresh behind the scenes.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/orders/%s", c.baseURL, orderID), "fetching order "+orderID)
	if err != nil {
		return Order{}, err
	}
	return ParseOrder(body)
}

func (c *Client) GetShipment(ctx context.Context, shipmentID int64) (Shipment, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/shipments/%d", c.baseURL, shipmentID), fmt.Sprintf("fetching shipment %d", shipmentID))
	if err != nil {
		return Shipment{}, err
	}
	return ParseShipment(body)
}

// DownloadLabel fetches the shipping label PDF. A zero-length body is
// reported as a distinct condition so the pipeline can skip the document
// without failing the event.
func (c *Client) DownloadLabel(ctx context.Context, shipmentID int64) ([]byte, error) {
	url := fmt.Sprintf("%s/shipment_labels?shipment_ids=%d&response_type=pdf", c.baseURL, shipmentID)
	body, err := c.get(ctx, url, fmt.Sprintf("downloading label %d", shipmentID))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fault.EmptyDocument(fmt.Sprintf("label %d: empty document", shipmentID))
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string, op string) ([]byte, error) {
	accessToken, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fault.WrapTransient(err, op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.WrapTransient(err, op)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fault.Transient(op, resp.StatusCode, string(body))
	}

	return body, nil
}
