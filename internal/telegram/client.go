// Package telegram delivers notifications to a fixed chat via the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"github.com/md-rashed-zaman/melinotify/internal/secrets"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "https://api.telegram.org"

// Credentials is the chat credential bundle as stored in the secret provider.
type Credentials struct {
	BotToken string `json:"telegramBotToken"`
	ChatID   string `json:"telegramChatId"`
}

func ParseCredentials(raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("invalid telegram credentials: %w", err)
	}
	if creds.BotToken == "" || creds.ChatID == "" {
		return Credentials{}, fmt.Errorf("telegram credentials: telegramBotToken and telegramChatId are required")
	}
	return creds, nil
}

type Document struct {
	Bytes    []byte
	Filename string
	Caption  string
}

// Limiter paces outbound sends. Nil disables pacing.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Client performs one outbound request per call and authenticates each call
// independently. Retry policy belongs to the queue layer, not here.
type Client struct {
	http      *http.Client
	baseURL   string
	provider  secrets.Provider
	secretRef string
	limiter   Limiter
}

func NewClient(baseURL string, provider secrets.Provider, secretRef string, limiter Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   baseURL,
		provider:  provider,
		secretRef: secretRef,
		limiter:   limiter,
	}
}

func (c *Client) SendMessage(ctx context.Context, text string) error {
	creds, err := c.credentials(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    creds.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, creds.BotToken), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, "telegram sendMessage")
}

func (c *Client) SendDocument(ctx context.Context, doc Document) error {
	creds, err := c.credentials(ctx)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("chat_id", creds.ChatID); err != nil {
		return err
	}
	if doc.Caption != "" {
		if err := form.WriteField("caption", doc.Caption); err != nil {
			return err
		}
		if err := form.WriteField("parse_mode", "Markdown"); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("document", doc.Filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(doc.Bytes); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendDocument", c.baseURL, creds.BotToken), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return c.send(req, "telegram sendDocument")
}

func (c *Client) send(req *http.Request, op string) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(req.Context()); err != nil {
			return err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fault.WrapTransient(err, op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fault.Transient(op, resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) credentials(ctx context.Context) (Credentials, error) {
	raw, err := c.provider.Resolve(ctx, c.secretRef)
	if err != nil {
		return Credentials{}, fault.WrapAuth(err, "resolving telegram credentials")
	}
	creds, err := ParseCredentials(raw)
	if err != nil {
		return Credentials{}, fault.WrapAuth(err, "resolving telegram credentials")
	}
	return creds, nil
}
