package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/stockbook/internal/config"
)

// MaxBodyLength is the Cloud API limit for a text body, in characters.
const MaxBodyLength = 4096

const truncationMarker = "..."

var (
	// ErrInvalidRecipient indicates a phone number that is not 6 to 15 digits
	// once separators and the international prefix are removed.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrEmptyBody indicates a message without any text.
	ErrEmptyBody = errors.New("message body is empty")
)

// Client sends text messages through the WhatsApp Cloud API.
type Client interface {
	SendText(ctx context.Context, msg TextMessage) (*Receipt, error)
}

// TextMessage is a plain text message. To may carry spaces, dashes,
// parentheses and a leading "+" or "00".
type TextMessage struct {
	To         string
	Body       string
	PreviewURL bool
}

// Receipt is the successful response from the messages endpoint.
type Receipt struct {
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the id of the first accepted message, if any.
func (r *Receipt) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status  int
	Code    int
	Subcode int
	Type    string
	Message string
	TraceID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d subcode=%d message=%s", e.Status, e.Code, e.Subcode, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration
// values. Transport failures, 429 and 5xx answers are retried twice.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendText normalises the recipient, truncates the body to MaxBodyLength
// characters and posts it.
func (c *APIClient) SendText(ctx context.Context, msg TextMessage) (*Receipt, error) {
	to, err := NormalizeRecipient(msg.To)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	payload := textPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: TruncateBody(body), PreviewURL: msg.PreviewURL},
	}

	receipt := new(Receipt)
	envelope := new(errorEnvelope)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(receipt).
		SetError(envelope).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() {
		return nil, &APIError{
			Status:  resp.StatusCode(),
			Code:    envelope.Error.Code,
			Subcode: envelope.Error.Subcode,
			Type:    envelope.Error.Type,
			Message: envelope.Error.Message,
			TraceID: envelope.Error.FBTraceID,
		}
	}

	return receipt, nil
}

// NormalizeRecipient reduces a phone number to the bare digits the API
// expects ("+224 620-00-00-00" becomes "224620000000").
func NormalizeRecipient(to string) (string, error) {
	digits := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(strings.TrimSpace(to))
	switch {
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	}

	if len(digits) < 6 || len(digits) > 15 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
		}
	}
	return digits, nil
}

// TruncateBody cuts body to at most MaxBodyLength characters, ending with
// "..." when anything was dropped. It never splits a multi-byte character.
func TruncateBody(body string) string {
	if utf8.RuneCountInString(body) <= MaxBodyLength {
		return body
	}

	keep := MaxBodyLength - len(truncationMarker)
	for i := range body {
		if keep == 0 {
			return body[:i] + truncationMarker
		}
		keep--
	}
	return body
}
