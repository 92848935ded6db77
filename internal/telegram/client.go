package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.telegram.org"

// Client talks to the Telegram Bot API over HTTP. All messages are sent
// with HTML parse mode and link previews disabled, matching the message
// formatting used by the notifier.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// New creates a Client for the given bot token.
func New(token string) *Client {
	return NewWithEndpoint(token, defaultEndpoint)
}

// NewWithEndpoint creates a Client against a custom API endpoint (used by tests).
func NewWithEndpoint(token, endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// apiResponse mirrors the Bot API envelope. Result is decoded lazily since
// its shape depends on the method.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type messageResult struct {
	MessageID int64 `json:"message_id"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.endpoint, c.token, method)
}

func (c *Client) postJSON(ctx context.Context, method string, payload any, timeout time.Duration) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, method)
}

func (c *Client) do(req *http.Request, method string) (*apiResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !ar.OK {
		return &ar, fmt.Errorf("%s failed: %s", method, ar.Description)
	}
	return &ar, nil
}

func decodeMessageID(ar *apiResponse) (int64, error) {
	var mr messageResult
	if err := json.Unmarshal(ar.Result, &mr); err != nil {
		return 0, fmt.Errorf("decoding message id: %w", err)
	}
	return mr.MessageID, nil
}

// SendMessage sends an HTML-formatted text message and returns its message id.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (int64, error) {
	ar, err := c.postJSON(ctx, "sendMessage", map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}, 30*time.Second)
	if err != nil {
		return 0, err
	}
	return decodeMessageID(ar)
}

// EditMessageText replaces the text of a previously sent message. Telegram
// rejects edits that change nothing; that case is not an error here.
func (c *Client) EditMessageText(ctx context.Context, chatID string, messageID int64, text string) error {
	ar, err := c.postJSON(ctx, "editMessageText", map[string]any{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}, 30*time.Second)
	return ignoreNotModified(ar, err)
}

// EditMessageCaption replaces the caption of a previously sent photo.
func (c *Client) EditMessageCaption(ctx context.Context, chatID string, messageID int64, caption string) error {
	ar, err := c.postJSON(ctx, "editMessageCaption", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
		"parse_mode": "HTML",
	}, 30*time.Second)
	return ignoreNotModified(ar, err)
}

// PinChatMessage pins a message in the chat without notifying members.
func (c *Client) PinChatMessage(ctx context.Context, chatID string, messageID int64) error {
	_, err := c.postJSON(ctx, "pinChatMessage", map[string]any{
		"chat_id":              chatID,
		"message_id":           messageID,
		"disable_notification": true,
	}, 30*time.Second)
	return err
}

func ignoreNotModified(ar *apiResponse, err error) error {
	if err != nil && ar != nil && strings.Contains(ar.Description, "not modified") {
		return nil
	}
	return err
}

// SendPhoto uploads a photo with an HTML caption and returns its message id.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoPath, caption string) (int64, error) {
	fields := map[string]string{
		"chat_id":    chatID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	ar, err := c.postFile(ctx, "sendPhoto", "photo", photoPath, fields, 60*time.Second)
	if err != nil {
		return 0, err
	}
	return decodeMessageID(ar)
}

// SendDocument uploads a file as a document. Build logs can be large, so
// the timeout is generous.
func (c *Client) SendDocument(ctx context.Context, chatID, filePath string) (int64, error) {
	fields := map[string]string{
		"chat_id": chatID,
	}
	ar, err := c.postFile(ctx, "sendDocument", "document", filePath, fields, 5*time.Minute)
	if err != nil {
		return 0, err
	}
	return decodeMessageID(ar)
}

func (c *Client) postFile(ctx context.Context, method, fieldName, path string, fields map[string]string, timeout time.Duration) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	// Build logs and photos can be large; the multipart body is streamed
	// through a pipe so the file never sits in memory whole.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				pw.CloseWithError(fmt.Errorf("writing field %s: %w", k, err))
				return
			}
		}
		part, err := mw.CreateFormFile(fieldName, filepath.Base(path))
		if err != nil {
			pw.CloseWithError(fmt.Errorf("creating form file: %w", err))
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(fmt.Errorf("copying %s into request: %w", path, err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), pr)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, method)
}
