package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"betchat/models"
)

// API implements MessageStore and MediaStore over the betchat HTTP API.
type API struct {
	BaseURL string
	Session Session
	HTTP    *http.Client
}

// NewAPI returns an API client for the given server and session.
func NewAPI(baseURL string, session Session) *API {
	return &API{
		BaseURL: baseURL,
		Session: session,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Fetch returns the chat's history, ascending by created_at.
func (a *API) Fetch(ctx context.Context, chatID string) ([]models.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/chats/%s/messages", a.BaseURL, chatID), nil)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := a.do(req, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Insert persists one message. The confirmation arrives via the event
// channel, not this response.
func (a *API) Insert(ctx context.Context, ir InsertRequest) error {
	body, err := json.Marshal(ir)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/chats/%s/messages", a.BaseURL, ir.ChatID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, nil)
}

// Upload sends image bytes for a chat and returns the stored public URL.
func (a *API) Upload(ctx context.Context, chatID string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "upload.jpg")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/media/chats/%s", a.BaseURL, chatID), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result struct {
		URL string `json:"url"`
	}
	if err := a.do(req, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

func (a *API) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+a.Session.Token)

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if env.Error != "" {
			return fmt.Errorf("api: %s (status %d)", env.Error, resp.StatusCode)
		}
		return fmt.Errorf("api: unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
