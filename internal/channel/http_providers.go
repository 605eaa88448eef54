package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Credentials identify a tenant's account on one messaging backend
type Credentials struct {
	BaseURL  string
	Token    string
	SenderID string
}

// maxErrorBody bounds how much of a failed response is kept as the reason
const maxErrorBody = 512

// chatBotA speaks a bot API where the token is part of the path
type chatBotA struct {
	creds  Credentials
	client *http.Client
}

// NewChatBotA creates a provider for the chat_bot_a backend
func NewChatBotA(creds Credentials, client *http.Client) Provider {
	return &chatBotA{creds: creds, client: client}
}

type chatBotAResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts a sendMessage call
func (p *chatBotA) Send(ctx context.Context, contact, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(p.creds.BaseURL, "/"), url.PathEscape(p.creds.Token))

	body := map[string]string{
		"chat_id": contact,
		"text":    text,
	}

	resp, err := postJSON(ctx, p.client, endpoint, body, nil)
	if err != nil {
		return err
	}

	var parsed chatBotAResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		if resp.status >= 300 {
			return statusError(resp)
		}
		return NewSendError(err, "chat_bot_a: invalid response: %v", err)
	}
	if !parsed.OK {
		reason := parsed.Description
		if reason == "" {
			reason = http.StatusText(resp.status)
		}
		return NewSendError(nil, "chat_bot_a: %s", reason)
	}

	return nil
}

// chatBotB speaks a bearer-authenticated messages API scoped to a sender ID
type chatBotB struct {
	creds  Credentials
	client *http.Client
}

// NewChatBotB creates a provider for the chat_bot_b backend
func NewChatBotB(creds Credentials, client *http.Client) Provider {
	return &chatBotB{creds: creds, client: client}
}

type chatBotBRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

type chatBotBError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts a text message
func (p *chatBotB) Send(ctx context.Context, contact, text string) error {
	if p.creds.SenderID == "" {
		return NewSendError(nil, "chat_bot_b: sender id not configured")
	}

	endpoint := fmt.Sprintf("%s/v1/%s/messages", strings.TrimRight(p.creds.BaseURL, "/"), url.PathEscape(p.creds.SenderID))

	req := chatBotBRequest{To: contact, Type: "text"}
	req.Text.Body = text

	headers := map[string]string{"Authorization": "Bearer " + p.creds.Token}

	resp, err := postJSON(ctx, p.client, endpoint, req, headers)
	if err != nil {
		return err
	}

	if resp.status >= 300 {
		var parsed chatBotBError
		if json.Unmarshal(resp.body, &parsed) == nil && parsed.Error.Message != "" {
			return NewSendError(nil, "chat_bot_b: %s (code %d)", parsed.Error.Message, parsed.Error.Code)
		}
		return statusError(resp)
	}

	return nil
}

// chatBotC forwards messages to a webhook authenticated with an API key
type chatBotC struct {
	creds  Credentials
	client *http.Client
}

// NewChatBotC creates a provider for the chat_bot_c backend
func NewChatBotC(creds Credentials, client *http.Client) Provider {
	return &chatBotC{creds: creds, client: client}
}

// Send posts the message to the webhook
func (p *chatBotC) Send(ctx context.Context, contact, text string) error {
	body := map[string]string{
		"recipient": contact,
		"message":   text,
	}

	headers := map[string]string{"X-Api-Key": p.creds.Token}

	resp, err := postJSON(ctx, p.client, p.creds.BaseURL, body, headers)
	if err != nil {
		return err
	}

	if resp.status >= 300 {
		return statusError(resp)
	}

	return nil
}

type httpResult struct {
	provider string
	status   int
	body     []byte
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, payload any, headers map[string]string) (*httpResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewSendError(err, "failed to encode message: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, NewSendError(err, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, NewSendError(err, "send timed out")
		}
		return nil, NewSendError(err, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, NewSendError(err, "failed to read response: %v", err)
	}

	return &httpResult{provider: req.URL.Host, status: resp.StatusCode, body: body}, nil
}

func statusError(resp *httpResult) error {
	snippet := strings.TrimSpace(string(resp.body))
	if len(snippet) > maxErrorBody {
		snippet = snippet[:maxErrorBody]
	}
	if snippet == "" {
		snippet = http.StatusText(resp.status)
	}
	return NewSendError(nil, "%s responded %d: %s", resp.provider, resp.status, snippet)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
