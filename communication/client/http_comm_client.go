package client

import (
	"bubbles/communication"
	"bubbles/game"
	"bubbles/player"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// APIError is a non-2xx answer of the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.StatusCode, e.Message)
}

// Client talks to a server started by communication/server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
}

func (c *Client) Status(ctx context.Context) (communication.StatusDTO, error) {
	var status communication.StatusDTO
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *Client) Setup(ctx context.Context) (communication.StatusDTO, error) {
	var status communication.StatusDTO
	err := c.do(ctx, http.MethodPost, "/api/setup", nil, &status)
	return status, err
}

func (c *Client) Start(ctx context.Context, player1, player2 player.Kind) (communication.StatusDTO, error) {
	var status communication.StatusDTO
	err := c.do(ctx, http.MethodPost, "/api/start", communication.StartRequest{Player1: player1, Player2: player2}, &status)
	return status, err
}

func (c *Client) Tap(ctx context.Context, cell game.CellID) (communication.StatusDTO, error) {
	var status communication.StatusDTO
	err := c.do(ctx, http.MethodPost, "/api/tap", communication.TapRequest{Cell: cell.String()}, &status)
	return status, err
}

func (c *Client) Finish(ctx context.Context) (communication.StatusDTO, error) {
	var status communication.StatusDTO
	err := c.do(ctx, http.MethodPost, "/api/finish", nil, &status)
	return status, err
}

// Subscribe streams status updates to fn until ctx is done or the connection
// drops. The first update is the status at connection time.
func (c *Client) Subscribe(ctx context.Context, fn func(communication.StatusDTO)) error {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read status: %w", err)
		}
		var msg communication.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}
		if msg.Type != communication.StatusMessage {
			continue
		}
		var status communication.StatusDTO
		if err := json.Unmarshal(msg.Payload, &status); err != nil {
			return fmt.Errorf("failed to decode status: %w", err)
		}
		fn(status)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var apiErr communication.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			apiErr.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
