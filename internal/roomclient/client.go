package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wheel-spinner/pkg/types"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrConflict       = errors.New("draw already finalized")
	ErrNoParticipants = errors.New("room has no participants")
)

// Client talks to the Room Service over HTTP. It performs no retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (types.Room, error) {
	var room types.Room
	if err := c.do(ctx, http.MethodGet, roomPath(roomID), nil, &room); err != nil {
		return types.Room{}, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return room, nil
}

// Draw asks the Room Service to pick the winner. The result is
// authoritative.
func (c *Client) Draw(ctx context.Context, roomID string) (types.Participant, error) {
	var resp types.DrawResponse
	if err := c.do(ctx, http.MethodPost, roomPath(roomID)+"/draw", nil, &resp); err != nil {
		return types.Participant{}, fmt.Errorf("draw room %s: %w", roomID, err)
	}
	if resp.Winner.ID == "" {
		return types.Participant{}, fmt.Errorf("draw room %s: empty winner in response", roomID)
	}
	return resp.Winner, nil
}

func (c *Client) ResetDraw(ctx context.Context, roomID string) error {
	if err := c.do(ctx, http.MethodPost, roomPath(roomID)+"/reset_draw", nil, nil); err != nil {
		return fmt.Errorf("reset draw %s: %w", roomID, err)
	}
	return nil
}

func (c *Client) CreateRoom(ctx context.Context, name string) (types.Room, error) {
	var room types.Room
	if err := c.do(ctx, http.MethodPost, "/rooms", types.CreateRoomRequest{Name: name}, &room); err != nil {
		return types.Room{}, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

func (c *Client) AddParticipant(ctx context.Context, roomID, label string) (types.Participant, error) {
	var p types.Participant
	body := types.AddParticipantRequest{Label: label}
	if err := c.do(ctx, http.MethodPost, roomPath(roomID)+"/participants", body, &p); err != nil {
		return types.Participant{}, fmt.Errorf("add participant to %s: %w", roomID, err)
	}
	return p, nil
}

func (c *Client) RemoveParticipant(ctx context.Context, roomID, participantID string) error {
	path := roomPath(roomID) + "/participants/" + url.PathEscape(participantID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove participant %s: %w", participantID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("room service error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return statusError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var er types.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Message != "" {
		msg = er.Message
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRoomNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrNoParticipants, msg)
	default:
		return fmt.Errorf("upstream status %d: %s", status, msg)
	}
}

func roomPath(roomID string) string {
	return "/rooms/" + url.PathEscape(roomID)
}
