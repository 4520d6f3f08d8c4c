package client

import (
	"bytes"
	"c2c-client/domain"
	"c2c-client/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// apiResponse is the envelope every REST endpoint answers with.
type apiResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type RoomInfo struct {
	RoomID      domain.RoomID `json:"roomId"`
	Status      string        `json:"status"`
	MemberCount int           `json:"memberCount"`
}

type createRoomRequest struct {
	CreatorName string `json:"creatorName"`
}

type createRoomResponse struct {
	RoomID domain.RoomID `json:"roomId"`
}

type leaveRequest struct {
	UserID string `json:"userId"`
}

// RoomClient talks to the room REST API. It also serves as the
// out-of-band leave notifier when the websocket is not open.
type RoomClient struct {
	baseURL string
	http    *http.Client
}

func NewRoomClient(baseURL string, httpClient *http.Client) *RoomClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &RoomClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// CreateRoom asks the server for a new room and returns its id.
func (c *RoomClient) CreateRoom(ctx context.Context, creatorName string) (domain.RoomID, error) {
	var resp apiResponse[createRoomResponse]
	if err := c.do(ctx, http.MethodPost, "/api/rooms", createRoomRequest{CreatorName: creatorName}, &resp); err != nil {
		return "", err
	}
	if resp.Data.RoomID == "" {
		return "", fmt.Errorf("%w: empty room id", errors.ErrRoomAPI)
	}
	return resp.Data.RoomID, nil
}

func (c *RoomClient) GetRoomInfo(ctx context.Context, roomID domain.RoomID) (RoomInfo, error) {
	var resp apiResponse[RoomInfo]
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(string(roomID)), nil, &resp); err != nil {
		return RoomInfo{}, err
	}
	return resp.Data, nil
}

// NotifyLeave is the beacon counterpart of the protocol leave frame.
func (c *RoomClient) NotifyLeave(ctx context.Context, roomID domain.RoomID, participantID string) error {
	path := "/api/rooms/" + url.PathEscape(string(roomID)) + "/leave"
	return c.do(ctx, http.MethodPost, path, leaveRequest{UserID: participantID}, nil)
}

func (c *RoomClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errors.ErrRoomAPI, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", errors.ErrRoomNotFound, path)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var failure apiResponse[json.RawMessage]
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return fmt.Errorf("%w: %s %s: status %d %s", errors.ErrRoomAPI, method, path, resp.StatusCode, failure.Message)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", errors.ErrRoomAPI, path, err)
	}
	return nil
}
