// Package sudokupad talks to the puzzle host: it seeds blank puzzles for
// new rooms and builds channel and viewer URLs.
package sudokupad

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
)

const (
	DefaultBaseURL = "https://sudokupad.app/"
	// Prefix namespaces every channel and puzzle id this tool creates.
	Prefix        = "sudokucon/"
	DefaultFormat = "scl"
)

// Puzzle is the subset of the host's puzzle format we need to seed rooms.
type Puzzle struct {
	ID      string             `json:"id"`
	Regions [][][2]int         `json:"regions"`
	Cells   [][]map[string]any `json:"cells"`
}

// BlankPuzzle is an empty 4x4 grid with four 2x2 regions.
func BlankPuzzle() Puzzle {
	cells := make([][]map[string]any, 4)
	for r := range cells {
		cells[r] = []map[string]any{{}, {}, {}, {}}
	}
	return Puzzle{
		Regions: [][][2]int{
			{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
			{{0, 2}, {0, 3}, {1, 2}, {1, 3}},
			{{2, 0}, {2, 1}, {3, 0}, {3, 1}},
			{{2, 2}, {2, 3}, {3, 2}, {3, 3}},
		},
		Cells: cells,
	}
}

type uploadRequest struct {
	Puzzle  string `json:"puzzle"`
	ShortID string `json:"shortid"`
}

type uploadResponse struct {
	ShortID string `json:"shortid"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: baseURL, http: httpClient, log: log.With(zap.String("component", "sudokupad"))}
}

// ChannelURL is the websocket URL of a channel.
func (c *Client) ChannelURL(channel string) string {
	return httpToWS(c.baseURL) + Prefix + channel
}

// ViewURL is the page that shows channel in streamtool mode as user.
func (c *Client) ViewURL(channel string, user protocol.UserInfo) string {
	q := url.Values{}
	q.Set("setting-nopauseonstart", "1")
	q.Set("setting-streamtool", "1")
	q.Set("hostkey", user.Key)
	q.Set("hostname", user.Name)
	q.Set("hostcolor", user.Color)
	return c.baseURL + Prefix + channel + "?" + q.Encode()
}

// Upload registers puzzle under shortID. It reports false on any failure;
// the caller decides whether to carry on.
func (c *Client) Upload(ctx context.Context, puzzle Puzzle, shortID string) bool {
	shortID = Prefix + shortID
	log := c.log.With(zap.String("shortid", shortID))
	puzzle.ID = shortID

	encoded, err := json.Marshal(puzzle)
	if err != nil {
		log.Error("encoding puzzle", zap.Error(err))
		return false
	}
	body, err := json.Marshal(uploadRequest{Puzzle: DefaultFormat + string(encoded), ShortID: shortID})
	if err != nil {
		log.Error("encoding upload request", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"admin/createlink", bytes.NewReader(body))
	if err != nil {
		log.Error("building upload request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("uploading puzzle", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("http error while uploading puzzle", zap.Int("status", resp.StatusCode))
		return false
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("reading upload response", zap.Error(err))
		return false
	}
	if len(text) == 0 {
		log.Info("puzzle already exists, ignoring")
		return true
	}
	var out uploadResponse
	if err := json.Unmarshal(text, &out); err != nil {
		log.Error("decoding upload response", zap.Error(err))
		return false
	}
	if out.ShortID != shortID {
		log.Error("wrong shortid in response", zap.String("got", out.ShortID))
		return false
	}
	log.Info("created puzzle")
	return true
}

// SeedBlank uploads a blank puzzle under shortID.
func (c *Client) SeedBlank(ctx context.Context, shortID string) bool {
	return c.Upload(ctx, BlankPuzzle(), shortID)
}

// httpToWS converts an HTTP(S) URL to a WS(S) URL.
func httpToWS(u string) string {
	if rest, ok := strings.CutPrefix(u, "https://"); ok {
		return "wss://" + rest
	}
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "ws://" + rest
	}
	return u
}
