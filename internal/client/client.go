// v1
// internal/client/client.go
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"amlio/rover/internal/distance"
	"amlio/rover/internal/drive"
)

// DefaultAddr is the rover address on the car's local network.
const DefaultAddr = "192.168.84.63"

const defaultTimeout = 2 * time.Second

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rover returned %d", e.Status)
	}
	return fmt.Sprintf("rover returned %d: %s", e.Status, e.Message)
}

// Client talks to the rover HTTP API.
type Client struct {
	base string
	http *http.Client
}

// New accepts a bare host[:port] or a full http(s) URL. A nil hc gets a
// client with a short timeout so one slow answer cannot stall a poll loop.
func New(addr string, hc *http.Client) (*Client, error) {
	base, err := normalize(addr)
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: base, http: hc}, nil
}

// BaseURL is the normalized rover URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

func normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid rover address %q: %w", addr, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid rover address %q: missing host", addr)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// ErrIncompleteReading is returned when /distances lacks gauche or droite.
var ErrIncompleteReading = errors.New("reading must carry both gauche and droite")

// wireReading tells a missing side apart from a zero one.
type wireReading struct {
	Left  *float64 `json:"gauche"`
	Right *float64 `json:"droite"`
}

// Distances fetches and decodes the latest reading. Both sides must be
// present and valid.
func (c *Client) Distances(ctx context.Context) (distance.Reading, error) {
	var w wireReading
	if err := c.getJSON(ctx, "/distances", &w); err != nil {
		return distance.Reading{}, err
	}
	if w.Left == nil || w.Right == nil {
		return distance.Reading{}, fmt.Errorf("bad reading from rover: %w", ErrIncompleteReading)
	}
	r := distance.Reading{Left: *w.Left, Right: *w.Right}
	if err := r.Validate(); err != nil {
		return distance.Reading{}, fmt.Errorf("bad reading from rover: %w", err)
	}
	return r, nil
}

// Ping reports whether the rover answers.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "/ping")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
	return nil
}

// Drive sends a direction command. Pass a negative speed to keep the
// rover's current speed.
func (c *Client) Drive(ctx context.Context, dir drive.Direction, speed int) (drive.State, error) {
	path := "/" + url.PathEscape(string(dir))
	if speed >= 0 {
		path += "?speed=" + strconv.Itoa(speed)
	}
	var st drive.State
	err := c.getJSON(ctx, path, &st)
	return st, err
}

// Stop halts the motors.
func (c *Client) Stop(ctx context.Context) (drive.State, error) {
	return c.Drive(ctx, drive.Stopped, -1)
}

// Auto switches the autopilot on or off.
func (c *Client) Auto(ctx context.Context, on bool) (drive.State, error) {
	path := "/stopauto"
	if on {
		path = "/autonome"
	}
	var st drive.State
	err := c.getJSON(ctx, path, &st)
	return st, err
}

// Status returns the /etat text line.
func (c *Client) Status(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "/etat")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// get returns the response only for 2xx statuses.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body) == nil {
			apiErr.Message = body.Error
		}
		return nil, apiErr
	}
	return resp, nil
}
