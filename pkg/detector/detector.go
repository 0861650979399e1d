package detector

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"VideoCropper/internal/cropper"
)

// IDetector is the client for the external person-detection service. It is
// safe to share across sequential job invocations: the connection handle is
// the only cross-job state and it carries no per-job data.
type IDetector interface {
	DetectBatch(ctx context.Context, frames []*cropper.Frame, conf, iou float64) ([][]cropper.Box, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type detectorClient struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// detectionRequest carries one batch of frames: all frames share the same
// dimensions and the service answers once per request.
type detectionRequest struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Conf   float64  `json:"conf"`
	IOU    float64  `json:"iou"`
	Class  string   `json:"class"`
	Frames []string `json:"frames"`
}

type detectionResponse struct {
	Results []struct {
		Boxes [][4]int `json:"boxes"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

func New(log *logrus.Logger) IDetector {
	client := &detectorClient{
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  120 * time.Second,
		writeTimeout: 30 * time.Second,
	}

	go func() {
		if err := client.Reconnect(); err != nil {
			log.Warnf("Initial connection to detection service failed: %v. Will retry on demand.", err)
		} else {
			log.Info("Connected to detection service")
		}
	}()

	return client
}

func (c *detectorClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *detectorClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	url := os.Getenv("DETECTOR_WS_URL")
	if url == "" {
		return fmt.Errorf("DETECTOR_WS_URL is not configured")
	}

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
	})

	c.conn = conn
	go c.keepAlive()

	return nil
}

func (c *detectorClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *detectorClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Detection service ping failed, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *detectorClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("not connected to detection service")
	}
	return c.conn, nil
}

// DetectBatch sends every frame of the batch in a single round-trip and
// returns the subject boxes per frame, preserving input order. Boxes are
// clamped to frame bounds; degenerate boxes are dropped.
func (c *detectorClient) DetectBatch(ctx context.Context, frames []*cropper.Frame, conf, iou float64) ([][]cropper.Box, error) {
	if len(frames) == 0 {
		return nil, nil
	}

	conn, err := c.getConnection()
	if err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to detection service: %w", err)
		}
		conn, err = c.getConnection()
		if err != nil {
			return nil, err
		}
	}

	width := frames[0].Pix.Rect.Dx()
	height := frames[0].Pix.Rect.Dy()

	req := detectionRequest{
		Width:  width,
		Height: height,
		Conf:   conf,
		IOU:    iou,
		Class:  "person",
		Frames: make([]string, len(frames)),
	}
	for i, f := range frames {
		req.Frames[i] = base64.StdEncoding.EncodeToString(f.Pix.Pix)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil
		conn.Close()
		c.mu.Unlock()
		return nil, fmt.Errorf("error sending detection batch: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.mu.Unlock()

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.conn = nil
		conn.Close()
		c.mu.Unlock()
		return nil, fmt.Errorf("error reading detection response: %w", err)
	}

	c.mu.Lock()
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	c.mu.Unlock()

	var resp detectionResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling detection response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detection service error: %s", resp.Error)
	}
	if len(resp.Results) != len(frames) {
		return nil, fmt.Errorf("detection service returned %d results for %d frames", len(resp.Results), len(frames))
	}

	out := make([][]cropper.Box, len(frames))
	for i, r := range resp.Results {
		for _, b := range r.Boxes {
			box := clampToFrame(cropper.Box{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}, width, height)
			if box.X1 < box.X2 && box.Y1 < box.Y2 {
				out[i] = append(out[i], box)
			}
		}
	}

	return out, nil
}

func clampToFrame(b cropper.Box, w, h int) cropper.Box {
	if b.X1 < 0 {
		b.X1 = 0
	}
	if b.Y1 < 0 {
		b.Y1 = 0
	}
	if b.X2 > w {
		b.X2 = w
	}
	if b.Y2 > h {
		b.Y2 = h
	}
	return b
}
