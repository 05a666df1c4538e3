package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrPlayerTimeout is returned when the player does not answer a command
// within the configured window.
var ErrPlayerTimeout = errors.New("player: command timed out")

// Response is one reply from the playback device.
type Response struct {
	Data      interface{} `json:"data"`
	Error     string      `json:"error"`
	RequestID int         `json:"request_id"`
}

// Transport is the opaque remote-control surface of the playback device.
// Every command is a synchronous request/response with an explicit timeout;
// the mechanism behind it (socket, pipe, subprocess) is hidden here.
type Transport interface {
	Send(cmd ...interface{}) (*Response, error)
}

// MPV speaks mpv's JSON IPC protocol over a unix socket. One connection is
// dialed per command; playback control is low-rate, so the simplicity wins
// over a persistent connection with event demultiplexing.
type MPV struct {
	socketPath string
	timeout    time.Duration

	mu    sync.Mutex
	reqID int
}

func NewMPV(socketPath string, timeout time.Duration) *MPV {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MPV{socketPath: socketPath, timeout: timeout}
}

type request struct {
	Command   []interface{} `json:"command"`
	RequestID int           `json:"request_id"`
}

func (m *MPV) Send(cmd ...interface{}) (*Response, error) {
	m.mu.Lock()
	m.reqID++
	id := m.reqID
	m.mu.Unlock()

	conn, err := net.DialTimeout("unix", m.socketPath, m.timeout)
	if err != nil {
		return nil, fmt.Errorf("player: connect: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(m.timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(request{Command: cmd, RequestID: id})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("player: write: %w", err)
	}

	// mpv interleaves async events on the same socket; skip lines until the
	// reply carrying our request id shows up.
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		if resp.RequestID != id {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return &resp, fmt.Errorf("player: %s", resp.Error)
		}
		return &resp, nil
	}
	if err := scanner.Err(); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrPlayerTimeout
		}
		return nil, err
	}
	return nil, ErrPlayerTimeout
}

// Controller wraps a Transport with the handful of commands the front end
// needs. It is constructed once per application lifecycle and injected into
// the handlers that use it.
type Controller struct {
	transport Transport
}

func NewController(t Transport) *Controller {
	return &Controller{transport: t}
}

func (c *Controller) Load(path string) error {
	_, err := c.transport.Send("loadfile", path, "replace")
	return err
}

func (c *Controller) Play() error {
	_, err := c.transport.Send("set_property", "pause", false)
	return err
}

func (c *Controller) Pause() error {
	_, err := c.transport.Send("set_property", "pause", true)
	return err
}

// Seek jumps to an absolute position in seconds.
func (c *Controller) Seek(seconds float64) error {
	_, err := c.transport.Send("seek", seconds, "absolute")
	return err
}

func (c *Controller) Position() (float64, error) {
	return c.getFloat("time-pos")
}

func (c *Controller) Duration() (float64, error) {
	return c.getFloat("duration")
}

func (c *Controller) getFloat(property string) (float64, error) {
	resp, err := c.transport.Send("get_property", property)
	if err != nil {
		return 0, err
	}
	v, ok := resp.Data.(float64)
	if !ok {
		return 0, fmt.Errorf("player: unexpected %s value %v", property, resp.Data)
	}
	return v, nil
}
