// Package discord talks to the local Discord client over its IPC socket
// (a unix socket, or a named pipe on Windows) to publish Rich Presence.
//
// A [Client] performs the handshake, waits for the READY dispatch, then
// keeps a reader goroutine running that answers pings and reports ERROR
// events and disconnects through [Handlers].
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

var (
	// ErrNotConnected is returned when a command is sent without a live connection.
	ErrNotConnected = errors.New("not connected to discord")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("discord client closed")
)

// handshakeTimeout bounds the wait for the READY dispatch.
const handshakeTimeout = 5 * time.Second

// Error is an error reported by Discord, either as an ERROR event or as
// the payload of a CLOSE frame.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
}

// ///////////////////////////////////////////////
// Wire Types
// ///////////////////////////////////////////////

// User is the account Discord reports in the READY dispatch.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// DisplayName prefers the global display name over the username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Timestamps carries Unix seconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity is the Rich Presence body of SET_ACTIVITY. Empty fields are
// omitted from the wire.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type setActivityArgs struct {
	PID int `json:"pid"`
	// Activity is null to clear.
	Activity *Activity `json:"activity"`
}

type event struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Handlers receive asynchronous notifications. Both are optional and are
// called without the client lock held.
type Handlers struct {
	OnReady func(User)
	OnError func(error)
}

// Client is a Discord IPC connection for one application ID.
type Client struct {
	appID    string
	handlers Handlers
	// dial opens the raw IPC connection. Tests replace it.
	dial func() (net.Conn, error)

	mu     sync.Mutex
	conn   net.Conn
	user   User
	closed bool
}

// NewClient returns an unconnected client for appID.
func NewClient(appID string, h Handlers) *Client {
	return &Client{appID: appID, handlers: h, dial: connectToDiscord}
}

// Connect dials Discord, performs the handshake and waits for READY. An
// existing connection is replaced.
func (c *Client) Connect() error {
	conn, user, err := c.connect()
	if err != nil {
		return err
	}
	go c.readLoop(conn)

	slog.Debug("discord ready", "app_id", c.appID, "user", user.DisplayName())
	if c.handlers.OnReady != nil {
		c.handlers.OnReady(user)
	}
	return nil
}

func (c *Client) connect() (net.Conn, User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, User{}, ErrClosed
	}
	if c.conn != nil {
		old := c.conn
		c.conn = nil
		old.Close()
	}

	conn, err := c.dial()
	if err != nil {
		return nil, User{}, err
	}
	user, err := handshake(conn, c.appID)
	if err != nil {
		conn.Close()
		return nil, User{}, err
	}

	c.conn = conn
	c.user = user
	return conn, user, nil
}

// handshake sends the version and client ID and reads until the READY
// dispatch arrives.
func handshake(conn net.Conn, appID string) (User, error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	hello := map[string]any{"v": 1, "client_id": appID}
	if err := writeJSON(conn, OpHandshake, hello); err != nil {
		return User{}, fmt.Errorf("handshake: %w", err)
	}

	for {
		op, payload, err := DecodeFrame(conn)
		if err != nil {
			return User{}, fmt.Errorf("handshake: %w", err)
		}
		switch op {
		case OpClose:
			return User{}, fmt.Errorf("handshake rejected: %w", decodeError(payload))
		case OpPing:
			if err := writeFrame(conn, OpPong, payload); err != nil {
				return User{}, fmt.Errorf("handshake: %w", err)
			}
			continue
		case OpFrame:
		default:
			return User{}, fmt.Errorf("handshake: unexpected %s frame", op)
		}

		var evt event
		if err := json.Unmarshal(payload, &evt); err != nil {
			return User{}, fmt.Errorf("parse handshake response: %w", err)
		}
		switch evt.Evt {
		case "ERROR":
			return User{}, fmt.Errorf("handshake rejected: %w", decodeError(evt.Data))
		case "READY":
			var ready struct {
				User User `json:"user"`
			}
			if len(evt.Data) > 0 {
				if err := json.Unmarshal(evt.Data, &ready); err != nil {
					return User{}, fmt.Errorf("parse READY: %w", err)
				}
			}
			return ready.User, nil
		}
	}
}

// readLoop drains frames from conn until it fails or is replaced.
func (c *Client) readLoop(conn net.Conn) {
	for {
		op, payload, err := DecodeFrame(conn)
		if err != nil {
			c.drop(conn, fmt.Errorf("discord connection lost: %w", err))
			return
		}

		switch op {
		case OpPing:
			c.mu.Lock()
			if c.conn == conn {
				err = writeFrame(conn, OpPong, payload)
			}
			c.mu.Unlock()
			if err != nil {
				c.drop(conn, err)
				return
			}
		case OpClose:
			c.drop(conn, fmt.Errorf("discord closed the connection: %w", decodeError(payload)))
			return
		case OpFrame:
			c.handleEvent(payload)
		}
	}
}

func (c *Client) handleEvent(payload []byte) {
	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		slog.Debug("discord: unparseable frame", "error", err)
		return
	}
	if evt.Evt != "ERROR" {
		slog.Debug("discord response", "cmd", evt.Cmd, "nonce", evt.Nonce)
		return
	}
	err := decodeError(evt.Data)
	slog.Warn("discord reported an error", "cmd", evt.Cmd, "error", err)
	if c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}

// drop forgets conn if it is still current and reports err. Connections
// closed by Close or Connect are dropped silently.
func (c *Client) drop(conn net.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()

	conn.Close()
	if current && c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}

// SetActivity publishes activity.
func (c *Client) SetActivity(activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send("SET_ACTIVITY", setActivityArgs{PID: os.Getpid(), Activity: activity})
}

// ClearActivity removes the published activity.
func (c *Client) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send("SET_ACTIVITY", setActivityArgs{PID: os.Getpid()})
}

// Close clears the activity on a best-effort basis and closes the
// connection. The client cannot be reconnected afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	if c.conn != nil {
		_ = c.send("SET_ACTIVITY", setActivityArgs{PID: os.Getpid()})
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Ready reports whether the handshake completed and the connection is live.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// User returns the account from the last READY dispatch.
func (c *Client) User() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// send writes a command frame. A failed write drops the connection. The
// caller must hold c.mu.
func (c *Client) send(cmd string, args any) error {
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}

	err := writeJSON(c.conn, OpFrame, command{Cmd: cmd, Args: args, Nonce: uuid.NewString()})
	if err != nil {
		c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func decodeError(data []byte) *Error {
	e := &Error{}
	if len(data) == 0 || json.Unmarshal(data, e) != nil || (e.Code == 0 && e.Message == "") {
		e.Message = "unknown error"
	}
	return e
}
