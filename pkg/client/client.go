// Package client is the Go client for the tskv IPC protocol.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/tskv/internal/ipc"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
)

var (
	ErrConnectionFailed = errors.New("failed to connect to server")
	ErrInvalidResponse  = errors.New("invalid response from server")
)

// ServerError is a structured error response from the node, carrying the
// wire error code.
type ServerError struct {
	Code    uint16
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Client is a synchronous single-connection client. Safe for concurrent
// use; requests are serialised on the connection.
type Client struct {
	socketPath string
	mu         sync.Mutex
	conn       net.Conn
}

// New creates a client for the given unix socket path.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Connect dials the server. Calling Connect on a connected client is a
// no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return ErrConnectionFailed
	}
	c.conn = conn
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Query runs a SELECT and returns its rows.
func (c *Client) Query(sel *query.Select) ([]types.Row, error) {
	body, err := ipc.EncodeSelect(sel)
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ipc.CmdQuery, body)
	if err != nil {
		return nil, err
	}
	return ipc.DecodeRows(resp)
}

// Describe returns the schema rows of a table.
func (c *Client) Describe(tableName string) ([]types.Row, error) {
	body, err := ipc.EncodeDescribe(&query.Describe{Table: tableName})
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ipc.CmdDescribe, body)
	if err != nil {
		return nil, err
	}
	return ipc.DecodeRows(resp)
}

// Insert writes rows into a table.
func (c *Client) Insert(ins *query.Insert) error {
	body, err := ipc.EncodeInsert(ins)
	if err != nil {
		return err
	}
	_, err = c.roundTrip(ipc.CmdInsert, body)
	return err
}

// CreateTable activates a table from its JSON definition.
func (c *Client) CreateTable(ddlJSON []byte) (string, error) {
	resp, err := c.roundTrip(ipc.CmdCreateTable, ddlJSON)
	if err != nil {
		return "", err
	}
	var out map[string]string
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", ErrInvalidResponse
	}
	return out["table"], nil
}

// WaitActive polls until the table appears in the node's compiled set or
// the wait ceiling elapses.
func (c *Client) WaitActive(tableName string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		names, err := c.ListTables()
		if err != nil {
			return err
		}
		for _, n := range names {
			if n == tableName {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("table %s not active after %s", tableName, wait)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// ListTables returns the names of the node's compiled tables.
func (c *Client) ListTables() ([]string, error) {
	resp, err := c.roundTrip(ipc.CmdListTables, nil)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(resp, &names); err != nil {
		return nil, ErrInvalidResponse
	}
	return names, nil
}

// Stats returns the node's metrics in Prometheus text format.
func (c *Client) Stats() (string, error) {
	resp, err := c.roundTrip(ipc.CmdStats, nil)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

func (c *Client) roundTrip(command uint8, body []byte) ([]byte, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrConnectionFailed
	}

	frame := &ipc.RequestFrame{Command: command, Body: body}
	reqID := uuid.New()
	copy(frame.RequestID[:], reqID[:])

	if err := ipc.WriteRequest(c.conn, frame); err != nil {
		return nil, err
	}

	resp, err := ipc.ReadResponse(c.conn)
	if err != nil {
		return nil, err
	}
	if resp.RequestID != frame.RequestID {
		return nil, ErrInvalidResponse
	}

	if resp.Status != ipc.StatusOK {
		var out map[string]string
		msg := string(resp.Body)
		if err := json.Unmarshal(resp.Body, &out); err == nil {
			msg = out["error"]
		}
		return nil, &ServerError{Code: resp.ErrCode, Message: msg}
	}

	return resp.Body, nil
}
