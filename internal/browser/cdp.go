// internal/browser/cdp.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// ErrDisconnected is returned by calls on a page connection that has closed.
var ErrDisconnected = errors.New("page connection closed")

const (
	// Time allowed to write one command to the page.
	writeWait = 10 * time.Second
	// Replies carry whole transcripts.
	maxMessageSize = 64 << 20
)

type cdpRequest struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type cdpError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// cdpReply is a command response. Events carry a method and no id.
type cdpReply struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type evaluateResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// pageConn speaks CDP over one page's own websocket endpoint. It never
// issues Target commands, so closing it drops the connection and leaves
// the page open in the user's browser.
type pageConn struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cdpReply
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// dialPage connects to wsURL. ctx bounds only the handshake.
func dialPage(ctx context.Context, wsURL string, logger *zap.Logger) (*pageConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)

	c := &pageConn{
		conn:    conn,
		logger:  logger.Named("cdp"),
		pending: make(map[int64]chan cdpReply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *pageConn) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("%w: %v", ErrDisconnected, err)
			c.mu.Unlock()
			return
		}
		var reply cdpReply
		if err := json.Unmarshal(data, &reply); err != nil {
			c.logger.Debug("Dropping undecodable CDP message.", zap.Error(err))
			continue
		}
		if reply.ID == 0 {
			continue
		}
		c.mu.Lock()
		ch := c.pending[reply.ID]
		delete(c.pending, reply.ID)
		c.mu.Unlock()
		if ch != nil {
			ch <- reply
		}
	}
}

func (c *pageConn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrDisconnected
}

// call sends one command and waits for its reply or ctx.
func (c *pageConn) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	ch := make(chan cdpReply, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(cdpRequest{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closedErr()
	case reply := <-ch:
		if reply.Error != nil {
			return nil, fmt.Errorf("%s failed: %s (%d)", method, reply.Error.Message, reply.Error.Code)
		}
		return reply.Result, nil
	}
}

// Evaluate runs script in the page and decodes its value into out.
func (c *pageConn) Evaluate(ctx context.Context, script string, out interface{}) error {
	params := runtime.Evaluate(script).WithReturnByValue(true).WithAwaitPromise(true)
	raw, err := c.call(ctx, runtime.CommandEvaluate, params)
	if err != nil {
		return err
	}

	var res evaluateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("failed to decode evaluation result: %w", err)
	}
	if d := res.ExceptionDetails; d != nil {
		msg := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		return fmt.Errorf("script threw: %s", msg)
	}
	if out == nil || len(res.Result.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Result.Value, out); err != nil {
		return fmt.Errorf("failed to decode script value: %w", err)
	}
	return nil
}

// Close drops the connection. The page itself is left untouched.
func (c *pageConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
		<-c.done
	})
	return nil
}

// pageSocketURL returns the page's debugger websocket. The list omits it
// while a DevTools window is attached, so it is rebuilt from the debug URL.
func pageSocketURL(debugURL string, t Target) (string, error) {
	if t.WebSocketDebuggerURL != "" {
		return t.WebSocketDebuggerURL, nil
	}
	u, err := url.Parse(debugURL)
	if err != nil {
		return "", fmt.Errorf("invalid debug URL %q: %w", debugURL, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/devtools/page/" + t.ID
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "/"), nil
}
