// ABOUTME: WebSocket client for the soundscape control protocol
// ABOUTME: Handles connection, handshake, commands and state updates
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/internal/protocol"
	"github.com/Sendspin/soundscape-go/internal/version"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // defaults to /soundscape
	ClientID   string // defaults to a random UUID
	Name       string
}

// CommandError is a server/error reply
type CommandError struct {
	Reply protocol.Error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reply.Code, e.Reply.Message)
}

// Client is a control connection to a soundscape server
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	sendMu sync.Mutex

	// States receives periodic broadcasts and command replies
	States chan protocol.ServerState
	// Errors receives server/error messages
	Errors chan protocol.Error

	server    protocol.ServerHello
	waitersMu sync.Mutex
	waiters   map[string]chan reply

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

type reply struct {
	state protocol.ServerState
	err   error
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/soundscape"
	}
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = "soundscape-ctl"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		States:  make(chan protocol.ServerState, 10),
		Errors:  make(chan protocol.Error, 10),
		waiters: make(map[string]chan reply),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  protocol.Version,
		DeviceInfo: &protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	}

	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch msg.Type {
	case protocol.TypeServerHello:
	case protocol.TypeServerError:
		var e protocol.Error
		protocol.DecodePayload(msg.Payload, &e)
		return &CommandError{Reply: e}
	default:
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	if err := protocol.DecodePayload(msg.Payload, &c.server); err != nil {
		return err
	}

	log.Printf("Handshake complete with %s (ID: %s)", c.server.Name, c.server.ServerID)
	return nil
}

// Server returns the server's hello
func (c *Client) Server() protocol.ServerHello {
	return c.server
}

// send writes one JSON message
func (c *Client) send(msgType string, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// Do sends a command and waits for the reply addressed to it
func (c *Client) Do(ctx context.Context, msgType string, payload interface{}) (protocol.ServerState, error) {
	ch := make(chan reply, 1)

	c.waitersMu.Lock()
	if _, busy := c.waiters[msgType]; busy {
		c.waitersMu.Unlock()
		return protocol.ServerState{}, fmt.Errorf("%s already in flight", msgType)
	}
	c.waiters[msgType] = ch
	c.waitersMu.Unlock()

	defer func() {
		c.waitersMu.Lock()
		delete(c.waiters, msgType)
		c.waitersMu.Unlock()
	}()

	if err := c.send(msgType, payload); err != nil {
		return protocol.ServerState{}, err
	}

	select {
	case r := <-ch:
		return r.state, r.err
	case <-ctx.Done():
		return protocol.ServerState{}, ctx.Err()
	case <-c.ctx.Done():
		return protocol.ServerState{}, fmt.Errorf("connection closed")
	}
}

// Initialize starts audio on the server
func (c *Client) Initialize(ctx context.Context) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeEngineInitialize, nil)
}

// SetSoundscape selects a soundscape from explicit conditions
func (c *Client) SetSoundscape(ctx context.Context, req protocol.SetSoundscape) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeSoundscapeSet, req)
}

// UpdateSoundscape selects a soundscape from a weather snapshot
func (c *Client) UpdateSoundscape(ctx context.Context, req protocol.UpdateSoundscape) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeSoundscapeUpdate, req)
}

// StopSoundscape fades everything out
func (c *Client) StopSoundscape(ctx context.Context, fade time.Duration) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeSoundscapeStop, protocol.StopSoundscape{FadeMs: fade.Milliseconds()})
}

// SetVolume sets the master volume
func (c *Client) SetVolume(ctx context.Context, volume float64) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeVolumeSet, protocol.SetVolume{Volume: volume})
}

// ToggleMute toggles the server's mute state
func (c *Client) ToggleMute(ctx context.Context) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeMuteToggle, nil)
}

// State requests the current state
func (c *Client) State(ctx context.Context) (protocol.ServerState, error) {
	return c.Do(ctx, protocol.TypeStateGet, nil)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeServerState:
		var state protocol.ServerState
		if err := protocol.DecodePayload(msg.Payload, &state); err != nil {
			log.Printf("Bad server/state: %v", err)
			return
		}
		c.resolve(state.Request, reply{state: state})
		c.publishState(state)

	case protocol.TypeServerError:
		var e protocol.Error
		if err := protocol.DecodePayload(msg.Payload, &e); err != nil {
			log.Printf("Bad server/error: %v", err)
			return
		}
		c.resolve(e.Request, reply{err: &CommandError{Reply: e}})
		select {
		case c.Errors <- e:
		default:
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// resolve hands a reply to the command waiting on it
func (c *Client) resolve(request string, r reply) {
	if request == "" {
		return
	}
	c.waitersMu.Lock()
	ch, ok := c.waiters[request]
	c.waitersMu.Unlock()
	if ok {
		select {
		case ch <- r:
		default:
		}
	}
}

// publishState keeps only the newest states when nobody is reading
func (c *Client) publishState(state protocol.ServerState) {
	for {
		select {
		case c.States <- state:
			return
		default:
		}
		select {
		case <-c.States:
		default:
		}
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
