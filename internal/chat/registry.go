// Package chat implements the connected-client registry, message
// fan-out, and the per-connection session loop on top of the wire
// protocol in the proto package.
package chat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/chatserver/internal/proto"
)

// Registry errors.
var (
	// ErrNameTaken reports that a nickname is already registered.
	ErrNameTaken = errors.New("chat: nickname already in use")
	// ErrNotFound reports that no client has the given nickname.
	ErrNotFound = errors.New("chat: no such user")
	// ErrServerFull reports that the client cap has been reached.
	ErrServerFull = errors.New("chat: server full")
)

// outboundBuffer is the per-client queued-line capacity. A client that
// falls this far behind starts losing lines rather than blocking the
// broadcaster.
const outboundBuffer = 64

// Client is one connected user's registry entry. The nickname is
// managed by the Registry; the outbound channel is drained by the
// session's writer goroutine.
type Client struct {
	id string

	mu     sync.Mutex
	name   string
	out    chan []byte
	closed bool
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Name returns the client's current nickname.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// Outbound returns the channel of ready-to-send wire lines for this
// client. It is closed when the client leaves the registry.
func (c *Client) Outbound() <-chan []byte {
	return c.out
}

// send enqueues one wire line without blocking.
//
// Postcondition: The line is queued, or an error if the client has
// left or its buffer is full.
func (c *Client) send(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client %s has left", c.id)
	}
	select {
	case c.out <- line:
		return nil
	default:
		return fmt.Errorf("client %s outbound buffer full", c.id)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// Registry tracks all connected clients and enforces global nickname
// uniqueness. All methods are safe for concurrent use.
type Registry struct {
	limits proto.Limits

	mu     sync.RWMutex
	byName map[string]*Client
	byID   map[string]*Client
}

// NewRegistry creates an empty Registry.
//
// Precondition: limits must be validated.
func NewRegistry(limits proto.Limits) *Registry {
	return &Registry{
		limits: limits,
		byName: make(map[string]*Client),
		byID:   make(map[string]*Client),
	}
}

// Join registers a new client under the given nickname.
//
// Precondition: name must have passed Limits.ValidName.
// Postcondition: Returns the new Client, ErrNameTaken if the nickname
// is registered, or ErrServerFull at the client cap.
func (r *Registry) Join(name string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byID) >= r.limits.MaxClients {
		return nil, ErrServerFull
	}
	if _, taken := r.byName[name]; taken {
		return nil, ErrNameTaken
	}

	c := &Client{
		id:   uuid.NewString(),
		name: name,
		out:  make(chan []byte, outboundBuffer),
	}
	r.byName[name] = c
	r.byID[c.id] = c
	return c, nil
}

// Leave removes a client and closes its outbound channel.
//
// Postcondition: The client no longer receives fan-out and its
// Outbound channel is closed. Removing an already-removed client is a
// no-op.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	if _, ok := r.byID[c.id]; ok {
		delete(r.byID, c.id)
		delete(r.byName, c.Name())
	}
	r.mu.Unlock()

	c.close()
}

// Rename changes a client's nickname, enforcing uniqueness.
//
// Precondition: newName must have passed Limits.ValidName.
// Postcondition: The client answers to newName, or ErrNameTaken and no
// change. Renaming to the current name succeeds trivially.
func (r *Registry) Rename(c *Client, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := c.Name()
	if old == newName {
		return nil
	}
	if _, taken := r.byName[newName]; taken {
		return ErrNameTaken
	}

	delete(r.byName, old)
	r.byName[newName] = c
	c.setName(newName)
	return nil
}

// Broadcast fans one wire line out to every client, optionally
// excluding one (typically the sender).
//
// Postcondition: Returns the number of clients the line was queued
// for. Clients with full buffers are skipped, never blocked on.
func (r *Registry) Broadcast(line []byte, except *Client) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, c := range r.byID {
		if except != nil && c.id == except.id {
			continue
		}
		if err := c.send(line); err == nil {
			delivered++
		}
	}
	return delivered
}

// SendTo queues one wire line for the client with the given nickname.
//
// Postcondition: Returns nil on queueing, ErrNotFound for an unknown
// nickname, or the client's send error.
func (r *Registry) SendTo(name string, line []byte) error {
	r.mu.RLock()
	c, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return c.send(line)
}

// Lookup returns the client with the given nickname.
//
// Postcondition: Returns (client, true) if found, or (nil, false).
func (r *Registry) Lookup(name string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Names returns the nicknames of all connected clients in no
// particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
