package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/chatserver/internal/config"
	"github.com/cory-johannsen/chatserver/internal/proto"
)

// SessionHandler processes a connected client session.
// Implementations own the line loop for a single client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for TCP connections and dispatches each one to a
// SessionHandler, enforcing the configured client cap.
type Acceptor struct {
	cfg     config.ServerConfig
	limits  proto.Limits
	handler SessionHandler
	logger  *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
	active   int
}

// NewAcceptor creates a TCP acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; limits must be validated;
// handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with
// ListenAndServe.
func NewAcceptor(cfg config.ServerConfig, limits proto.Limits, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		limits:  limits,
		handler: handler,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// ListenAndServe starts the TCP listener and accepts connections until
// Stop is called. This method blocks until the acceptor is stopped.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_clients", a.limits.MaxClients),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-a.quit:
				return nil
			default:
				a.logger.Error("accepting connection", zap.Error(err))
				continue
			}
		}

		if !a.acquireSlot() {
			a.rejectFull(conn)
			continue
		}

		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

// acquireSlot claims a client slot, failing when the cap is reached.
func (a *Acceptor) acquireSlot() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active >= a.limits.MaxClients {
		return false
	}
	a.active++
	return true
}

func (a *Acceptor) releaseSlot() {
	a.mu.Lock()
	a.active--
	a.mu.Unlock()
}

// rejectFull notifies an over-cap client and closes the connection.
func (a *Acceptor) rejectFull(raw net.Conn) {
	a.logger.Warn("rejecting connection, server full",
		zap.String("remote_addr", raw.RemoteAddr().String()),
		zap.Int("max_clients", a.limits.MaxClients),
	)
	buf := make([]byte, a.limits.WireLineMax())
	if n, err := proto.FormatSystem(buf, "server is full, try again later"); err == nil {
		if a.cfg.WriteTimeout > 0 {
			_ = raw.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
		}
		_, _ = raw.Write(buf[:n])
	}
	_ = raw.Close()
}

// handleConn processes a single TCP connection.
func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()
	defer a.releaseSlot()
	start := time.Now()
	addr := raw.RemoteAddr().String()

	a.logger.Info("client connected",
		zap.String("remote_addr", addr),
	)

	conn := NewConn(raw, a.limits, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the session when the acceptor shuts down
	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		a.logger.Debug("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		a.logger.Info("session ended cleanly",
			zap.String("remote_addr", addr),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Stop gracefully stops the acceptor, closing the listener and waiting
// for all active sessions to finish.
//
// Postcondition: All connections are closed and goroutines have exited.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false

	close(a.quit)
	if a.listener != nil {
		a.listener.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("acceptor stopped")
}

// Addr returns the actual listening address, or empty string if not
// yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// ActiveClients returns the number of connections currently holding a
// client slot.
func (a *Acceptor) ActiveClients() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
