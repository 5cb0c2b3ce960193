package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/chatserver/internal/config"
	"github.com/cory-johannsen/chatserver/internal/proto"
	"github.com/cory-johannsen/chatserver/internal/transport"
)

// Handler runs the session loop for one connected client: greeting,
// nickname negotiation, and the read-parse-dispatch cycle. It
// implements transport.SessionHandler.
type Handler struct {
	registry *Registry
	limits   proto.Limits
	cfg      config.ServerConfig
	motd     []string
	logger   *zap.Logger
}

// NewHandler creates a Handler with the given dependencies.
//
// Precondition: registry and logger must be non-nil; limits must be
// validated.
func NewHandler(registry *Registry, limits proto.Limits, cfg config.ServerConfig, motd []string, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		limits:   limits,
		cfg:      cfg,
		motd:     motd,
		logger:   logger,
	}
}

// HandleSession processes one client connection from greeting to
// disconnect.
//
// Postcondition: The client is removed from the registry and, if
// announcements are enabled, a leave notice is broadcast. Returns nil
// on clean disconnect (quit, EOF, idle timeout) or a wrapped error.
func (h *Handler) HandleSession(ctx context.Context, conn *transport.Conn) error {
	if err := h.sendMotd(conn); err != nil {
		return fmt.Errorf("sending motd: %w", err)
	}

	// Read pump: the session loop consumes lines from a channel so it
	// can also react to cancellation, idle expiry, and ping ticks.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := conn.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	client, err := h.negotiateName(ctx, conn, lines, readErr)
	if err != nil || client == nil {
		return err
	}

	name := client.Name()
	h.logger.Info("user joined",
		zap.String("uid", client.ID()),
		zap.String("name", name),
		zap.Int("online", h.registry.Count()),
	)

	// Writer: drains the client's outbound queue onto the socket.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for data := range client.Outbound() {
			if err := conn.Write(data); err != nil {
				return
			}
		}
	}()

	defer func() {
		left := client.Name()
		h.registry.Leave(client)
		wg.Wait()
		if h.cfg.AnnounceJoins {
			h.broadcastSystem(left+" left", nil)
		}
		h.logger.Info("user left",
			zap.String("uid", client.ID()),
			zap.String("name", left),
			zap.Int("online", h.registry.Count()),
		)
	}()

	if h.cfg.AnnounceJoins {
		h.broadcastSystem(name+" joined", client)
	}

	return h.sessionLoop(ctx, conn, client, lines, readErr)
}

// sessionLoop dispatches inbound lines until quit, disconnect, idle
// expiry, or cancellation.
func (h *Handler) sessionLoop(ctx context.Context, conn *transport.Conn, client *Client, lines <-chan string, readErr <-chan error) error {
	var idleTimer *time.Timer
	var idleC <-chan time.Time
	if h.cfg.IdleTimeout > 0 {
		idleTimer = time.NewTimer(h.cfg.IdleTimeout)
		defer idleTimer.Stop()
		idleC = idleTimer.C
	}

	var pingC <-chan time.Time
	var pingLine []byte
	if h.cfg.PingInterval > 0 {
		line, err := h.renderSystem("ping")
		if err != nil {
			return fmt.Errorf("rendering ping line: %w", err)
		}
		pingLine = line
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return disconnectCause(err)

		case line := <-lines:
			if idleTimer != nil {
				if !idleTimer.Stop() {
					select {
					case <-idleTimer.C:
					default:
					}
				}
				idleTimer.Reset(h.cfg.IdleTimeout)
			}
			if quit := h.dispatch(conn, client, line); quit {
				return nil
			}

		case <-idleC:
			_ = h.writeSystem(conn, "disconnected for inactivity")
			return nil

		case <-pingC:
			_ = conn.Write(pingLine)
		}
	}
}

// disconnectCause maps read-side errors to the session result: EOF and
// read timeouts are clean disconnects, anything else propagates.
func disconnectCause(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil
	}
	return fmt.Errorf("reading input: %w", err)
}

// negotiateName prompts until the client supplies a valid, unclaimed
// nickname and joins the registry.
//
// Postcondition: Returns the joined client, or (nil, nil) on clean
// disconnect during negotiation, or (nil, err) otherwise.
func (h *Handler) negotiateName(ctx context.Context, conn *transport.Conn, lines <-chan string, readErr <-chan error) (*Client, error) {
	for {
		if err := conn.WriteString("name: "); err != nil {
			return nil, fmt.Errorf("writing name prompt: %w", err)
		}

		var line string
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-readErr:
			return nil, disconnectCause(err)
		case line = <-lines:
		}

		name := strings.TrimSpace(line)
		if !h.limits.ValidName(name) {
			if err := conn.WriteString(proto.NoticeBadNick); err != nil {
				return nil, err
			}
			continue
		}

		client, err := h.registry.Join(name)
		switch {
		case errors.Is(err, ErrNameTaken):
			if err := conn.WriteString(proto.NoticeNickInUse); err != nil {
				return nil, err
			}
			continue
		case errors.Is(err, ErrServerFull):
			_ = h.writeSystem(conn, "server is full, try again later")
			return nil, nil
		case err != nil:
			return nil, fmt.Errorf("joining registry: %w", err)
		}

		if err := h.writeSystem(conn, "you are "+name); err != nil {
			h.registry.Leave(client)
			return nil, err
		}
		return client, nil
	}
}

// dispatch routes one inbound line. Returns true when the client asked
// to quit.
func (h *Handler) dispatch(conn *transport.Conn, client *Client, line string) bool {
	msg, err := h.limits.ParseLine([]byte(line))
	if err != nil {
		// Malformed command: missing mandatory argument.
		switch msg.Cmd.Type {
		case proto.CommandWhisper:
			_ = conn.WriteString(proto.NoticeWhisperUsage)
		default:
			_ = conn.WriteString(proto.NoticeBadNick)
		}
		return false
	}

	switch msg.Kind {
	case proto.KindChat:
		if msg.Text != "" {
			h.handleChat(client, msg.Text)
		}
		return false

	case proto.KindCommand:
		switch msg.Cmd.Type {
		case proto.CommandQuit:
			return true
		case proto.CommandNick:
			h.handleNick(conn, client, msg.Cmd.Arg)
		case proto.CommandMe:
			h.handleEmote(client, msg.Cmd.Rest)
		case proto.CommandWhisper:
			h.handleWhisper(conn, client, msg.Cmd.Arg, msg.Cmd.Rest)
		default:
			_ = conn.WriteString(proto.NoticeUnknownCommand)
		}
		return false

	default:
		return false
	}
}

// handleChat broadcasts a plain chat line to everyone but the sender.
func (h *Handler) handleChat(client *Client, text string) {
	body := text
	if len(body) > h.limits.MaxMessageLen-1 {
		body = body[:h.limits.MaxMessageLen-1]
	}

	buf := make([]byte, h.limits.WireLineMax())
	n, err := proto.FormatChat(buf, client.Name(), body)
	if err != nil {
		h.logger.Warn("formatting chat line",
			zap.String("name", client.Name()),
			zap.Error(err),
		)
		return
	}
	h.registry.Broadcast(buf[:n], client)
}

// handleNick validates and applies a nickname change, announcing it to
// everyone including the sender.
func (h *Handler) handleNick(conn *transport.Conn, client *Client, newName string) {
	if !h.limits.ValidName(newName) {
		_ = conn.WriteString(proto.NoticeBadNick)
		return
	}

	old := client.Name()
	if err := h.registry.Rename(client, newName); err != nil {
		_ = conn.WriteString(proto.NoticeNickInUse)
		return
	}
	if old == newName {
		return
	}

	h.logger.Info("nickname changed",
		zap.String("uid", client.ID()),
		zap.String("from", old),
		zap.String("to", newName),
	)
	h.broadcastSystem(old+" is now known as "+newName, nil)
}

// handleEmote broadcasts an action line to everyone including the
// sender, so the sender sees the rendered form.
func (h *Handler) handleEmote(client *Client, action string) {
	buf := make([]byte, h.limits.WireLineMax())
	n, err := proto.FormatEmote(buf, client.Name(), action)
	if err != nil {
		h.logger.Warn("formatting emote line",
			zap.String("name", client.Name()),
			zap.Error(err),
		)
		return
	}
	h.registry.Broadcast(buf[:n], nil)
}

// handleWhisper routes a private message and echoes a confirmation to
// the sender.
func (h *Handler) handleWhisper(conn *transport.Conn, client *Client, target, body string) {
	if body == "" {
		_ = conn.WriteString(proto.NoticeWhisperUsage)
		return
	}

	buf := make([]byte, h.limits.WireLineMax())
	n, err := proto.FormatPrivate(buf, client.Name(), target, body)
	if err != nil {
		h.logger.Warn("formatting private line", zap.Error(err))
		return
	}
	if err := h.registry.SendTo(target, buf[:n]); err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = h.writeSystem(conn, "no such user: "+target)
		}
		return
	}

	echo := make([]byte, h.limits.WireLineMax())
	n, err = proto.FormatPrivateEcho(echo, target, body)
	if err != nil {
		h.logger.Warn("formatting private echo", zap.Error(err))
		return
	}
	_ = conn.Write(echo[:n])
}

// sendMotd writes the greeting banner as system lines.
func (h *Handler) sendMotd(conn *transport.Conn) error {
	for _, line := range h.motd {
		if err := h.writeSystem(conn, line); err != nil {
			return err
		}
	}
	return nil
}

// renderSystem formats one system line into a fresh buffer.
func (h *Handler) renderSystem(text string) ([]byte, error) {
	buf := make([]byte, h.limits.WireLineMax())
	n, err := proto.FormatSystem(buf, text)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// writeSystem renders and writes one system line directly to the
// connection, bypassing the outbound queue.
func (h *Handler) writeSystem(conn *transport.Conn, text string) error {
	line, err := h.renderSystem(text)
	if err != nil {
		return err
	}
	return conn.Write(line)
}

// broadcastSystem renders one system line and fans it out.
func (h *Handler) broadcastSystem(text string, except *Client) {
	line, err := h.renderSystem(text)
	if err != nil {
		h.logger.Warn("formatting system line",
			zap.String("text", text),
			zap.Error(err),
		)
		return
	}
	h.registry.Broadcast(line, except)
}
