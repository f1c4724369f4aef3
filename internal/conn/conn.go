// Package conn implements the TCP connection layer: dialing, the serverbound
// handshake and login, outbound packet framing, and the read-append-drain
// pump feeding the protocol session.
package conn

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/CodeDiseaseDev/repolymer/internal/player"
	"github.com/CodeDiseaseDev/repolymer/internal/protocol"
	"github.com/CodeDiseaseDev/repolymer/internal/world"
	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

// ProtocolVersion is the protocol generation this client speaks (1.16.4).
const ProtocolVersion = 754

// DefaultReadBufferSize is the socket ring buffer capacity. A full chunk
// column compresses well below this, so a drain call always sees whole frames
// within a few socket reads.
const DefaultReadBufferSize = 1 << 20

// readPollInterval bounds how long a blocked socket read can delay context
// cancellation.
const readPollInterval = 500 * time.Millisecond

// Config carries the dial parameters.
type Config struct {
	Address        string // host:port
	Username       string
	ReadBufferSize int
}

// Connection owns the socket, the receive ring buffer, and the protocol
// session decoding it. It implements protocol.Outbound for the keep-alive and
// teleport-confirm replies the decode path triggers.
type Connection struct {
	log     *slog.Logger
	conn    net.Conn
	rb      *mcwire.RingBuffer
	session *protocol.Session

	host string
	port uint16
	cfg  Config

	wbuf []byte
}

// Dial connects to the server and wires a session decoding into cache and st.
// No bytes are exchanged until Login.
func Dial(ctx context.Context, cfg Config, cache *world.Cache, st *player.State, log *slog.Logger) (*Connection, error) {
	if log == nil {
		log = slog.Default()
	}

	host, portStr, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", cfg.Address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid server port %q: %w", portStr, err)
	}

	var d net.Dialer
	sock, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Address, err)
	}

	size := cfg.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}

	c := &Connection{
		log:  log,
		conn: sock,
		rb:   mcwire.NewRingBuffer(size),
		host: host,
		port: uint16(port),
		cfg:  cfg,
	}
	c.session = protocol.NewSession(log, cache, st, c)

	log.Info("connected", "address", cfg.Address)
	return c, nil
}

// Session returns the protocol session decoding this connection.
func (c *Connection) Session() *protocol.Session { return c.session }

// Login sends the handshake (next state: login) and the login start packet.
func (c *Connection) Login() error {
	var payload []byte
	payload = mcwire.AppendVarInt(payload, ProtocolVersion)
	payload = mcwire.AppendString(payload, c.host)
	payload = binary.BigEndian.AppendUint16(payload, c.port)
	payload = mcwire.AppendVarInt(payload, 2)
	if err := c.writePacket(mcwire.IDServerHandshake, payload); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	if err := c.writePacket(mcwire.IDServerLoginStart, mcwire.AppendString(nil, c.cfg.Username)); err != nil {
		return fmt.Errorf("login start: %w", err)
	}
	return nil
}

// SendKeepAlive echoes a keep-alive id back to the server.
func (c *Connection) SendKeepAlive(id uint64) error {
	return c.writePacket(mcwire.IDServerKeepAlive, binary.BigEndian.AppendUint64(nil, id))
}

// SendTeleportConfirm acknowledges a position correction.
func (c *Connection) SendTeleportConfirm(id uint64) error {
	return c.writePacket(mcwire.IDServerTeleportConfirm, mcwire.AppendVarInt(nil, id))
}

// writePacket frames and sends one serverbound packet. Outbound packets are
// never compressed; once compression is enabled the frame carries a zero
// data-length prefix marking the payload as uncompressed.
func (c *Connection) writePacket(id uint64, payload []byte) error {
	body := mcwire.AppendVarInt(c.wbuf[:0], id)
	body = append(body, payload...)

	var frame []byte
	if c.session.CompressionEnabled() {
		frame = mcwire.AppendVarInt(nil, uint64(len(body)+1))
		frame = mcwire.AppendVarInt(frame, 0)
	} else {
		frame = mcwire.AppendVarInt(nil, uint64(len(body)))
	}
	frame = append(frame, body...)
	c.wbuf = body[:0]

	_, err := c.conn.Write(frame)
	return err
}

// Run pumps the socket until the context is canceled, the server closes the
// stream, or a fatal decode error occurs. Each iteration appends whatever the
// socket has to the ring buffer, then drains every fully-buffered frame;
// partial frames simply wait for the next read.
func (c *Connection) Run(ctx context.Context) error {
	defer c.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(readPollInterval))
		n, err := c.rb.ReadOnce(c.conn)

		if n > 0 {
			if derr := c.session.Drain(c.rb); derr != nil {
				// Desynchronized stream: report with context and terminate
				// instead of attempting to parse further.
				c.log.Error("fatal protocol error", "error", derr, "buffered", c.rb.Used())
				return fmt.Errorf("protocol error: %w", derr)
			}
		}

		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				c.log.Info("server closed connection")
				return nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

// Close shuts the socket down. Safe to call at any point between drains.
func (c *Connection) Close() error {
	return c.conn.Close()
}
