package serial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// LinkPath is the websocket endpoint served by Listen.
const LinkPath = "/link"

// rxBuffer bounds the bytes queued from the remote end before they are polled.
const rxBuffer = 64

// ErrLinkClosed is returned by Transmit after the connection dropped.
var ErrLinkClosed = errors.New("serial link closed")

// Link is a Peer connected to another emulator over a websocket. Every transmitted
// byte is sent as one binary message; bytes from the remote end are queued and handed
// out by Receive without blocking the CPU loop.
type Link struct {
	conn   *websocket.Conn
	rx     chan byte
	done   chan struct{}
	logger *slog.Logger

	mu     sync.Mutex // guards writes and err
	err    error
	server *http.Server
	once   sync.Once
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16,
	WriteBufferSize: 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newLink(conn *websocket.Conn, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Link{
		conn:   conn,
		rx:     make(chan byte, rxBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.readPump()
	return l
}

// Dial connects to a peer listening at url (ws://host:port/link).
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Link, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial serial link %s: %w", url, err)
	}
	return newLink(conn, logger), nil
}

// Listen serves LinkPath on address and waits for the first peer to connect.
func Listen(ctx context.Context, address string, logger *slog.Logger) (*Link, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen serial link %s: %w", address, err)
	}
	return accept(ctx, ln, logger)
}

func accept(ctx context.Context, ln net.Listener, logger *slog.Logger) (*Link, error) {
	connected := make(chan *websocket.Conn, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(LinkPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case connected <- conn:
		default:
			// already linked
			conn.Close()
		}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(ln)

	select {
	case conn := <-connected:
		l := newLink(conn, logger)
		l.server = server
		return l, nil
	case <-ctx.Done():
		server.Close()
		return nil, ctx.Err()
	}
}

func (l *Link) readPump() {
	defer close(l.done)
	for {
		_, message, err := l.conn.ReadMessage()
		if err != nil {
			l.fail(err)
			return
		}
		for _, b := range message {
			select {
			case l.rx <- b:
			default:
				l.logger.Warn("serial link receive queue full, dropping byte", "value", b)
			}
		}
	}
}

func (l *Link) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
		l.logger.Info("serial link disconnected", "err", err)
	}
}

// Err reports why the link stopped, if it did.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Transmit sends b to the remote end. Failures are logged and close the link.
func (l *Link) Transmit(b byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if err := l.conn.WriteMessage(websocket.BinaryMessage, []byte{b}); err != nil {
		l.err = err
		l.logger.Info("serial link write failed", "err", err)
	}
}

// Receive returns the oldest byte sent by the remote end, or NoConnection if none is
// queued.
func (l *Link) Receive() (byte, Status) {
	select {
	case b := <-l.rx:
		return b, Success
	default:
		return 0, NoConnection
	}
}

// Close closes the connection and, for a listening link, the server.
func (l *Link) Close() error {
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		if l.err == nil {
			l.err = ErrLinkClosed
		}
		l.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		l.mu.Unlock()

		err = l.conn.Close()
		<-l.done
		if l.server != nil {
			l.server.Close()
		}
	})
	return err
}
