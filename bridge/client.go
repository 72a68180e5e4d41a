package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/caarlos0/sync/cio"
	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	"github.com/j-keck/arping"
	"go.bug.st/serial"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "bridge",
})

// The panel sends status frames every few hundred milliseconds, a quiet
// connection is a dead one.
const timeout = 5 * time.Second

// ErrClosed is returned when using a closed client.
var ErrClosed = errors.New("bridge client is closed")

// Options configures the connection. Exactly one of Addr and Port should be
// set.
type Options struct {
	// Addr is the host:port of a TCP bridge.
	Addr string
	// Port is the serial device of a bridge connected over USB.
	Port string
	// Baud is the serial baud rate.
	Baud int
}

func (o Options) String() string {
	if o.Port != "" {
		return fmt.Sprintf("serial %s@%d", o.Port, o.Baud)
	}
	return "tcp " + o.Addr
}

// Client reads frames from a bus bridge and sends keys to it.
type Client struct {
	opts Options

	lock   sync.Mutex
	conn   io.ReadWriteCloser
	closed bool
}

// New creates a client, connecting happens on Run.
func New(opts Options) (*Client, error) {
	if opts.Addr == "" && opts.Port == "" {
		return nil, errors.New("could not create bridge client: no address or port")
	}
	if opts.Baud == 0 {
		opts.Baud = 115200
	}
	return &Client{opts: opts}, nil
}

// MacAddress resolves the MAC address of the bridge, used as the serial
// number of the accessories.
func MacAddress(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	hw, _, err := arping.Ping(net.ParseIP(host))
	if err != nil {
		return "", fmt.Errorf("could not get the mac address: %w", err)
	}
	return hw.String(), nil
}

func (c *Client) dial() (io.ReadWriteCloser, error) {
	if c.opts.Port != "" {
		port, err := serial.Open(c.opts.Port, &serial.Mode{
			BaudRate: c.opts.Baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("could not open serial port %s: %w", c.opts.Port, err)
		}
		return port, nil
	}
	conn, err := net.DialTimeout("tcp", c.opts.Addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w", err)
	}
	return conn, nil
}

// Run connects and calls fn for every frame received, reconnecting with
// an exponential backoff when the connection breaks. It returns when ctx is
// done or the client is closed.
func (c *Client) Run(ctx context.Context, fn func(dsc.Frame)) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Second * 30
	bo.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		conn, err := c.dial()
		if err != nil {
			return err
		}
		if err := c.setConn(conn); err != nil {
			_ = conn.Close()
			return backoff.Permanent(err)
		}
		log.Info("connected", "bridge", c.opts)
		bo.Reset()

		err = c.read(ctx, conn, fn)
		c.dropConn(conn)
		if ctx.Err() != nil || c.isClosed() {
			return backoff.Permanent(ErrClosed)
		}
		return err
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		log.Error("bridge connection failed", "err", err, "retry", d)
	})
	if errors.Is(err, ErrClosed) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) read(ctx context.Context, conn io.ReadWriteCloser, fn func(dsc.Frame)) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	r := bufio.NewReader(cio.TimeoutReader(conn, timeout))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("could not read frame: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := ParseFrame(line)
		if err != nil {
			log.Debug("skipping line", "err", err)
			continue
		}
		fn(f)
	}
}

// SendKeys writes keys to the bridge, which writes them on the bus.
func (c *Client) SendKeys(_ context.Context, keys string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return dsc.ErrDisconnected
	}
	log.Debug("send keys", "count", len(keys))
	if _, err := io.WriteString(c.conn, FormatKeys(keys)); err != nil {
		return fmt.Errorf("could not send keys: %w", err)
	}
	return nil
}

// Close disconnects and stops Run.
func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("could not close bridge connection: %w", err)
	}
	return nil
}

func (c *Client) setConn(conn io.ReadWriteCloser) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.conn = conn
	return nil
}

func (c *Client) dropConn(conn io.ReadWriteCloser) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) isClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}
