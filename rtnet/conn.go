// Package rtnet adapts a raw, non-blocking socket into the waker contract:
// Read and Write return rt.Future values that park the calling task until
// the shared epoll instance (owned by hwtimer.Driver) reports the socket
// ready, rather than blocking the executor goroutine.
//
// Grounded on the distilled project's chrono/src/net/tcp.rs TcpStream
// (itself a thin Pollable<std::net::TcpStream> wrapper) and its
// bin/tcp/src/main.rs driver program: "socket objects as futures over
// shared mutable state" from the out-of-scope collaborator list, built here
// without re-implementing a TCP/IP stack — dialing and address resolution
// still go through the host's real network stack.
package rtnet

import (
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"

	"github.com/tinyrt/tinyrt/hwtimer"
	"github.com/tinyrt/tinyrt/rt"
	"github.com/tinyrt/tinyrt/rtsync"
)

// ErrClosed is returned by Read/Write futures once the connection has been
// closed.
var ErrClosed = errors.New("rtnet: connection closed")

// Conn is a non-blocking socket registered with a hwtimer.Driver's shared
// epoll instance. The zero value is not usable; construct with Dial.
type Conn struct {
	fd      int
	driver  *hwtimer.Driver
	closed  bool
	readers []pendingIO
	writers []pendingIO
	// inflight bounds concurrent Read/Write futures per connection, the
	// role semaphore.rs's Semaphore plays for the original's bounded
	// channel send permits, repurposed here for socket operations.
	inflight *rtsync.Semaphore
}

type pendingIO struct {
	waker rt.Waker
}

// Dial resolves and connects to address over network ("tcp" or "tcp4"/
// "tcp6"), using the host stack for DNS and the three-way handshake (both
// out of scope per the runtime's own spec), then hands the connected socket
// to driver as a non-blocking, epoll-registered Conn.
func Dial(driver *hwtimer.Driver, network, address string) (*Conn, error) {
	tcpAddr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return nil, fmt.Errorf("rtnet: resolve %s: %w", address, err)
	}

	domain := unix.AF_INET
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	} else if ip6 := tcpAddr.IP.To16(); ip6 != nil {
		domain = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], ip6)
		return dial(driver, domain, sa6)
	}
	return dial(driver, domain, sa)
}

func dial(driver *hwtimer.Driver, domain int, sa unix.Sockaddr) (*Conn, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("rtnet: socket: %w", err)
	}
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rtnet: connect: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rtnet: set nonblocking: %w", err)
	}

	// Read interest only: with a level-triggered poller, permanent write
	// interest would wake the executor on every halt while the send buffer
	// has room. Write interest is enabled only while a writer is parked.
	c := &Conn{fd: fd, driver: driver, inflight: rtsync.NewSemaphore(4)}
	if err := driver.RegisterIO(fd, hwtimer.EventRead, c.onReady); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rtnet: register: %w", err)
	}
	return c, nil
}

// Close unregisters and closes the underlying socket.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.driver.UnregisterIO(c.fd)
	for _, p := range c.readers {
		p.waker.WakeByRef()
	}
	for _, p := range c.writers {
		p.waker.WakeByRef()
	}
	c.readers, c.writers = nil, nil
	return unix.Close(c.fd)
}

func (c *Conn) onReady(events hwtimer.IOEvents) {
	if events&(hwtimer.EventRead|hwtimer.EventHangup|hwtimer.EventError) != 0 {
		for _, p := range c.readers {
			p.waker.WakeByRef()
		}
		c.readers = c.readers[:0]
	}
	if events&(hwtimer.EventWrite|hwtimer.EventError) != 0 {
		for _, p := range c.writers {
			p.waker.WakeByRef()
		}
		c.writers = c.writers[:0]
		_ = c.driver.ModifyIO(c.fd, hwtimer.EventRead)
	}
}

// ReadResult carries the number of bytes read, mirroring io.Reader's
// (n, err) shape in a value a Future can return.
type ReadResult struct {
	N   int
	Err error
}

// Read returns a Future that completes once buf has been filled with at
// least one byte, or an error (including io.EOF on orderly shutdown) is
// available.
func (c *Conn) Read(buf []byte) rt.Future[ReadResult] {
	return &readFuture{c: c, buf: buf}
}

type readFuture struct {
	c        *Conn
	buf      []byte
	acquire  rt.Future[struct{}]
	acquired bool
}

// Poll first waits for a free slot in the connection's inflight semaphore
// (bounding how many concurrent Read/Write futures one Conn will service,
// the rtnet analogue of the original's bounded send permits), then performs
// the non-blocking read.
func (f *readFuture) Poll(cx *rt.PollContext) (ReadResult, bool) {
	if f.c.closed {
		return ReadResult{Err: ErrClosed}, true
	}
	if !f.acquired {
		if f.acquire == nil {
			f.acquire = f.c.inflight.Acquire()
		}
		if _, ready := f.acquire.Poll(cx); !ready {
			return ReadResult{}, false
		}
		f.acquired = true
	}

	n, err := unix.Read(f.c.fd, f.buf)
	if err == nil {
		f.c.inflight.Release()
		if n == 0 && len(f.buf) > 0 {
			return ReadResult{Err: io.EOF}, true
		}
		return ReadResult{N: n}, true
	}
	if errors.Is(err, unix.EAGAIN) {
		f.c.readers = append(f.c.readers, pendingIO{waker: cx.Waker().Clone()})
		return ReadResult{}, false
	}
	f.c.inflight.Release()
	return ReadResult{Err: err}, true
}

// WriteResult carries the number of bytes written.
type WriteResult struct {
	N   int
	Err error
}

// Write returns a Future that completes once at least one byte of buf has
// been accepted by the socket send buffer, or an error is available.
func (c *Conn) Write(buf []byte) rt.Future[WriteResult] {
	return &writeFuture{c: c, buf: buf}
}

type writeFuture struct {
	c        *Conn
	buf      []byte
	acquire  rt.Future[struct{}]
	acquired bool
}

func (f *writeFuture) Poll(cx *rt.PollContext) (WriteResult, bool) {
	if f.c.closed {
		return WriteResult{Err: ErrClosed}, true
	}
	if !f.acquired {
		if f.acquire == nil {
			f.acquire = f.c.inflight.Acquire()
		}
		if _, ready := f.acquire.Poll(cx); !ready {
			return WriteResult{}, false
		}
		f.acquired = true
	}

	n, err := unix.Write(f.c.fd, f.buf)
	if err == nil {
		f.c.inflight.Release()
		return WriteResult{N: n}, true
	}
	if errors.Is(err, unix.EAGAIN) {
		f.c.writers = append(f.c.writers, pendingIO{waker: cx.Waker().Clone()})
		_ = f.c.driver.ModifyIO(f.c.fd, hwtimer.EventRead|hwtimer.EventWrite)
		return WriteResult{}, false
	}
	f.c.inflight.Release()
	return WriteResult{Err: err}, true
}
