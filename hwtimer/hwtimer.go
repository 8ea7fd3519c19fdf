// Package hwtimer is the time driver (spec component B): it owns one
// hardware countdown timer and bridges its interrupt to the executor's
// wait-for-event halt.
//
// This machine has no NVIC or cycle-accurate countdown timer to program, so
// the "hardware" is simulated with facilities the host kernel actually
// provides: a one-shot Linux timerfd stands in for the countdown timer, and
// an epoll instance blocked on that timerfd (plus a wake eventfd) stands in
// for asm.wfe/asm.sev — grounded on the teacher's own use of epoll+eventfd
// for exactly this purpose (eventloop/poller_linux.go, wakeup_linux.go).
package hwtimer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"

	"github.com/tinyrt/tinyrt/clock"
)

// ErrTimerUninitialized is the fatal error raised when Start or WaitForEvent
// is called before Init. Per spec.md §7 this is a programmer error; Start
// panics with it rather than returning it, matching "halts the process."
var ErrTimerUninitialized = errors.New("hwtimer: driver used before init")

// ErrAlreadyInitialized guards against double Init, which would otherwise
// leak the underlying epoll/timerfd/eventfd descriptors.
var ErrAlreadyInitialized = errors.New("hwtimer: already initialized")

const maxEpollEvents = 64

// IOEvents mirrors the epoll readiness bits a registered fd's callback
// receives, named the way the teacher's own poller names them
// (eventloop/poller_linux.go).
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

func ioEventsFromEpoll(mask uint32) IOEvents {
	var e IOEvents
	if mask&unix.EPOLLIN != 0 {
		e |= EventRead
	}
	if mask&unix.EPOLLOUT != 0 {
		e |= EventWrite
	}
	if mask&unix.EPOLLERR != 0 {
		e |= EventError
	}
	if mask&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		e |= EventHangup
	}
	return e
}

// Driver owns the simulated hardware countdown timer. The zero value is not
// usable; construct with New.
type Driver struct {
	mu          sync.Mutex // serializes Start/handleInterrupt, the critical section spec.md §5 calls for
	log         *logiface.Logger[logiface.Event]
	epfd        int
	timerfd     int
	wakefd      int
	initialized bool
	armed       bool
	io          map[int]func(IOEvents)
}

// Option configures a Driver at construction.
type Option func(*Driver)

// WithLogger attaches a structured logger. Without one, Driver logs nothing
// (a nil-safe no-op, matching logiface.Logger's zero value behavior).
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(d *Driver) { d.log = l }
}

// New constructs a Driver. It does not touch the OS until Init is called.
func New(opts ...Option) *Driver {
	d := &Driver{timerfd: -1, epfd: -1, wakefd: -1}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Init enables the timer: it is the one-shot equivalent of unmasking the
// timer interrupt in the NVIC and configuring one-shot update-event mode.
// Spec.md §6 describes this as taking (hardware_timer, clock_configuration,
// peripheral_bus_handle); here the host kernel is the only "peripheral", so
// Init takes no arguments.
func (d *Driver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return ErrAlreadyInitialized
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("hwtimer: epoll_create1: %w", err)
	}

	tfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return fmt.Errorf("hwtimer: timerfd_create: %w", err)
	}

	wfd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(tfd)
		return fmt.Errorf("hwtimer: eventfd: %w", err)
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, tfd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(tfd)}); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(tfd)
		_ = unix.Close(wfd)
		return fmt.Errorf("hwtimer: epoll_ctl(timerfd): %w", err)
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wfd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(tfd)
		_ = unix.Close(wfd)
		return fmt.Errorf("hwtimer: epoll_ctl(eventfd): %w", err)
	}

	d.epfd, d.timerfd, d.wakefd = epfd, tfd, wfd
	d.initialized = true
	return nil
}

// Close releases the underlying descriptors. Not part of spec.md (the target
// never exits); provided so tests and short-lived demos don't leak fds.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, fd := range []int{d.timerfd, d.wakefd, d.epfd} {
		if fd >= 0 {
			if err := unix.Close(fd); err != nil {
				errs = append(errs, err)
			}
		}
	}
	d.initialized = false
	return errors.Join(errs...)
}

// Start programs the timer to fire after delay, overwriting any outstanding
// program — spec.md §4.B. Calling Start before Init is a programmer error
// that halts the process.
func (d *Driver) Start(delay clock.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		panic(ErrTimerUninitialized)
	}

	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(delay.AsTimeDuration().Nanoseconds()),
	}
	if spec.Value.Sec == 0 && spec.Value.Nsec == 0 {
		// TimerfdSettime treats an all-zero Value as "disarm". A genuine
		// zero-tick sleep must still fire, so round up to the minimum
		// representable interval.
		spec.Value.Nsec = 1
	}
	if err := unix.TimerfdSettime(d.timerfd, 0, &spec, nil); err != nil {
		panic(fmt.Errorf("hwtimer: timerfd_settime: %w", err))
	}
	d.armed = true

	if d.log != nil {
		d.log.Debug().Dur("delay", delay.AsTimeDuration()).Log("hwtimer: timer armed")
	}
}

// RegisterIO adds an externally-owned file descriptor (e.g. a socket, for
// rtnet) to the same epoll instance the timer uses, so a single WaitForEvent
// call serves both timer and I/O wake-ups — exactly the teacher's FastPoller
// design (eventloop/poller_linux.go's FastPoller.RegisterFD), scaled down to
// a map instead of a direct-indexed array since this driver expects at most
// a handful of concurrently open sockets rather than 65536.
//
// on is invoked from within WaitForEvent, on the executor goroutine, when fd
// becomes ready for any of the requested events; it is expected to wake
// whatever task is waiting on that readiness, not to do I/O itself.
func (d *Driver) RegisterIO(fd int, events IOEvents, on func(IOEvents)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		panic(ErrTimerUninitialized)
	}
	var mask uint32 = unix.EPOLLERR | unix.EPOLLHUP
	if events&EventRead != 0 {
		mask |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)}); err != nil {
		return fmt.Errorf("hwtimer: epoll_ctl(add %d): %w", fd, err)
	}
	if d.io == nil {
		d.io = make(map[int]func(IOEvents))
	}
	d.io[fd] = on
	return nil
}

// ModifyIO updates the readiness events being watched for a registered fd.
// With a level-triggered epoll, a consumer that kept write interest
// permanently enabled would wake the executor on every WaitForEvent while
// the socket's send buffer has room; consumers instead enable write
// interest only while a writer is actually parked.
func (d *Driver) ModifyIO(fd int, events IOEvents) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		panic(ErrTimerUninitialized)
	}
	var mask uint32 = unix.EPOLLERR | unix.EPOLLHUP
	if events&EventRead != 0 {
		mask |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)}); err != nil {
		return fmt.Errorf("hwtimer: epoll_ctl(mod %d): %w", fd, err)
	}
	return nil
}

// UnregisterIO removes fd from the shared epoll instance.
func (d *Driver) UnregisterIO(fd int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		panic(ErrTimerUninitialized)
	}
	delete(d.io, fd)
	return unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Notify emits the SEV signal: any goroutine (a channel sender, a socket
// adapter) that wants to unblock a WaitForEvent call does so here, rather
// than touching the queues directly — the single-core cooperative model
// means only the executor goroutine ever drains the queues; everyone else
// can only ask it to wake up and look.
func (d *Driver) Notify() error {
	d.mu.Lock()
	wfd := d.wakefd
	init := d.initialized
	d.mu.Unlock()
	if !init {
		panic(ErrTimerUninitialized)
	}
	var one [8]byte
	one[7] = 1
	_, err := unix.Write(wfd, one[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("hwtimer: eventfd write: %w", err)
	}
	return nil
}

// WaitForEvent halts the (simulated) processor: it blocks until the armed
// timer fires, Notify is called, or a registered I/O fd becomes ready.
// fired reports whether the timer specifically expired — the caller (the
// executor) doesn't actually need to distinguish the two, since it
// re-evaluates the timer queue and ready queue unconditionally either way,
// but the signal is useful for logging and tests.
func (d *Driver) WaitForEvent() (fired bool, err error) {
	d.mu.Lock()
	epfd := d.epfd
	init := d.initialized
	d.mu.Unlock()
	if !init {
		panic(ErrTimerUninitialized)
	}

	var events [maxEpollEvents]unix.EpollEvent
	for {
		n, err := unix.EpollWait(epfd, events[:], -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return false, fmt.Errorf("hwtimer: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch fd {
			case d.timerfd:
				if d.handleInterrupt() {
					fired = true
				}
			case d.wakefd:
				d.drainWake()
			default:
				d.mu.Lock()
				cb := d.io[fd]
				d.mu.Unlock()
				if cb != nil {
					cb(ioEventsFromEpoll(events[i].Events))
				}
			}
		}
		return fired, nil
	}
}

// handleInterrupt is the ISR (spec.md §4.B): inside a critical section,
// clear the timer's update event, stop the timer, and (implicitly, since we
// are already the woken execution context) signal the event. It never
// touches the ready or timer queue, per spec.md §5.
func (d *Driver) handleInterrupt() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf [8]byte
	n, err := unix.Read(d.timerfd, buf[:])
	if err != nil || n != 8 {
		return false // spurious wakeup or already drained by a racing call
	}
	d.armed = false

	if d.log != nil {
		d.log.Debug().Log("hwtimer: interrupt triggered")
	}
	return true
}

func (d *Driver) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(d.wakefd, buf[:])
		if err != nil {
			return
		}
	}
}

// Armed reports whether a timer program is currently outstanding. Exposed
// for tests.
func (d *Driver) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}
