package rtnet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyrt/tinyrt/hwtimer"
	"github.com/tinyrt/tinyrt/rt"
)

// listenOnLoopback starts a plain net.Listener (the host's real TCP/IP
// stack, per spec.md §1's "treated as external collaborator") and returns
// its address alongside a channel carrying the one accepted connection.
func listenOnLoopback(t *testing.T) (addr string, accepted chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted = make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	return ln.Addr().String(), accepted
}

func TestConnDialReadWriteRoundTrip(t *testing.T) {
	addr, accepted := listenOnLoopback(t)

	driver := hwtimer.New()
	require.NoError(t, driver.Init())
	defer driver.Close()

	conn, err := Dial(driver, "tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	defer server.Close()

	runtime := rt.NewRuntime(driver)
	writePool := rt.NewPool[WriteResult]("write", 1)
	pw, err := writePool.Acquire()
	require.NoError(t, err)
	payload := []byte("task 1: fly.io")
	writeFut := conn.Write(payload)
	writeHandle := rt.Spawn(runtime, pw, rt.FuncFuture[WriteResult](func(cx *rt.PollContext) (WriteResult, bool) {
		return writeFut.Poll(cx)
	}))

	res := rt.BlockOn[WriteResult](runtime, rt.FuncFuture[WriteResult](func(cx *rt.PollContext) (WriteResult, bool) {
		return writeHandle.Poll(cx)
	}))
	require.NoError(t, res.Err)
	require.Equal(t, len(payload), res.N)

	got := make([]byte, len(payload))
	n, err := server.Read(got)
	require.NoError(t, err)
	require.Equal(t, payload, got[:n])

	_, err = server.Write([]byte("ack"))
	require.NoError(t, err)

	readPool := rt.NewPool[ReadResult]("read", 1)
	pr, err := readPool.Acquire()
	require.NoError(t, err)
	buf := make([]byte, 8)
	readFut := conn.Read(buf)
	readHandle := rt.Spawn(runtime, pr, rt.FuncFuture[ReadResult](func(cx *rt.PollContext) (ReadResult, bool) {
		return readFut.Poll(cx)
	}))

	readRes := rt.BlockOn[ReadResult](runtime, rt.FuncFuture[ReadResult](func(cx *rt.PollContext) (ReadResult, bool) {
		return readHandle.Poll(cx)
	}))
	require.NoError(t, readRes.Err)
	require.Equal(t, "ack", string(buf[:readRes.N]))
}

func TestConnReadAfterCloseReturnsErrClosed(t *testing.T) {
	addr, accepted := listenOnLoopback(t)
	driver := hwtimer.New()
	require.NoError(t, driver.Init())
	defer driver.Close()

	conn, err := Dial(driver, "tcp", addr)
	require.NoError(t, err)
	server := <-accepted
	defer server.Close()

	require.NoError(t, conn.Close())

	res, ready := conn.Read(make([]byte, 1)).Poll(&rt.PollContext{})
	require.True(t, ready)
	require.ErrorIs(t, res.Err, ErrClosed)
}

func TestDialUnresolvableAddressFails(t *testing.T) {
	driver := hwtimer.New()
	require.NoError(t, driver.Init())
	defer driver.Close()

	_, err := Dial(driver, "tcp", "this.host.does.not.resolve.invalid:80")
	require.Error(t, err)
}
