// Command demo wires a real hwtimer.Driver to the rt executor and drives
// the three concrete scenarios from the testable-properties section: pool
// exhaustion, two concurrent sleepers, and a bounded-channel rendezvous.
//
// Each scenario is written as an explicit phased state machine rather than
// nesting BlockOn calls — exactly the translation strategy spec.md's design
// notes prescribe for a language without built-in coroutines: a struct
// holding resume state, with a poll method that advances to the next
// suspension point each call.
package main

import (
	"fmt"
	"os"

	"github.com/tinyrt/tinyrt/clock"
	"github.com/tinyrt/tinyrt/hwtimer"
	"github.com/tinyrt/tinyrt/rt"
	"github.com/tinyrt/tinyrt/rtsync"
)

func main() {
	driver := hwtimer.New(hwtimer.WithLogger(rt.DefaultLogger()))
	if err := driver.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "hwtimer init:", err)
		os.Exit(1)
	}
	defer driver.Close()

	runtime := rt.NewRuntime(driver, rt.WithLogger(rt.DefaultLogger()), rt.WithPoolWarnThreshold(50))

	rt.BlockOn[struct{}](runtime, &poolExhaustionScenario{rt: runtime})
	rt.BlockOn[struct{}](runtime, &twoSleepersScenario{rt: runtime, start: clock.Now()})
	rt.BlockOn[struct{}](runtime, &channelRendezvousScenario{rt: runtime})
}

// work is the spec's example entry point with pool size 2: declaring its
// pool at package scope is the Go substitute for the original macro's
// static array-per-entry-point codegen.
var workPool = rt.NewPool[int]("work", 2)

func work(n int) rt.Future[int] {
	return rt.FuncFuture[int](func(cx *rt.PollContext) (int, bool) {
		return n * 2, true
	})
}

type poolExhaustionScenario struct {
	rt    *rt.Runtime
	phase int
	h1    *rt.JoinHandle[int]
	h2    *rt.JoinHandle[int]
	v1    int
}

func (s *poolExhaustionScenario) Poll(cx *rt.PollContext) (struct{}, bool) {
	switch s.phase {
	case 0:
		p1, err := workPool.Acquire()
		if err != nil {
			panic(err)
		}
		s.h1 = rt.Spawn(s.rt, p1, work(1))

		p2, err := workPool.Acquire()
		if err != nil {
			panic(err)
		}
		s.h2 = rt.Spawn(s.rt, p2, work(2))

		if _, err := workPool.Acquire(); err != rt.ErrQueueFull {
			panic("expected QueueFull on third acquire")
		}
		fmt.Println("pool exhaustion: third acquire correctly returned QueueFull")
		s.phase = 1
		fallthrough

	case 1:
		v1, ready := s.h1.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		s.v1 = v1
		s.phase = 2
		fallthrough

	case 2:
		v2, ready := s.h2.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		fmt.Println("pool exhaustion: joined outputs", s.v1, v2)

		p3, err := workPool.Acquire()
		if err != nil {
			panic("expected a free slot after both tasks completed")
		}
		h3 := rt.Spawn(s.rt, p3, work(3))
		fmt.Println("pool exhaustion: fourth acquire after recycling succeeded, id", h3.ID())
		return struct{}{}, true
	}
	panic("unreachable phase")
}

var sleeperPool = rt.NewPool[string]("sleeper", 2)

func delay(label string, d clock.Duration) rt.Future[string] {
	sleep := rt.NewSleep(d)
	return rt.FuncFuture[string](func(cx *rt.PollContext) (string, bool) {
		if _, ready := sleep.Poll(cx); !ready {
			return "", false
		}
		return label, true
	})
}

type twoSleepersScenario struct {
	rt    *rt.Runtime
	start clock.Instant
	phase int
	five  *rt.JoinHandle[string]
	one   *rt.JoinHandle[string]
}

func (s *twoSleepersScenario) Poll(cx *rt.PollContext) (struct{}, bool) {
	switch s.phase {
	case 0:
		pFive, _ := sleeperPool.Acquire()
		s.five = rt.Spawn(s.rt, pFive, delay("five", clock.FromSeconds(5)))

		pOne, _ := sleeperPool.Acquire()
		s.one = rt.Spawn(s.rt, pOne, delay("one", clock.FromSeconds(1)))
		s.phase = 1
		fallthrough

	case 1:
		out, ready := s.one.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		fmt.Printf("two sleepers: %q joined at +%dms\n", out, clock.Now().Sub(s.start).AsMillis())
		s.phase = 2
		fallthrough

	case 2:
		out, ready := s.five.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		fmt.Printf("two sleepers: %q joined at +%dms\n", out, clock.Now().Sub(s.start).AsMillis())
		return struct{}{}, true
	}
	panic("unreachable phase")
}

var (
	senderPool   = rt.NewPool[struct{}]("sender", 1)
	receiverPool = rt.NewPool[string]("receiver", 1)
)

type channelRendezvousScenario struct {
	rt       *rt.Runtime
	phase    int
	sender   *rt.JoinHandle[struct{}]
	receiver *rt.JoinHandle[string]
}

func (s *channelRendezvousScenario) Poll(cx *rt.PollContext) (struct{}, bool) {
	switch s.phase {
	case 0:
		ch := rtsync.NewChannel[string](2)
		tx, rx := rtsync.Split(ch)

		pSend, _ := senderPool.Acquire()
		s.sender = rt.Spawn(s.rt, pSend, rt.FuncFuture[struct{}](func(cx *rt.PollContext) (struct{}, bool) {
			_, ready := tx.Send("task 1: fly.io").Poll(cx)
			return struct{}{}, ready
		}))

		pRecv, _ := receiverPool.Acquire()
		s.receiver = rt.Spawn(s.rt, pRecv, rt.FuncFuture[string](func(cx *rt.PollContext) (string, bool) {
			res, ready := rx.Recv().Poll(cx)
			if !ready {
				return "", false
			}
			return res.Value, true
		}))
		s.phase = 1
		fallthrough

	case 1:
		if _, ready := s.sender.Poll(cx); !ready {
			return struct{}{}, false
		}
		s.phase = 2
		fallthrough

	case 2:
		got, ready := s.receiver.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		fmt.Printf("channel rendezvous: receiver observed %q\n", got)
		return struct{}{}, true
	}
	panic("unreachable phase")
}
