package rt

import "github.com/tinyrt/tinyrt/clock"

// timerQueue is the intrusive doubly-linked set of sleeping tasks
// (taskCore.timerPrev/timerNext), plus a cached deadline giving the
// earliest expiry among members. Doubly-linked because process must be able
// to unlink an expired entry from an arbitrary position in O(1).
type timerQueue struct {
	head, tail     *taskCore
	cachedDeadline clock.Instant
	hasDeadline    bool
}

// pushBack parks t with the given deadline. If t is already a member (its
// expiry is set), the call updates the expiry in place rather than
// re-linking — the idempotent half of schedule_timer's contract.
func (q *timerQueue) pushBack(t *taskCore, deadline clock.Instant) {
	if t.expiry != nil {
		*t.expiry = deadline
		q.considerDeadline(deadline)
		return
	}

	exp := deadline
	t.expiry = &exp
	t.timerPrev = q.tail
	t.timerNext = nil
	if q.tail == nil {
		q.head = t
	} else {
		q.tail.timerNext = t
	}
	q.tail = t
	q.considerDeadline(deadline)
}

func (q *timerQueue) considerDeadline(d clock.Instant) {
	if !q.hasDeadline || d.Before(q.cachedDeadline) {
		q.cachedDeadline = d
		q.hasDeadline = true
	}
}

// deadline returns the cached earliest expiry among current members.
func (q *timerQueue) deadline() (clock.Instant, bool) {
	return q.cachedDeadline, q.hasDeadline
}

// unlink detaches t from the list, correctly repairing head/tail and
// neighbor links for the head, tail, and middle cases, and clears t's
// expiry (t is no longer a timer-queue member).
func (q *timerQueue) unlink(t *taskCore) {
	if t.timerPrev != nil {
		t.timerPrev.timerNext = t.timerNext
	} else {
		q.head = t.timerNext
	}
	if t.timerNext != nil {
		t.timerNext.timerPrev = t.timerPrev
	} else {
		q.tail = t.timerPrev
	}
	t.timerPrev = nil
	t.timerNext = nil
	t.expiry = nil
}

// process walks the full list once, unlinking and scheduling every task
// whose expiry has arrived, and recomputes the cached deadline from the
// tasks that remain. It is called exactly once per executor round, before
// the ready queue is drained, so a task that expires here is scheduled with
// the generation tag that makes it eligible for this same round's drain.
func (q *timerQueue) process(now clock.Instant, rt *Runtime) {
	var newDeadline clock.Instant
	haveNewDeadline := false

	t := q.head
	for t != nil {
		next := t.timerNext
		exp := *t.expiry
		if !exp.After(now) {
			q.unlink(t)
			rt.ready.schedule(t)
		} else if !haveNewDeadline || exp.Before(newDeadline) {
			newDeadline = exp
			haveNewDeadline = true
		}
		t = next
	}

	q.cachedDeadline = newDeadline
	q.hasDeadline = haveNewDeadline
}
