package goPrereg

// subscriber receives committed snapshots. ch always holds the newest
// undelivered snapshots; when full, the oldest is dropped.
type subscriber struct {
	ch chan FlowState
}

func (s *subscriber) deliver(state FlowState) {
	select {
	case s.ch <- state:
		return
	default:
	}
	// lagging consumer: make room by discarding the oldest snapshot
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- state:
	default:
	}
}

// Subscribe returns a channel receiving every committed state in order,
// starting with the current one. A subscriber that falls more than buffer
// snapshots behind loses the oldest ones. A buffer <= 0 uses
// Flow.SubscriberBuffer from the config. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (f *Flow) Subscribe(buffer int) (<-chan FlowState, func()) {
	if buffer <= 0 {
		buffer = f.engine.config.Flow.SubscriberBuffer
	}
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscriber{ch: make(chan FlowState, buffer)}

	f.mu.Lock()
	state := f.state
	f.pubMu.Lock()
	f.mu.Unlock()

	f.nextSub++
	id := f.nextSub
	f.subs[id] = sub
	sub.deliver(state)
	f.pubMu.Unlock()

	var done bool
	return sub.ch, func() {
		f.pubMu.Lock()
		defer f.pubMu.Unlock()
		if done {
			return
		}
		done = true
		delete(f.subs, id)
		close(sub.ch)
	}
}

// commitLocked publishes the current state and releases f.mu. The publish
// lock is taken before f.mu is released so subscribers see states in commit
// order.
func (f *Flow) commitLocked() FlowState {
	state := f.state
	f.pubMu.Lock()
	f.mu.Unlock()

	for _, sub := range f.subs {
		sub.deliver(state)
	}
	f.pubMu.Unlock()
	return state
}
