// Package state is a tiny atomic state holder for services that move
// between a few numbered states.
package state

import "sync/atomic"

type Machine struct {
	state uint32
}

func (m *Machine) Set(s uint32) {
	atomic.StoreUint32(&m.state, s)
}

func (m *Machine) Get() uint32 {
	return atomic.LoadUint32(&m.state)
}

// Transition moves from old to new atomically and reports whether the
// swap happened.
func (m *Machine) Transition(old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&m.state, old, new)
}
