package mocks

import "sync"

// FakePowerController is an in-memory power.Controller. Services flip it
// from background goroutines, so it guards everything with a mutex and
// exposes call counters instead of mock expectations.
type FakePowerController struct {
	mu       sync.Mutex
	on       bool
	onCalls  int
	offCalls int
	failWith error
}

// NewFakePowerController creates a fake rail in the given state.
func NewFakePowerController(initialOn bool) *FakePowerController {
	return &FakePowerController{on: initialOn}
}

// FailWith makes every subsequent On/Off call return err.
func (f *FakePowerController) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *FakePowerController) On() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCalls++
	if f.failWith != nil {
		return f.failWith
	}
	f.on = true
	return nil
}

func (f *FakePowerController) Off() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offCalls++
	if f.failWith != nil {
		return f.failWith
	}
	f.on = false
	return nil
}

func (f *FakePowerController) State() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *FakePowerController) Close() error {
	return nil
}

// OnCalls returns how many times On was invoked.
func (f *FakePowerController) OnCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onCalls
}

// OffCalls returns how many times Off was invoked.
func (f *FakePowerController) OffCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offCalls
}
