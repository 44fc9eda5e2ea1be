package utils

// Guard runs cleanup for resources acquired part way through a function that then fails, e.g. a
// controller that opened its overlay file and then rejected its config.
//
//	guard := NewGuard(func() { f.Close() })
//	defer guard.OnFail()
//	if err != nil { return err }
//	guard.Success()
//	return nil
//
// Further cleanups can be stacked with Add; they run in reverse order of registration.
type Guard struct {
	cleanups []func()
	success  bool
}

// NewGuard returns a Guard that runs onFailCleanup unless Success is called first.
func NewGuard(onFailCleanup func()) *Guard {
	guard := &Guard{}
	guard.Add(onFailCleanup)
	return guard
}

// Add registers another cleanup. A nil cleanup is ignored.
func (guard *Guard) Add(cleanup func()) {
	if cleanup == nil {
		return
	}
	guard.cleanups = append(guard.cleanups, cleanup)
}

// OnFail runs the cleanups, newest first, unless Success was called. It is meant to be deferred.
func (guard *Guard) OnFail() {
	if guard.success {
		return
	}
	for i := len(guard.cleanups) - 1; i >= 0; i-- {
		guard.cleanups[i]()
	}
	guard.cleanups = nil
}

// Success declares the function succeeded and the failure cleanup does not need to run.
func (guard *Guard) Success() {
	guard.success = true
}
