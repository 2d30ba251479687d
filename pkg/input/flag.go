package input

// Flag is a mutable suppression cell shared by reference. Every touch event
// produced from one native motion event holds the same *Flag, so a consumer
// setting it on any record makes the decision visible to the adapter's
// read-back. Last write before read-back wins; repeated writes are tolerated.
//
// A Flag is only ever touched from the goroutine the native event arrived on,
// so no synchronization is needed.
type Flag struct {
	suppress bool
}

// NewFlag returns a flag in the default (false) state.
func NewFlag() *Flag {
	return &Flag{}
}

// Set requests (or withdraws) suppression of the platform's default handling.
func (f *Flag) Set(suppress bool) {
	f.suppress = suppress
}

// Get reports the current suppression decision.
func (f *Flag) Get() bool {
	return f.suppress
}
