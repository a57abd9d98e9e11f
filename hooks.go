package refcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A store read failed and was treated as a miss.
	// op ∈ {"get", "get_items", "has", "read_grouped"}
	ReadFailed(op string, keys int, err error)

	// A store write failed with an error.
	// op ∈ {"set", "set_multiple", "add", "delete", "delete_multiple", "clear",
	//      "write_grouped", "invalidate_group"}
	WriteFailed(op string, keys int, err error)

	// The store refused a write without an error (backpressure/admission).
	WriteRejected(op string, keys int)

	// The bytes stored for key could not be decoded and were treated as a
	// miss. key is the caller's key, or the group name for "token", before
	// any store prefix is applied.
	// reason ∈ {"envelope", "token", "value_decode"}
	Malformed(key, reason string)

	// A grouped lookup resolved.
	GroupResolved(group string, state State)

	// The ref source failed; the grouped write was abandoned.
	RefError(group string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ReadFailed(string, int, error)  {}
func (NopHooks) WriteFailed(string, int, error) {}
func (NopHooks) WriteRejected(string, int)      {}
func (NopHooks) Malformed(string, string)       {}
func (NopHooks) GroupResolved(string, State)    {}
func (NopHooks) RefError(string, error)         {}
