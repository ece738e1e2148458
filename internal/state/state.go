package state

// State is the explicit value threaded through the core and its stream
// handlers, replacing the module-level globals (all_data, positions,
// orders, performing) of the prior implementation. It owns the Book
// Store, Position & Order Store, and Pending Intents Set; the Reconciler
// and Stream Handlers hold a reference to one shared State and never
// keep private copies of its containers.
type State struct {
	Books     *BookStore
	Positions *PositionStore
	Pending   *PendingSet
}

// New returns an empty, ready-to-use State.
func New() *State {
	return &State{
		Books:     NewBookStore(),
		Positions: NewPositionStore(),
		Pending:   NewPendingSet(),
	}
}
