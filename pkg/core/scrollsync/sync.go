// Package scrollsync mirrors the vertical scroll offset between the two
// panes of the planner: the fixed-width date rail and the wide timeline
// grid. Rows in both correspond 1:1 to the same days, so their offsets
// must never diverge. Copying an offset into a pane makes that pane fire
// its own scroll event back at us; the synchronizer is an explicit state
// machine so that echo is absorbed exactly once instead of feeding back.
package scrollsync

// Pane is the minimal scrollable surface the synchronizer needs. The UI
// shell adapts its real scroll containers to this interface.
type Pane interface {
	ScrollTop() float64
	SetScrollTop(top float64)
}

type syncState int

const (
	stateIdle syncState = iota
	stateSyncingFromPrimary
	stateSyncingFromSecondary
)

// Synchronizer keeps two panes at the same vertical offset.
// It is driven entirely by the panes' scroll events; call OnPrimaryScroll
// or OnSecondaryScroll from the corresponding pane's handler.
type Synchronizer struct {
	primary   Pane
	secondary Pane
	state     syncState
}

func New(primary, secondary Pane) *Synchronizer {
	return &Synchronizer{primary: primary, secondary: secondary}
}

// OnPrimaryScroll handles a scroll event from the primary pane
func (s *Synchronizer) OnPrimaryScroll() {
	s.onScroll(s.primary, s.secondary, stateSyncingFromSecondary, stateSyncingFromPrimary)
}

// OnSecondaryScroll handles a scroll event from the secondary pane
func (s *Synchronizer) OnSecondaryScroll() {
	s.onScroll(s.secondary, s.primary, stateSyncingFromPrimary, stateSyncingFromSecondary)
}

// Idle reports whether no sync is currently awaiting its echo
func (s *Synchronizer) Idle() bool {
	return s.state == stateIdle
}

func (s *Synchronizer) onScroll(from, to Pane, echoOf, syncing syncState) {
	// The event is the echo of an offset we just copied into this pane;
	// absorb it and return to idle without copying back.
	if s.state == echoOf {
		s.state = stateIdle
		return
	}

	top := from.ScrollTop()
	if to.ScrollTop() == top {
		// Nothing to copy, and SetScrollTop with an unchanged offset
		// would fire no echo to clear the syncing state.
		return
	}

	s.state = syncing
	to.SetScrollTop(top)
}
