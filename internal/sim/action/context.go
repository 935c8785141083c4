package action

// Context describes one target position of a request. Contexts are values:
// a fresher derivation replaces the whole Context, nothing patches it.
type Context struct {
	Pos     Vec3i
	Current uint16 // last observed block at Pos
	Desired uint16 // block expected at Pos once the action lands

	Side Side
	Slot int // equipment slot to act with, -1 keeps whatever is selected

	// Placement only.
	Hand         Hand
	Hit          HitResult
	DelayTicks   int
	DependsOn    []int // indices into Request.Contexts, in order
	RequireSneak bool

	// ExpectDrop is the item type a destroy is expected to spawn. Empty
	// disables drop tracking.
	ExpectDrop string
}

// Satisfied reports whether the world already shows the desired block.
func (c Context) Satisfied(w BlockReader) bool {
	return w.BlockAt(c.Pos) == c.Desired
}
