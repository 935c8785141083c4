package breaking

import "voxelcraft.ai/botcore/internal/sim/action"

type slot int

const (
	slotPrimary slot = iota
	slotSecondary
	slotCount
)

func (s slot) String() string {
	if s == slotSecondary {
		return "secondary"
	}
	return "primary"
}

// registry holds the live break actions. Every change of ownership goes
// through set/clear/move so one tick step never leaves two slots pointing at
// the same action.
type registry struct {
	slots [slotCount]*action.Info
}

func (r *registry) get(s slot) *action.Info { return r.slots[s] }

func (r *registry) set(s slot, info *action.Info) {
	for i := range r.slots {
		if slot(i) != s && r.slots[i] == info && info != nil {
			r.slots[i] = nil
		}
	}
	r.slots[s] = info
}

func (r *registry) clear(s slot) *action.Info {
	info := r.slots[s]
	r.slots[s] = nil
	return info
}

// release clears whichever slot holds info.
func (r *registry) release(info *action.Info) {
	for i := range r.slots {
		if r.slots[i] == info {
			r.slots[i] = nil
		}
	}
}

func (r *registry) find(pos action.Vec3i) (slot, *action.Info, bool) {
	for i, info := range r.slots {
		if info != nil && info.Ctx.Pos == pos {
			return slot(i), info, true
		}
	}
	return 0, nil, false
}

// ordered lists live actions in reverse insertion order: the secondary, which
// started life as the older primary, before the primary.
func (r *registry) ordered() []*action.Info {
	out := make([]*action.Info, 0, slotCount)
	for i := slotCount - 1; i >= 0; i-- {
		if info := r.slots[i]; info != nil {
			out = append(out, info)
		}
	}
	return out
}

func (r *registry) len() int {
	n := 0
	for _, info := range r.slots {
		if info != nil {
			n++
		}
	}
	return n
}

func (r *registry) reset() {
	for i := range r.slots {
		r.slots[i] = nil
	}
}
