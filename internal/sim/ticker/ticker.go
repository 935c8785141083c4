// Package ticker runs per-tick listeners in a fixed priority order.
package ticker

import (
	"sort"

	"go.uber.org/zap"
)

type Priority int

// Lower priorities run first.
const (
	Begin         Priority = 0
	Callers       Priority = 50
	IntakeStart   Priority = 100
	ProgressStart Priority = 200
	CallersEnd    Priority = 250
	IntakeEnd     Priority = 300
	ProgressEnd   Priority = 400
	Sweep         Priority = 500
	Cleanup       Priority = 600
)

type Func func(tick uint64)

type listener struct {
	name string
	prio Priority
	fn   Func
}

// Dispatcher is not safe for concurrent use; it belongs to the tick goroutine.
type Dispatcher struct {
	log       *zap.Logger
	listeners []listener
	tick      uint64
}

func New(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{log: log}
}

// Register adds fn at prio. Listeners sharing a priority run in
// registration order.
func (d *Dispatcher) Register(name string, prio Priority, fn Func) {
	d.listeners = append(d.listeners, listener{name: name, prio: prio, fn: fn})
	sort.SliceStable(d.listeners, func(i, j int) bool {
		return d.listeners[i].prio < d.listeners[j].prio
	})
}

// Fire runs one tick and returns its number.
func (d *Dispatcher) Fire() uint64 {
	d.tick++
	for _, l := range d.listeners {
		d.call(l)
	}
	return d.tick
}

func (d *Dispatcher) Tick() uint64 { return d.tick }

// A panicking listener is logged and skipped; the rest of the tick still runs.
func (d *Dispatcher) call(l listener) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tick listener panicked",
				zap.String("listener", l.name),
				zap.Uint64("tick", d.tick),
				zap.Any("panic", r),
			)
		}
	}()
	l.fn(d.tick)
}
