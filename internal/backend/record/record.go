// Package record provides an in-memory shadow backend that records every
// command it receives. It backs the headless planner and the tests.
package record

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// Op is a recorded command type.
type Op int

const (
	OpAllocate Op = iota
	OpRelease
	OpDraw
	OpPublish
)

func (o Op) String() string {
	switch o {
	case OpAllocate:
		return "allocate"
	case OpRelease:
		return "release"
	case OpDraw:
		return "draw"
	case OpPublish:
		return "publish"
	}
	return "unknown"
}

// Command is one recorded backend call.
type Command struct {
	Op     Op
	Target shadow.TargetID
	Width  int
	Height int
	Draw   shadow.DrawRequest
}

// Target describes a depth target known to the backend.
type Target struct {
	ID        shadow.TargetID
	Width     int
	Height    int
	DepthBits int
	InUse     bool
}

// ErrUnknownTarget is returned when releasing or drawing into a target
// that is not allocated.
var ErrUnknownTarget = errors.New("record: unknown or released target")

// Backend records commands and pools released targets by size, like a
// temporary render texture pool.
type Backend struct {
	Commands []Command
	// Globals is the last published state.
	Globals *shadow.Globals

	// FailAllocation, when set, is returned by the next allocations whose
	// size matches FailWidth (0 matches all).
	FailAllocation error
	FailWidth      int

	targets map[shadow.TargetID]*Target
	nextID  shadow.TargetID
}

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{targets: make(map[shadow.TargetID]*Target)}
}

// AllocateDepthTarget implements shadow.Backend.
func (b *Backend) AllocateDepthTarget(width, height, depthBits int) (shadow.TargetID, error) {
	if b.FailAllocation != nil && (b.FailWidth == 0 || b.FailWidth == width) {
		return 0, b.FailAllocation
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("record: invalid target size %dx%d", width, height)
	}

	t := b.pooled(width, height, depthBits)
	if t == nil {
		b.nextID++
		t = &Target{ID: b.nextID, Width: width, Height: height, DepthBits: depthBits}
		b.targets[t.ID] = t
	}
	t.InUse = true
	b.Commands = append(b.Commands, Command{Op: OpAllocate, Target: t.ID, Width: width, Height: height})
	return t.ID, nil
}

func (b *Backend) pooled(width, height, depthBits int) *Target {
	var best *Target
	for _, t := range b.targets {
		if t.InUse || t.Width != width || t.Height != height || t.DepthBits != depthBits {
			continue
		}
		if best == nil || t.ID < best.ID {
			best = t
		}
	}
	return best
}

// ReleaseTarget implements shadow.Backend.
func (b *Backend) ReleaseTarget(id shadow.TargetID) error {
	t, ok := b.targets[id]
	if !ok || !t.InUse {
		return fmt.Errorf("%w: %d", ErrUnknownTarget, id)
	}
	t.InUse = false
	b.Commands = append(b.Commands, Command{Op: OpRelease, Target: id})
	return nil
}

// SubmitShadowDraws implements shadow.Backend.
func (b *Backend) SubmitShadowDraws(req shadow.DrawRequest) error {
	t, ok := b.targets[req.Target]
	if !ok || !t.InUse {
		return fmt.Errorf("%w: %d", ErrUnknownTarget, req.Target)
	}
	v := req.Viewport
	if v.X < 0 || v.Y < 0 || v.X+v.Width > t.Width || v.Y+v.Height > t.Height {
		return fmt.Errorf("record: viewport %+v outside %dx%d target", v, t.Width, t.Height)
	}
	b.Commands = append(b.Commands, Command{Op: OpDraw, Target: req.Target, Draw: req})
	return nil
}

// Publish implements shadow.Backend.
func (b *Backend) Publish(g *shadow.Globals) error {
	cp := *g
	b.Globals = &cp
	b.Commands = append(b.Commands, Command{Op: OpPublish})
	return nil
}

// Draws returns the recorded draw requests in submission order.
func (b *Backend) Draws() []shadow.DrawRequest {
	var draws []shadow.DrawRequest
	for _, c := range b.Commands {
		if c.Op == OpDraw {
			draws = append(draws, c.Draw)
		}
	}
	return draws
}

// Target returns the state of a known target.
func (b *Backend) Target(id shadow.TargetID) (Target, bool) {
	t, ok := b.targets[id]
	if !ok {
		return Target{}, false
	}
	return *t, true
}

// Live returns the number of targets currently handed out.
func (b *Backend) Live() int {
	n := 0
	for _, t := range b.targets {
		if t.InUse {
			n++
		}
	}
	return n
}

// Reset drops the command log, keeping pooled targets.
func (b *Backend) Reset() {
	b.Commands = b.Commands[:0]
	b.Globals = nil
}
