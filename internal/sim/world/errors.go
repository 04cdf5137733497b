package world

import (
	"errors"
	"fmt"
)

// ErrSimulationFault is wrapped by every error returned from a tick that hit
// a broken invariant. The game state is not rolled back; callers must stop.
var ErrSimulationFault = errors.New("simulation fault")

var (
	ErrNotOwner       = errors.New("position not owned by player")
	ErrBadRoad        = errors.New("invalid road")
	ErrOccupied       = errors.New("position occupied")
	ErrNoSuchObject   = errors.New("no such object")
	ErrCannotDemolish = errors.New("cannot demolish")
	ErrBadPlayer      = errors.New("unknown player")
	ErrBadTarget      = errors.New("invalid attack target")
	ErrCannotBuild    = errors.New("cannot build")
	ErrNoKnights      = errors.New("no knights available")
	ErrNoSerf         = errors.New("no serf available")
)

// SimError is raised with panic from inside a tick and recovered by Step.
type SimError struct {
	Tick uint32
	Op   string
	Msg  string
}

func (e *SimError) Error() string {
	return fmt.Sprintf("tick %d: %s: %s", e.Tick, e.Op, e.Msg)
}

func (e *SimError) Unwrap() error { return ErrSimulationFault }

// fault aborts the current tick.
func (g *Game) fault(op, format string, args ...any) {
	panic(&SimError{Tick: g.tick, Op: op, Msg: fmt.Sprintf(format, args...)})
}

// guard converts a fault raised by fn into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SimError)
			if !ok {
				panic(r)
			}
			err = se
		}
	}()
	fn()
	return nil
}

// command runs a player command. A fault inside it is returned like one
// from Step.
func (g *Game) command(fn func() error) (err error) {
	if ferr := guard(func() { err = fn() }); ferr != nil {
		return ferr
	}
	return err
}
