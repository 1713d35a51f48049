package sqldb

import "context"

// Target is the pool chosen for one unit of work
type Target struct {
	Name   string // logical name the pool was configured under
	Client Client
}

// Source resolves the pool to use for the unit of work carried by ctx.
// A single pool is a Source that ignores ctx; a routing data source is one that does not.
type Source interface {
	Resolve(ctx context.Context) (Target, error)
}

// Fixed is a Source that always resolves to the same pool
type Fixed Target

// Ensure Fixed implements Source
var _ Source = Fixed{}

func (f Fixed) Resolve(_ context.Context) (Target, error) {
	return Target(f), nil
}
