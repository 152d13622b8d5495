package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock", fx.Provide(NewSystem))

// Clock is the time source for calendar-sensitive rules.
type Clock interface {
	Now() time.Time
}

type System struct{}

func NewSystem() Clock { return System{} }

func (System) Now() time.Time { return time.Now().UTC() }
