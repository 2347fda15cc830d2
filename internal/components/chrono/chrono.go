package chrono

import (
	"time"
	_ "time/tzdata"
)

// API is an abstraction over the clock.
//
// note: fault injection point
type API interface {
	Now() time.Time
	Location() *time.Location
}

// PortalTimezone is where the portal and its users live, run timestamps and
// schedules follow it.
const PortalTimezone = "America/Sao_Paulo"

type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() (StandardImpl, error) {
	location, err := time.LoadLocation(PortalTimezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always answers the same time.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

func (f FixedImpl) Location() *time.Location {
	return f.Time.Location()
}
