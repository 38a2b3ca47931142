package playout

import "errors"

var (
	// ErrEmptySchedule is returned when a channel has no schedule items
	ErrEmptySchedule = errors.New("channel schedule has no items")

	// ErrNoCollections is returned when a build is given no collections at all
	ErrNoCollections = errors.New("no collections supplied for build")

	// ErrMissingCollection is returned when a schedule item references a collection
	// that was not supplied to the build
	ErrMissingCollection = errors.New("schedule item references an unknown collection")

	// ErrInvalidScheduleItem is returned when a schedule item's mode parameters are unusable
	ErrInvalidScheduleItem = errors.New("invalid schedule item")

	// ErrInvalidBuildMode is returned for an unrecognised build mode
	ErrInvalidBuildMode = errors.New("invalid build mode")

	// ErrInvalidWindow is returned when the build window is empty or inverted
	ErrInvalidWindow = errors.New("build window finish must be after start")

	// ErrSchedulerStalled is returned when a full pass over the schedule produced nothing
	ErrSchedulerStalled = errors.New("scheduler made no progress over a full pass of the schedule")

	// ErrChannelNotFound indicates the requested channel does not exist
	ErrChannelNotFound = errors.New("channel not found")
)

// IsConfigurationError reports whether err is a configuration problem that a retry
// cannot fix until the channel's schedule or collections change
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrEmptySchedule) ||
		errors.Is(err, ErrNoCollections) ||
		errors.Is(err, ErrMissingCollection) ||
		errors.Is(err, ErrInvalidScheduleItem) ||
		errors.Is(err, ErrInvalidBuildMode) ||
		errors.Is(err, ErrInvalidWindow)
}

// IsStalled reports whether err is a scheduler stall
func IsStalled(err error) bool {
	return errors.Is(err, ErrSchedulerStalled)
}
