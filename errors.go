package bloodliner

import "errors"

// Rejections leave the season untouched and are safe to show to the user.
var (
	ErrInvalidDay       = errors.New("day is outside the season")
	ErrDayLocked        = errors.New("day is locked")
	ErrAlreadyFinalized = errors.New("day is already finalized")
	ErrEmptyDay         = errors.New("day has no recorded activity, confirm to finalize")
	ErrInvalidWakeTime  = errors.New("wake time must be between 00:00 and 23:59")
	ErrUnknownHabit     = errors.New("unknown habit")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidGoal      = errors.New("goal must be between 1 and 100")
	ErrInvalidRating    = errors.New("rating must be between 1 and 10")
	ErrInvalidTap       = errors.New("invalid tap count")
	ErrInvalidHabit     = errors.New("habit name is required")
)

// IsRejection reports whether err is a validation rejection rather than a
// storage failure.
func IsRejection(err error) bool {
	for _, e := range []error{
		ErrInvalidDay, ErrDayLocked, ErrAlreadyFinalized, ErrEmptyDay, ErrInvalidWakeTime,
		ErrUnknownHabit, ErrUnknownCategory, ErrInvalidGoal, ErrInvalidRating, ErrInvalidTap,
		ErrInvalidHabit,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
