package domain

import "errors"

var (
	ErrPlateRequired       = errors.New("license plate is required")
	ErrCoordinatesRequired = errors.New("spot coordinates are required")
	ErrInvalidExitTime     = errors.New("exit time precedes entry time")

	ErrVehicleAlreadyInGarage = errors.New("vehicle already in garage")
	ErrAlreadyParked          = errors.New("vehicle already parked")
	ErrNoActiveSession        = errors.New("no active session for vehicle")
	ErrNoSectorAvailable      = errors.New("no sector available for entry")
	ErrSpotOccupied           = errors.New("spot already occupied")

	ErrSpotNotFound    = errors.New("spot not found")
	ErrSectorNotFound  = errors.New("sector not found")
	ErrSessionNotFound = errors.New("session not found")

	ErrSectorWithoutSpots = errors.New("sector has no spots configured")
)

// ErrorKind groups domain errors by how callers should react to them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindConfiguration
)

// Kind classifies a domain error. Unknown errors should be treated as
// internal failures by the caller.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrPlateRequired),
		errors.Is(err, ErrCoordinatesRequired),
		errors.Is(err, ErrInvalidExitTime):
		return KindValidation
	case errors.Is(err, ErrVehicleAlreadyInGarage),
		errors.Is(err, ErrAlreadyParked),
		errors.Is(err, ErrNoActiveSession),
		errors.Is(err, ErrNoSectorAvailable),
		errors.Is(err, ErrSpotOccupied):
		return KindConflict
	case errors.Is(err, ErrSpotNotFound),
		errors.Is(err, ErrSectorNotFound),
		errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrSectorWithoutSpots):
		return KindConfiguration
	default:
		return KindUnknown
	}
}
