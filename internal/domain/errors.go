package domain

import "fmt"

// ValidationError 请求字段缺失或非法 (4xx, caller can resubmit)
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError referenced entity does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError state-machine conflict (double clock-in, overlapping active
// shift, double clock-out)
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func NewConflictError(reason string) *ConflictError {
	return &ConflictError{Reason: reason}
}

// OutsideGeofenceError presence check failed; carries the distance to the
// nearest geofence reference point for user feedback.
type OutsideGeofenceError struct {
	NearestDistanceMeters float64
}

func (e *OutsideGeofenceError) Error() string {
	return fmt.Sprintf("outside client geofence (nearest %.1f m away)", e.NearestDistanceMeters)
}

// AccessDeniedError caller's role does not permit the operation
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string { return e.Reason }

func NewAccessDeniedError(reason string) *AccessDeniedError {
	return &AccessDeniedError{Reason: reason}
}
