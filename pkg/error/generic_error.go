package error

import "net/http"

// GenericError is the contract every transport-facing error in this codebase
// satisfies. The REST recovery middleware uses it to map panics raised via
// utils.PanicIfNeeded into the response envelope.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}

type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

type ValidationError string

func (err ValidationError) Error() string {
	return string(err)
}

func (err ValidationError) ErrCode() string {
	return "VALIDATION_ERROR"
}

func (err ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// ImmutableStateError is raised when a caller tries to edit a post that has
// already been published. Neither store is touched before this is returned.
type ImmutableStateError string

func (err ImmutableStateError) Error() string {
	return string(err)
}

func (err ImmutableStateError) ErrCode() string {
	return "IMMUTABLE_STATE_ERROR"
}

func (err ImmutableStateError) StatusCode() int {
	return http.StatusConflict
}

// StoreTransactionError wraps a failed ScheduleStore transaction. The relational
// writes are rolled back by the store; the already-committed content write from
// the same call is NOT undone (documented gap, the ids are logged for manual
// reconciliation).
type StoreTransactionError string

func (err StoreTransactionError) Error() string {
	return string(err)
}

func (err StoreTransactionError) ErrCode() string {
	return "STORE_TRANSACTION_ERROR"
}

func (err StoreTransactionError) StatusCode() int {
	return http.StatusInternalServerError
}

type UnauthorizedError string

func (err UnauthorizedError) Error() string {
	return string(err)
}

func (err UnauthorizedError) ErrCode() string {
	return "UNAUTHORIZED"
}

func (err UnauthorizedError) StatusCode() int {
	return http.StatusUnauthorized
}
