package apperrors

// Error is the error type returned across package boundaries. Errors form a tree:
// New derives a child that still matches its parent with errors.Is, and Msg/Err/MsgErr
// return annotated copies so package-level sentinels are never mutated.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	MsgErr(msg string, err ...error) Error
	Msg(msg string) Error
	Prefix(prefix string) Error
	Suffix(suffix string) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}
