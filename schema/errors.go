package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrWindowNotFound indicates a requested window could not be found.
	ErrWindowNotFound = errors.New("window not found")
	// ErrWindowExists indicates a window with the same id is already open.
	ErrWindowExists = errors.New("window already exists")
	// ErrInvalidWindow indicates an invalid window identifier.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrInvalidReorder indicates a reorder that is not a permutation of the open tabs.
	ErrInvalidReorder = errors.New("reorder must be a permutation of open tabs")
	// ErrInvalidSetting indicates an unknown setting key or a value of the wrong type.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrInvalidSearchEngine indicates an unsupported search engine name.
	ErrInvalidSearchEngine = errors.New("invalid search engine")
	// ErrIncognito indicates an operation that is not available in incognito windows.
	ErrIncognito = errors.New("not available in incognito windows")
	// ErrEmptyInput indicates an empty address bar submission.
	ErrEmptyInput = errors.New("empty input")
	// ErrClosed indicates the service has been shut down.
	ErrClosed = errors.New("service closed")
)
