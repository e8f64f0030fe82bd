package chat

import "errors"

// Structural errors raised synchronously to the caller. Provider failures
// never surface here; those become transcript text (see pkg/aiengine).
var (
	// ErrEmptyName is returned for blank chatroom or bot role names.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNameConflict is returned when a chatroom or bot role name is
	// already taken within its scope.
	ErrNameConflict = errors.New("name already exists")

	// ErrNotFound is returned when a chatroom or bot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDetached is returned for operations that need an owning manager
	// on a chatroom that has none.
	ErrDetached = errors.New("chatroom is not attached to a manager")
)
