package library

import "errors"

// Failure taxonomy. Every operation surfaces one of these sentinels
// (possibly wrapped with context); callers match with errors.Is. Nothing in
// this package panics on a domain failure.
var (
	// Validation failures.
	ErrInvalidGenre       = errors.New("genre is not in the configured set")
	ErrInvalidCopyCount   = errors.New("invalid copy count")
	ErrInvalidContact     = errors.New("invalid contact details")
	ErrInvalidID          = errors.New("identifier must not be empty")
	ErrUnknownSearchField = errors.New("unknown search field")

	// Conflict failures.
	ErrDuplicateID       = errors.New("identifier already in use")
	ErrItemCheckedOut    = errors.New("item is currently checked out")
	ErrHasBorrowedItems  = errors.New("member still has borrowed items")
	ErrAlreadyBorrowed   = errors.New("member already holds this item")
	ErrBorrowLimit       = errors.New("borrowing limit reached")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrNotBorrowed       = errors.New("item is not borrowed by this member")

	// Not-found failures.
	ErrItemNotFound   = errors.New("item not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrUserNotFound   = errors.New("user not found")

	// Authorization and session failures. A denial is a normal control-flow
	// result: the caller checks it and must not proceed past it.
	ErrDenied             = errors.New("permission denied")
	ErrNotAuthenticated   = errors.New("no active session")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoActiveSession    = errors.New("no active session to log out")
)
