package identity

import "errors"

var (
	// ErrInvalidCredentials is returned when the email/password pair is rejected.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrEmailInUse is returned when registration targets an existing account.
	ErrEmailInUse = errors.New("identity: email already in use")
	// ErrWeakPassword is returned when the auth backend rejects the password.
	ErrWeakPassword = errors.New("identity: password too weak")
	// ErrNoSession is returned when an operation requires a signed-in user.
	ErrNoSession = errors.New("identity: no active session")
	// ErrInvalidInput is returned when required fields are blank or malformed.
	ErrInvalidInput = errors.New("identity: invalid input")
	// ErrUnavailable is returned when the auth backend cannot be reached.
	ErrUnavailable = errors.New("identity: auth backend unavailable")
)
