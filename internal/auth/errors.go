package auth

import "errors"

var (
	// ErrInvalidToken covers bad signatures, malformed input and expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a token of one kind is presented
	// where the other kind is required.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMissingSubject is returned for a well-signed token without "sub".
	ErrMissingSubject = errors.New("token has no subject")

	ErrEmptyPassword        = errors.New("password is empty")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrPasswordTooLong      = errors.New("password is too long")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)
