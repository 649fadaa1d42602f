package edgeauth

import "errors"

// Verification errors returned by the credential verifier. These are safe to
// surface to the UI layer as user-visible messages.
var (
	// ErrProviderRejected means the identity provider denied the code exchange
	// or returned an unusable assertion (no email, no account id).
	ErrProviderRejected = errors.New("identity provider rejected the sign-in")

	// ErrProviderMismatch means the asserted email already belongs to a user
	// whose account was established under a different provider, and no explicit
	// linking step has been performed.
	ErrProviderMismatch = errors.New("account exists under a different sign-in provider")

	ErrTokenExpired     = errors.New("sign-in link has expired")
	ErrTokenAlreadyUsed = errors.New("sign-in link has already been used")
	ErrTokenNotFound    = errors.New("sign-in link is not valid")
)

// ErrStoreUnavailable wraps any infrastructure failure talking to the backing
// store. It is fatal to the current request and is never retried; handlers map
// it to a generic failure response so store internals do not leak.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrDeliveryFailed means the email delivery channel rejected the magic-link
// message. The caller should discard the request and let the user retry.
var ErrDeliveryFailed = errors.New("email delivery failed")

// IsDeliveryError reports whether err is (or wraps) ErrDeliveryFailed.
func IsDeliveryError(err error) bool {
	return errors.Is(err, ErrDeliveryFailed)
}

// IsVerificationError reports whether err belongs to the verification error
// taxonomy (as opposed to an infrastructure failure).
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrProviderRejected) ||
		errors.Is(err, ErrProviderMismatch) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenAlreadyUsed) ||
		errors.Is(err, ErrTokenNotFound)
}
