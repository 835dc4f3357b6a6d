package billing

import "errors"

var (
	// ErrVerification means the delivery could not be authenticated or decoded.
	// The caller answers 400 and persists nothing.
	ErrVerification = errors.New("billing: webhook verification failed")
	// ErrUnresolvedUser means no local user owns the event's customer id.
	ErrUnresolvedUser = errors.New("billing: no user for customer")
	// ErrUnresolvedSubscription means the event names a subscription we never recorded.
	ErrUnresolvedSubscription = errors.New("billing: unknown subscription")
	// ErrUpstreamProvider wraps failures talking to the billing provider.
	ErrUpstreamProvider = errors.New("billing: provider request failed")
	// ErrPersistence wraps failures writing local subscription state.
	ErrPersistence = errors.New("billing: persistence failed")
)
