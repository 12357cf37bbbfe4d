package domain

import (
	"errors"
	"fmt"
)

var (
	ErrParameterSetNotFound = errors.New("parameter set not found")
	ErrJobRegistration      = errors.New("failed to create a job")
	ErrNotSignedIn          = errors.New("not signed in")
	ErrNoCredentials        = errors.New("no credentials supplied")
	ErrSecretNotFound       = errors.New("secret not found")
)

// Connection resources, used to tag which side of the client failed.
const (
	ResourceWorks  = "Tutti.works"
	ResourceMarket = "Tutti.market"
)

// ConnectionError reports a failure to establish one side's connection.
type ConnectionError struct {
	Resource string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Resource, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ValidationError reports a platform parameter set that cannot be published to
// the marketplace.
type ValidationError struct {
	PlatformParameterSetID PlatformParameterSetID
	Platform               string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("platform parameter set ID %q is not set for market (platform %q)", e.PlatformParameterSetID, e.Platform)
}

// PublishError reports a failure partway through the publish workflow. Any
// resources created on the remote side before the failure are carried along so
// the caller can decide how to clean up.
type PublishError struct {
	Step            string
	NanotaskIDs     []NanotaskID
	NanotaskGroupID NanotaskGroupID
	Err             error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish tasks to market: %s: %v", e.Step, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
