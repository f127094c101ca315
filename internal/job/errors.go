package job

import "errors"

var (
	// ErrUnknownFunction is returned by Registry.Get for a name the
	// process was not built to serve.
	ErrUnknownFunction = errors.New("job: unknown function")

	// ErrAlreadyRegistered is returned by Registry.Register when a
	// function name is registered twice.
	ErrAlreadyRegistered = errors.New("job: function already registered")

	// ErrConfigurationLocked is returned by Configuration.SetBroker once
	// the configuration has been locked past startup.
	ErrConfigurationLocked = errors.New("job: configuration is locked")

	// ErrNoBroker is returned by RunRemotely/AddToQueue/StartWorker when
	// a Configuration has no broker attached yet.
	ErrNoBroker = errors.New("job: configuration has no broker")
)
