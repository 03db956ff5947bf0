package common

// Exit codes returned by the CLI
const (
	ExitSuccess             = 0 // Success
	ExitGeneralError        = 1 // General error
	ExitInvalidParameters   = 3 // Invalid parameters
	ExitAuthenticationError = 4 // Authentication error
	ExitInstallFailed       = 8 // Installer exited non-zero, failed to start or was cancelled
	ExitVerificationFailed  = 9 // Installed server could not be verified
)

// ExitCodeError creates an error that will cause the program to exit with the specified code
type ExitCodeError struct {
	code int
	err  error
}

func (e ExitCodeError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e ExitCodeError) Unwrap() error {
	return e.err
}

func (e ExitCodeError) ExitCode() int {
	return e.code
}

// ExitWithCode returns an error that will cause the program to exit with the specified code
func ExitWithCode(code int, err error) error {
	return ExitCodeError{code: code, err: err}
}
