package util

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal is a helper method for detecting whether an [io.Writer] is a
// interactive terminal / TTY.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// IsInteractive reports whether both stdin and stdout are terminals, which is
// required before prompting the user for a choice.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && IsTerminal(os.Stdout)
}

// IsCI determines if the current execution context is within a known CI/CD system.
// This is based on https://github.com/watson/ci-info/blob/HEAD/index.js.
func IsCI() bool {
	return os.Getenv("CI") != "" || // GitHub Actions, Travis CI, CircleCI, Cirrus CI, GitLab CI, AppVeyor, CodeShip, dsari
		os.Getenv("BUILD_NUMBER") != "" || // Jenkins, TeamCity
		os.Getenv("RUN_ID") != "" // TaskCluster, dsari
}
