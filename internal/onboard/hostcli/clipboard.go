package hostcli

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard writes to the system clipboard.
type Clipboard struct{}

func (Clipboard) WriteText(_ context.Context, text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}
