//go:build !linux

package isolation

import "fmt"

// Overlay is unsupported outside linux; "lite" isolation requires linux.
type Overlay struct {
	Root string
}

func BuildOverlay(scratchBase string) (*Overlay, error) {
	return nil, fmt.Errorf("overlay isolation only supported on linux")
}

func (o *Overlay) Teardown() {}
