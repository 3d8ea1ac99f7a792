//go:build !linux

package devices

// NewDescriber returns nil; host details are only available on Linux.
func NewDescriber() Describer {
	return nil
}
