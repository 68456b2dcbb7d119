package imaging

import "fmt"

// ShapeMismatchError reports a host that cannot hold the requested
// watermark, or two arrays whose shapes disagree. Required and Available
// are counted in bits (one per sample) for watermarking.
type ShapeMismatchError struct {
	Required  int
	Available int
	Detail    string
}

func (e *ShapeMismatchError) Error() string {
	msg := fmt.Sprintf("shape mismatch: required %d bits, available %d bits", e.Required, e.Available)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// UnsupportedFormatError reports an array layout the driver cannot process.
type UnsupportedFormatError struct {
	Channels int
	Detail   string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unsupported format (%d channels): %s", e.Channels, e.Detail)
	}
	return fmt.Sprintf("unsupported format: %d channels, want 1, 3 or 4", e.Channels)
}
