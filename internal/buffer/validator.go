package buffer

import (
	"fmt"
)

const maxDimension = 32768

func ValidateForOperation(buf *Buffer, operation string) error {
	if buf == nil {
		return fmt.Errorf("buffer is nil for operation: %s: %w", operation, ErrEmpty)
	}

	if !buf.IsValid() {
		return fmt.Errorf("buffer is closed for operation: %s: %w", operation, ErrEmpty)
	}

	if buf.Empty() {
		return fmt.Errorf("buffer has no pixels for operation: %s: %w", operation, ErrEmpty)
	}

	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}

// ValidateChannels checks that buf is usable and has one of the allowed channel counts.
func ValidateChannels(buf *Buffer, operation string, allowed ...int) error {
	if err := ValidateForOperation(buf, operation); err != nil {
		return err
	}

	channels := buf.Channels()
	for _, c := range allowed {
		if c == channels {
			return nil
		}
	}

	return fmt.Errorf("%w: %d for operation: %s (want one of %v)", ErrInvalidChannels, channels, operation, allowed)
}

func ValidateCoordinates(x, y int, buf *Buffer, operation string) error {
	if x < 0 || x >= buf.Width() {
		return fmt.Errorf("x %d out of bounds [0, %d) for operation: %s", x, buf.Width(), operation)
	}

	if y < 0 || y >= buf.Height() {
		return fmt.Errorf("y %d out of bounds [0, %d) for operation: %s", y, buf.Height(), operation)
	}

	return nil
}
