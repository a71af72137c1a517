package buddy

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidPointer is reported (never returned) when Free is asked to
// release an address outside the arena.
var ErrInvalidPointer = errors.New("buddy: invalid pointer passed to Free")

// ErrDoubleFree is reported (never returned) when Free is asked to
// release a block that is not currently reserved.
var ErrDoubleFree = errors.New("buddy: double free or invalid free detected")

// reportf writes a diagnostic line to the process's standard error
// stream. Free does not return an error for these conditions — per the
// allocator's contract they abort the operation without mutating pool
// state or the caller's program, so a long-running process can keep going.
func reportf(err error, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", err, fmt.Sprintf(format, args...))
}
