package memenv

import (
	"errors"
	"os"

	"github.com/hupe1980/memenv/internal/block"
)

var (
	// ErrNotFound is returned when a name is absent from the environment.
	//
	// It maps to os.ErrNotExist so callers probing with
	// errors.Is(err, os.ErrNotExist) behave the same as against the
	// disk-backed environment.
	ErrNotFound = os.ErrNotExist

	// ErrOutOfRange is returned when a read offset exceeds the file size.
	ErrOutOfRange = block.ErrOutOfRange

	// ErrInvalidState indicates an internal consistency violation, such as
	// a sequential cursor beyond the file size. It signals a usage bug and
	// should be unreachable under correct use.
	ErrInvalidState = errors.New("invalid state")
)
