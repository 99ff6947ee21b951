// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package headings

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRequiresForce is matched by a RejectedError: the edit would decrease a
// level-1 heading and needs explicit confirmation.
var ErrRequiresForce = errors.New("decreasing a level-1 heading requires force")

// ErrInvalidDelta is returned for a delta other than +1 or -1.
var ErrInvalidDelta = errors.New("heading delta must be +1 or -1")

// ErrUnsupportedFile is returned by ShiftFile for files that are neither
// Markdown nor notebooks.
var ErrUnsupportedFile = errors.New("unsupported file type")

// RejectedError lists the level-1 headings that blocked a decrease.
type RejectedError struct {
	Path      string
	Locations []Location
}

func (e *RejectedError) Error() string {
	where := make([]string, len(e.Locations))
	for i, loc := range e.Locations {
		where[i] = loc.String()
	}
	msg := fmt.Sprintf("%d level-1 heading(s) at %s", len(e.Locations), strings.Join(where, ", "))
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg + ": " + ErrRequiresForce.Error()
}

func (e *RejectedError) Unwrap() error { return ErrRequiresForce }
