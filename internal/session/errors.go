// Package session implements the interactive result-set session: the state
// machine owning the current query and page, and the command language typed
// at the prompt. It is the only place that mutates the query or swaps the
// page; everything around it renders, fetches or forwards.
package session

import (
	"errors"
	"fmt"
)

// CommandSyntaxError is unparseable or wrong-arity interactive input, or a
// known verb given an argument that fails validation. It is reported and
// changes nothing.
type CommandSyntaxError struct {
	Token  string
	Reason string
	// Unknown marks an unrecognized verb, as opposed to a recognized verb
	// used badly. The console treats unknown verbs as fresh search queries;
	// a bad argument never gets that reinterpretation.
	Unknown bool
}

func (e *CommandSyntaxError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unknown command %q", e.Token)
	}
	if e.Token == "" {
		return e.Reason
	}
	return fmt.Sprintf("bad command %q: %s", e.Token, e.Reason)
}

// IndexOutOfRangeError is an inspection or action index outside the current
// page.
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range: page has %d results", e.Index, e.Count)
}

// ErrNoPage guards operations that need a fetched page before one exists.
var ErrNoPage = errors.New("no results yet; run a search first")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")
