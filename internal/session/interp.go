package session

import (
	"context"
	"fmt"

	"github.com/hyperifyio/sxr/internal/search"
)

// Outcome is what one applied command asks the surrounding loop to do.
// Exactly one of the display fields is populated per command; errors travel
// separately.
type Outcome struct {
	// Page is non-nil when a fresh page should be rendered.
	Page *search.Page
	// Raw is the single result to dump for an inspect command.
	Raw *search.Result
	// Settings asks for the current query and flags snapshot.
	Settings bool
	// Help asks for the command reference.
	Help bool
	// History holds the recorded command lines to display.
	History []string
	// OpenURL and CopyText are external actions for the OS layer.
	OpenURL  string
	CopyText string
	// Notice is a one-line confirmation, toggles mostly.
	Notice string
	// Quit ends the loop.
	Quit bool
}

// Interpreter applies parsed commands to a session.
type Interpreter struct {
	sess *Session
}

func NewInterpreter(s *Session) *Interpreter {
	return &Interpreter{sess: s}
}

// Apply executes one command. Mutating commands whose edit fails return
// before any network call; mutate-and-requery commands re-search only after
// the edit succeeded. Every error is one of the session or search error
// types and is safe to report and carry on.
func (it *Interpreter) Apply(ctx context.Context, cmd Command) (Outcome, error) {
	s := it.sess
	switch cmd.Kind {
	case KindSearch:
		if err := s.SetQuery(cmd.Arg); err != nil {
			return Outcome{}, err
		}
		return it.requery(ctx)

	case KindNext:
		return it.paged(ctx, search.PageNext)
	case KindPrev:
		return it.paged(ctx, search.PagePrev)
	case KindFirst:
		return it.paged(ctx, search.PageFirst)

	case KindEngines:
		if err := s.ApplyEngines(cmd.Args); err != nil {
			return Outcome{}, err
		}
		return it.requery(ctx)
	case KindCategories:
		if err := s.ApplyCategories(cmd.Args); err != nil {
			return Outcome{}, err
		}
		return it.requery(ctx)

	case KindTimeRange:
		if err := s.SetTimeRange(cmd.Arg); err != nil {
			return Outcome{}, err
		}
		return it.requery(ctx)
	case KindSite:
		site := cmd.Arg
		if site == "-" {
			site = ""
		}
		s.SetSite(site)
		return it.requery(ctx)
	case KindSafeSearch:
		if err := s.SetSafeSearch(cmd.Arg); err != nil {
			return Outcome{}, err
		}
		return it.requery(ctx)

	case KindToggleExpand:
		return Outcome{Notice: "url expansion " + onOff(s.ToggleExpand())}, nil
	case KindToggleDebug:
		return Outcome{Notice: "debug " + onOff(s.ToggleDebug())}, nil
	case KindToggleColor:
		return Outcome{Notice: "color " + onOff(s.ToggleColor())}, nil

	case KindInspect:
		r, err := s.Result(cmd.Index)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Raw: &r}, nil

	case KindSettings:
		return Outcome{Settings: true}, nil
	case KindHistory:
		h := s.History()
		if len(h) == 0 {
			return Outcome{Notice: "history is empty"}, nil
		}
		return Outcome{History: h}, nil
	case KindHelp:
		return Outcome{Help: true}, nil

	case KindOpen:
		r, err := s.Result(cmd.Index)
		if err != nil {
			return Outcome{}, err
		}
		if r.URL == "" {
			return Outcome{}, fmt.Errorf("result %d has no url", cmd.Index)
		}
		return Outcome{OpenURL: r.URL}, nil
	case KindOpenRandom:
		r, err := s.RandomResult()
		if err != nil {
			return Outcome{}, err
		}
		if r.URL == "" {
			return Outcome{}, fmt.Errorf("picked result has no url")
		}
		return Outcome{OpenURL: r.URL}, nil
	case KindCopy:
		r, err := s.Result(cmd.Index)
		if err != nil {
			return Outcome{}, err
		}
		if r.URL == "" {
			return Outcome{}, fmt.Errorf("result %d has no url", cmd.Index)
		}
		return Outcome{CopyText: r.URL}, nil

	case KindQuit:
		s.Close()
		return Outcome{Quit: true}, nil
	}
	return Outcome{}, fmt.Errorf("unhandled command kind %v", cmd.Kind)
}

func (it *Interpreter) requery(ctx context.Context) (Outcome, error) {
	page, err := it.sess.Search(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Page: page}, nil
}

func (it *Interpreter) paged(ctx context.Context, dir search.PageDirection) (Outcome, error) {
	page, err := it.sess.Page(ctx, dir)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Page: page}, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
