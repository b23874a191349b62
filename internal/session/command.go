package session

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperifyio/sxr/internal/search"
)

// Kind identifies one interactive command. The set is closed: parsing
// produces exactly one of these and dispatch switches over all of them.
type Kind int

const (
	// KindSearch replaces the query text with a fresh line of terms. The
	// parser never produces it directly; the console builds it from lines
	// that are not commands.
	KindSearch Kind = iota
	KindNext
	KindPrev
	KindFirst
	KindEngines
	KindCategories
	KindTimeRange
	KindSite
	KindSafeSearch
	KindToggleExpand
	KindToggleDebug
	KindToggleColor
	KindInspect
	KindSettings
	KindHistory
	KindHelp
	KindOpen
	KindOpenRandom
	KindCopy
	KindQuit
)

func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindNext:
		return "next"
	case KindPrev:
		return "prev"
	case KindFirst:
		return "first"
	case KindEngines:
		return "engines"
	case KindCategories:
		return "categories"
	case KindTimeRange:
		return "time-range"
	case KindSite:
		return "site"
	case KindSafeSearch:
		return "safe-search"
	case KindToggleExpand:
		return "toggle-expand"
	case KindToggleDebug:
		return "toggle-debug"
	case KindToggleColor:
		return "toggle-color"
	case KindInspect:
		return "inspect"
	case KindSettings:
		return "settings"
	case KindHistory:
		return "history"
	case KindHelp:
		return "help"
	case KindOpen:
		return "open"
	case KindOpenRandom:
		return "open-random"
	case KindCopy:
		return "copy"
	default:
		return "quit"
	}
}

// Effect is what applying a command does to the session, fixed per Kind
// rather than inferred from which field changed.
type Effect int

const (
	// EffectMutateRequery mutates the query and triggers an automatic
	// re-search: new terms, paging, filter and set changes.
	EffectMutateRequery Effect = iota
	// EffectMutate changes session state without a re-search: the display
	// toggles.
	EffectMutate
	// EffectDisplay reads state and renders it.
	EffectDisplay
	// EffectExternal hands a URL or text to the operating system.
	EffectExternal
	// EffectExit closes the session.
	EffectExit
)

// Effect returns the fixed effect of a command kind.
func (k Kind) Effect() Effect {
	switch k {
	case KindSearch, KindNext, KindPrev, KindFirst,
		KindEngines, KindCategories,
		KindTimeRange, KindSite, KindSafeSearch:
		return EffectMutateRequery
	case KindToggleExpand, KindToggleDebug, KindToggleColor:
		return EffectMutate
	case KindInspect, KindSettings, KindHistory, KindHelp:
		return EffectDisplay
	case KindOpen, KindOpenRandom, KindCopy:
		return EffectExternal
	default:
		return EffectExit
	}
}

// Command is one parsed interactive instruction.
type Command struct {
	Kind  Kind
	Arg   string   // single-argument verbs and search terms
	Args  []string // engine/category edit specs
	Index int      // 1-based result index for inspect/open/copy
}

// SearchCommand wraps a line of query terms for dispatch.
func SearchCommand(terms string) Command {
	return Command{Kind: KindSearch, Arg: strings.TrimSpace(terms)}
}

// Parse turns one line of interactive input into a Command.
//
// Filter arguments are validated here, so a recognized verb with a bad
// argument fails before anything is applied: "t weekk" is a syntax error and
// never reaches the session or the network. An unrecognized first token
// yields a CommandSyntaxError with Unknown set; the console decides what to
// make of those lines.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, &CommandSyntaxError{Reason: "empty command"}
	}
	verb, args := fields[0], fields[1:]

	if isDigits(verb) {
		n, err := strconv.Atoi(verb)
		if err != nil {
			return Command{}, &CommandSyntaxError{Token: verb, Reason: "not a result index"}
		}
		if len(args) > 0 {
			return Command{}, &CommandSyntaxError{Token: verb, Unknown: true}
		}
		return Command{Kind: KindOpen, Index: n}, nil
	}

	switch verb {
	case "n":
		return noArgs(KindNext, verb, args)
	case "p":
		return noArgs(KindPrev, verb, args)
	case "f":
		return noArgs(KindFirst, verb, args)
	case "e":
		return Command{Kind: KindEngines, Args: args}, nil
	case "c":
		return Command{Kind: KindCategories, Args: args}, nil
	case "t":
		cmd, err := oneArg(KindTimeRange, verb, args)
		if err != nil {
			return Command{}, err
		}
		if _, err := search.ParseTimeRange(cmd.Arg); err != nil {
			return Command{}, &CommandSyntaxError{Token: cmd.Arg, Reason: "must be day, week, month, year or none"}
		}
		return cmd, nil
	case "w":
		return oneArg(KindSite, verb, args)
	case "ss":
		cmd, err := oneArg(KindSafeSearch, verb, args)
		if err != nil {
			return Command{}, err
		}
		if _, err := search.ParseSafeSearch(cmd.Arg); err != nil {
			return Command{}, &CommandSyntaxError{Token: cmd.Arg, Reason: "must be none, moderate or strict"}
		}
		return cmd, nil
	case "x":
		return noArgs(KindToggleExpand, verb, args)
	case "d":
		return noArgs(KindToggleDebug, verb, args)
	case "k":
		return noArgs(KindToggleColor, verb, args)
	case "j":
		cmd, err := oneArg(KindInspect, verb, args)
		if err != nil {
			return Command{}, err
		}
		n, err := strconv.Atoi(cmd.Arg)
		if err != nil || n < 1 {
			return Command{}, &CommandSyntaxError{Token: cmd.Arg, Reason: "result index must be a positive number"}
		}
		cmd.Index = n
		return cmd, nil
	case "s":
		return noArgs(KindSettings, verb, args)
	case "o":
		return indexedAction(KindOpen, verb, args)
	case "O":
		return noArgs(KindOpenRandom, verb, args)
	case "y":
		return indexedAction(KindCopy, verb, args)
	case "?":
		return noArgs(KindHelp, verb, args)
	}

	switch strings.ToLower(verb) {
	case "q", "quit", "exit":
		return noArgs(KindQuit, verb, args)
	case "help":
		return noArgs(KindHelp, verb, args)
	case "hist":
		return noArgs(KindHistory, verb, args)
	}

	return Command{}, &CommandSyntaxError{Token: verb, Unknown: true}
}

func noArgs(kind Kind, verb string, args []string) (Command, error) {
	if len(args) != 0 {
		return Command{}, &CommandSyntaxError{Token: verb, Reason: "takes no argument"}
	}
	return Command{Kind: kind}, nil
}

func oneArg(kind Kind, verb string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandSyntaxError{Token: verb, Reason: "takes exactly one argument"}
	}
	return Command{Kind: kind, Arg: args[0]}, nil
}

// indexedAction parses verbs taking an optional 1-based result index,
// defaulting to the first result.
func indexedAction(kind Kind, verb string, args []string) (Command, error) {
	switch len(args) {
	case 0:
		return Command{Kind: kind, Index: 1}, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Command{}, &CommandSyntaxError{Token: args[0], Reason: "result index must be a positive number"}
		}
		return Command{Kind: kind, Index: n}, nil
	}
	return Command{}, &CommandSyntaxError{Token: verb, Reason: "takes at most one argument"}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
