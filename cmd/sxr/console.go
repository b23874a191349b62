package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/sxr/internal/action"
	"github.com/hyperifyio/sxr/internal/render"
	"github.com/hyperifyio/sxr/internal/session"
)

// console is the interactive loop: read one line, dispatch it, render the
// outcome. Dispatch errors are shown and the loop carries on; only quit,
// end of input or a read error end it.
type console struct {
	sess     *session.Session
	interp   *session.Interpreter
	out      *render.Renderer
	opener   *action.Opener
	in       io.Reader
	prompt   io.Writer
	instance string
	method   string
}

func (c *console) loop(ctx context.Context) error {
	sc := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.prompt, "sxr (? for help) ")
		if !sc.Scan() {
			fmt.Fprintln(c.prompt)
			return sc.Err()
		}
		line := sc.Text()
		cmd, ok := c.read(line)
		if !ok {
			continue
		}
		out, err := c.interp.Apply(ctx, cmd)
		if err != nil {
			c.out.ShowError(err, c.options())
			continue
		}
		if c.dispatch(out) {
			return nil
		}
	}
}

// read records the line and parses it. A line that is no known command
// becomes a fresh search.
func (c *console) read(line string) (session.Command, bool) {
	if strings.TrimSpace(line) == "" {
		return session.Command{}, false
	}
	c.sess.Remember(line)
	cmd, err := session.Parse(line)
	if err == nil {
		return cmd, true
	}
	var se *session.CommandSyntaxError
	if errors.As(err, &se) && se.Unknown {
		return session.SearchCommand(line), true
	}
	c.out.ShowError(err, c.options())
	return session.Command{}, false
}

func (c *console) dispatch(out session.Outcome) (quit bool) {
	o := c.options()
	switch {
	case out.Quit:
		return true
	case out.Page != nil:
		c.out.Show(out.Page, c.sess.Query(), o)
	case out.Raw != nil:
		c.out.ShowRaw(out.Raw)
	case out.Settings:
		c.out.ShowSettings(c.settings(), o)
	case out.Help:
		c.out.ShowHelp(o)
	case len(out.History) > 0:
		c.out.ShowHistory(out.History, o)
	case out.OpenURL != "":
		if err := c.opener.Open(out.OpenURL); err != nil {
			c.out.ShowError(err, o)
		}
	case out.CopyText != "":
		if err := action.Copy(out.CopyText); err != nil {
			c.out.ShowError(err, o)
		} else {
			c.out.ShowNotice("copied "+out.CopyText, o)
		}
	case out.Notice != "":
		c.out.ShowNotice(out.Notice, o)
		c.syncDebug()
	}
	return false
}

func (c *console) options() render.Options {
	f := c.sess.Flags()
	return render.Options{Expand: f.Expand, Color: f.Color}
}

// syncDebug keeps the global log level in step with the session's debug
// toggle.
func (c *console) syncDebug() {
	if c.sess.Flags().Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func (c *console) settings() render.Settings {
	f := c.sess.Flags()
	return render.Settings{
		Instance: c.instance,
		Method:   c.method,
		Handler:  c.opener.Handler,
		Query:    c.sess.Query(),
		Expand:   f.Expand,
		Debug:    f.Debug,
		Color:    f.Color,
	}
}
