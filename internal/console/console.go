// Package console is the line-mode front-end: views are printed as plain
// text and actions are read line by line.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/omochice/story-chat/internal/session"
)

// Console renders views to out and turns input lines into actions.
type Console struct {
	out io.Writer

	mu       sync.Mutex
	printed  int
	pending  string
	status   session.ConnectionStatus
	rendered bool
	options  []string
	shown    []string
	mode     session.InputMode
}

// New creates a console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// Render implements session.Renderer. Only what changed since the last
// view is printed.
func (c *Console) Render(v *session.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.rendered || v.Status != c.status {
		fmt.Fprintf(c.out, "*** %s ***\n", v.Status.Banner())
		c.status = v.Status
		c.rendered = true
	}

	for _, m := range v.Messages[min(c.printed, len(v.Messages)):] {
		if m.Role == session.RoleUser {
			continue
		}
		fmt.Fprintf(c.out, "[%s]: %s\n", m.Role, m.Content)
	}
	c.printed = len(v.Messages)

	pending := ""
	if v.Pending != nil {
		pending = v.Pending.Text
		if pending != c.pending {
			fmt.Fprintf(c.out, "[%s] ... %s\n", v.Pending.Name, pending)
		}
	}
	c.pending = pending

	for _, e := range v.Errors {
		fmt.Fprintf(c.out, "!!! %s\n", e)
	}

	if v.Input == session.InputOptions {
		if !slices.Equal(v.Options, c.shown) {
			for i, o := range v.Options {
				fmt.Fprintf(c.out, "  %d) %s\n", i+1, o)
			}
			c.shown = append([]string(nil), v.Options...)
		}
	} else {
		c.shown = nil
	}
	c.options = append([]string(nil), v.Options...)
	c.mode = v.Input
}

// Action maps an input line to an action. While options are offered, a
// number or the option text chooses; anything else is free text.
func (c *Console) Action(line string) session.Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == session.InputOptions {
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(c.options) {
			return session.ChooseOption(c.options[n-1])
		}
		for _, o := range c.options {
			if strings.EqualFold(o, line) {
				return session.ChooseOption(o)
			}
		}
	}
	return session.SubmitText(line)
}

// ReadActions scans in until EOF, "quit" or "exit", or ctx is done, and
// sends one action per non-empty line. The channel is closed on return.
func (c *Console) ReadActions(ctx context.Context, in io.Reader) <-chan session.Action {
	actions := make(chan session.Action)
	go func() {
		defer close(actions)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "quit" || text == "exit" {
				return
			}
			select {
			case actions <- c.Action(text):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Error().Err(err).Str("component", "console").Msg("Error reading input")
		}
	}()
	return actions
}
