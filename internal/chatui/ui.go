package chatui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"poolchat/pkg/types"
)

// Commands understood by the REPL.
const (
	CommandReset = "/reset"
	CommandQuit  = "/quit"
)

// Backend is the part of the host driver the terminal needs.
type Backend interface {
	Submit(ctx context.Context, text string) (<-chan types.Update, error)
	Reset(ctx context.Context) (types.Update, error)
}

type Config struct {
	In  io.Reader
	Out io.Writer
	// Width overrides the detected terminal width.
	Width  int
	Logger zerolog.Logger
}

// UI is a line-oriented chat presenter. While a reply streams, a terminal
// shows it on a single live line; the finished messages are drawn as
// bubbles.
type UI struct {
	backend Backend
	in      *bufio.Scanner
	out     io.Writer
	live    bool
	width   int
	st      styles
	log     zerolog.Logger
}

func New(b Backend, cfg Config) *UI {
	width, tty := terminalWidth(cfg.Out)
	if cfg.Width > 0 {
		width = cfg.Width
	}
	if width <= 0 {
		width = defaultWidth
	}
	return &UI{
		backend: b,
		in:      bufio.NewScanner(cfg.In),
		out:     cfg.Out,
		live:    tty,
		width:   width,
		st:      newStyles(lipgloss.NewRenderer(cfg.Out), width),
		log:     cfg.Logger,
	}
}

// Run reads lines until EOF, CommandQuit or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	for {
		fmt.Fprint(u.out, u.st.prompt.Render("> "))
		if !u.in.Scan() {
			fmt.Fprintln(u.out)
			return u.in.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimRight(u.in.Text(), "\r")
		switch strings.TrimSpace(line) {
		case CommandQuit:
			return nil
		case CommandReset:
			if _, err := u.backend.Reset(ctx); err != nil {
				u.printError(err)
				continue
			}
			fmt.Fprintln(u.out, u.st.status.Render("conversation cleared"))
			continue
		}
		if err := u.turn(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			u.printError(err)
		}
	}
}

// turn submits one line and renders its updates.
func (u *UI) turn(ctx context.Context, line string) error {
	updates, err := u.backend.Submit(ctx, line)
	if err != nil {
		return err
	}
	var last types.Update
	for upd := range updates {
		last = upd
		if u.live && !upd.IsFinished {
			u.drawLive(upd)
		}
	}
	if u.live {
		fmt.Fprint(u.out, "\r\x1b[2K")
	}
	if len(last.Messages) == 0 {
		return nil
	}
	// The user's own line is already on screen; draw what came back.
	fmt.Fprintln(u.out, u.st.renderMessage(last.Messages[len(last.Messages)-1]))
	return nil
}

func (u *UI) drawLive(upd types.Update) {
	if len(upd.Messages) == 0 {
		return
	}
	text := strings.ReplaceAll(upd.Messages[len(upd.Messages)-1].Content, "\n", " ")
	if r, limit := []rune(text), u.width-1; limit > 1 && len(r) > limit {
		text = "…" + string(r[len(r)-limit+1:])
	}
	fmt.Fprint(u.out, "\r\x1b[2K"+u.st.status.Render(text))
}

func (u *UI) printError(err error) {
	u.log.Debug().Err(err).Msg("chat turn failed")
	fmt.Fprintln(u.out, u.st.err.Render("error: "+err.Error()))
}
