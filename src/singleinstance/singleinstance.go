// Package singleinstance keeps one resident magnifier per machine and lets
// the control CLI hand commands to it over TCP loopback.
package singleinstance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"screen-magnifier/src/highlight"
)

// Command names understood by the resident.
const (
	CmdZoomIn     = "ZOOM_IN"
	CmdZoomOut    = "ZOOM_OUT"
	CmdFilter     = "FILTER"
	CmdFullscreen = "FULLSCREEN"
	CmdHighlight  = "HIGHLIGHT"
	CmdRefresh    = "REFRESH"
	CmdStatus     = "STATUS"
	CmdQuit       = "QUIT"
	// CmdCopySource copies the magnified source rectangle to the clipboard.
	CmdCopySource = "COPY_SOURCE"
	// CmdTrackCursor makes the zoom follow the mouse pointer.
	CmdTrackCursor = "TRACK_CURSOR"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad command argument")
)

// Server owns the TCP endpoint and answers control requests.
type Server interface {
	// Start listens on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection, or the ctx error.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one client connection.
type Conn interface {
	Request() Request
	RespondSuccess(body string) error
	RespondError(msg string) error
	Close() error
}

// Request is one control command with an optional argument.
type Request struct {
	Command string
	Arg     string
}

func (r Request) String() string {
	if r.Arg == "" {
		return r.Command
	}
	return r.Command + " " + r.Arg
}

// ParseRequest reads "NAME [ARG...]" and validates it. A multi-word
// argument is kept space-joined.
func ParseRequest(line string) (Request, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 || len(fields) > 3 {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	req := Request{Command: strings.ToUpper(fields[0])}
	if len(fields) > 1 {
		req.Arg = strings.ToUpper(strings.Join(fields[1:], " "))
	}
	return req, req.Validate()
}

// HighlightArg is a parsed HIGHLIGHT argument: "MODE" for every context or
// "CONTEXT MODE" for one.
type HighlightArg struct {
	All     bool
	Context highlight.Context
	// Mode is ON, OFF or TOGGLE.
	Mode string
}

func ParseHighlightArg(arg string) (HighlightArg, error) {
	fields := strings.Fields(arg)
	switch len(fields) {
	case 1:
		if !isSwitch(fields[0]) {
			break
		}
		return HighlightArg{All: true, Mode: fields[0]}, nil
	case 2:
		c, err := highlight.ParseContext(fields[0])
		if err != nil || !slices.Contains(highlight.Supported, c) {
			return HighlightArg{}, fmt.Errorf("%w: unknown highlight context %q", ErrBadArgument, fields[0])
		}
		if !isSwitch(fields[1]) {
			break
		}
		return HighlightArg{Context: c, Mode: fields[1]}, nil
	}
	return HighlightArg{}, fmt.Errorf("%w: %s needs [CONTEXT] ON, OFF or TOGGLE", ErrBadArgument, CmdHighlight)
}

func isSwitch(arg string) bool { return arg == "ON" || arg == "OFF" || arg == "TOGGLE" }

func (r Request) Validate() error {
	switch r.Command {
	case CmdZoomIn, CmdZoomOut, CmdRefresh, CmdStatus, CmdQuit, CmdCopySource:
		if r.Arg != "" {
			return fmt.Errorf("%w: %s takes no argument", ErrBadArgument, r.Command)
		}
	case CmdFullscreen, CmdTrackCursor:
		if !isSwitch(r.Arg) {
			return fmt.Errorf("%w: %s needs ON, OFF or TOGGLE", ErrBadArgument, r.Command)
		}
	case CmdHighlight:
		_, err := ParseHighlightArg(r.Arg)
		return err
	case CmdFilter:
		// empty or NEXT cycles, a number selects
		if r.Arg == "" || r.Arg == "NEXT" {
			return nil
		}
		for _, ch := range r.Arg {
			if ch < '0' || ch > '9' {
				return fmt.Errorf("%w: %s needs NEXT or an index", ErrBadArgument, r.Command)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, r.Command)
	}
	return nil
}

// Client delegates commands to a resident server.
type Client interface {
	// Send scans the port range for a resident and runs req there. When no
	// resident answers it returns delegated=false and a nil error.
	Send(ctx context.Context, req Request) (delegated bool, body string, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
