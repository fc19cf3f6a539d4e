package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/FrenchBattlesMap/viewer/internal/dispatcher"
)

var (
	// ErrQuit is returned by ParseLine for the quit command.
	ErrQuit = errors.New("quit")
	// ErrEmptyLine is returned by ParseLine for blank input.
	ErrEmptyLine = errors.New("empty line")
)

// ParseLine turns one line of interactive input into an event:
//
//	range <start> <end>   commit the year range and fetch
//	drag <start> <end>    move the slider display only
//	category <name>       select a category ("all", "Bataille", ...)
//	enrich <id>           enrich one battle
//	theme                 toggle light/dark
//	density               show or hide the histogram panel
//	quit                  end the session
func ParseLine(line string) (dispatcher.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return dispatcher.Event{}, ErrEmptyLine
	}

	verb, args := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "range":
		return dispatcher.NewEvent(CmdRangeChange, args...), nil
	case "drag":
		return dispatcher.NewEvent(CmdRangeDrag, args...), nil
	case "category":
		return dispatcher.NewEvent(CmdCategorySelect, args...), nil
	case "enrich":
		return dispatcher.NewEvent(CmdBattleEnrich, args...), nil
	case "theme":
		return dispatcher.NewEvent(CmdThemeToggle), nil
	case "density":
		return dispatcher.NewEvent(CmdDensityToggle), nil
	case "quit", "exit":
		return dispatcher.Event{}, ErrQuit
	default:
		return dispatcher.Event{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// Run reads commands from r until EOF or quit and dispatches them. Results
// and errors are echoed to w; a bad line never ends the session.
func Run(r io.Reader, w io.Writer, d *dispatcher.Dispatcher) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		e, err := ParseLine(scanner.Text())
		switch {
		case errors.Is(err, ErrEmptyLine):
			continue
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}

		result, err := d.Dispatch(e)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		if result != nil {
			fmt.Fprintf(w, "%s: %v\n", e.Command, result)
		}
	}
	return scanner.Err()
}
