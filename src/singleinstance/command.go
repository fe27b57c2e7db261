package singleinstance

import (
	"fmt"
	"strconv"
	"strings"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/region"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	okResponse   = "OK\n"
	errorPrefix  = "ERROR "
)

// KeyCommand forwards a key press to the resident overlay.
func KeyCommand(k events.Key) string {
	return fmt.Sprintf("KEY %s\n", k)
}

// RegionCommand forwards a selection in screen coordinates.
func RegionCommand(role events.Role, x, y, w, h int) string {
	return fmt.Sprintf("REGION %s %d %d %d %d\n", role, x, y, w, h)
}

// ParseCommand turns a request line into the event the resident should
// queue. Region boxes are given rc, the context for screen coordinates.
func ParseCommand(line string, rc region.Context) (events.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "KEY":
		if len(fields) != 2 {
			return nil, fmt.Errorf("KEY takes one argument, got %d", len(fields)-1)
		}
		return events.KeyEvent{Key: events.Key(fields[1])}, nil
	case "REGION":
		if len(fields) != 6 {
			return nil, fmt.Errorf("REGION takes role x y w h, got %d arguments", len(fields)-1)
		}
		var role events.Role
		switch fields[1] {
		case events.Primary.String():
			role = events.Primary
		case events.Secondary.String():
			role = events.Secondary
		default:
			return nil, fmt.Errorf("unknown role %q", fields[1])
		}
		var n [4]int
		for i := range n {
			v, err := strconv.Atoi(fields[2+i])
			if err != nil {
				return nil, fmt.Errorf("bad coordinate %q: %w", fields[2+i], err)
			}
			n[i] = v
		}
		box := region.New(n[0], n[1], n[2], n[3], rc)
		if box.Empty() {
			return nil, fmt.Errorf("empty region %s", box)
		}
		return events.RegionEvent{Box: box, Role: role}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}
