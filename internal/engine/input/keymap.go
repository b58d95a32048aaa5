package input

import (
	"fmt"
	"strings"

	"github.com/veandco/go-sdl2/sdl"
)

// Action is a preview command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionHeightUp
	ActionHeightDown
	ActionWiden
	ActionNarrow
	ActionDeepen
	ActionShallow
	ActionChunksUp
	ActionChunksDown
	ActionNextTile
	ActionReload
	ActionBake
	ActionResetCamera
	ActionScreenshot
)

var actionNames = map[Action]string{
	ActionNone:        "none",
	ActionQuit:        "quit",
	ActionHeightUp:    "height_up",
	ActionHeightDown:  "height_down",
	ActionWiden:       "widen",
	ActionNarrow:      "narrow",
	ActionDeepen:      "deepen",
	ActionShallow:     "shallow",
	ActionChunksUp:    "chunks_up",
	ActionChunksDown:  "chunks_down",
	ActionNextTile:    "next_tile",
	ActionReload:      "reload",
	ActionBake:        "bake",
	ActionResetCamera: "reset_camera",
	ActionScreenshot:  "screenshot",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction returns the action with the given name.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", name)
}

// Keymap binds scancodes to actions.
type Keymap map[sdl.Scancode]Action

// DefaultKeymap returns the stock preview bindings.
func DefaultKeymap() Keymap {
	return Keymap{
		sdl.SCANCODE_ESCAPE:       ActionQuit,
		sdl.SCANCODE_UP:           ActionHeightUp,
		sdl.SCANCODE_DOWN:         ActionHeightDown,
		sdl.SCANCODE_RIGHT:        ActionWiden,
		sdl.SCANCODE_LEFT:         ActionNarrow,
		sdl.SCANCODE_PAGEUP:       ActionDeepen,
		sdl.SCANCODE_PAGEDOWN:     ActionShallow,
		sdl.SCANCODE_RIGHTBRACKET: ActionChunksUp,
		sdl.SCANCODE_LEFTBRACKET:  ActionChunksDown,
		sdl.SCANCODE_TAB:          ActionNextTile,
		sdl.SCANCODE_R:            ActionReload,
		sdl.SCANCODE_B:            ActionBake,
		sdl.SCANCODE_HOME:         ActionResetCamera,
		sdl.SCANCODE_F12:          ActionScreenshot,
	}
}

// Bind maps the key with the given SDL name (e.g. "Space", "F5") to action,
// replacing any previous binding of that key.
func (k Keymap) Bind(key string, action Action) error {
	code := sdl.GetScancodeFromName(key)
	if code == sdl.SCANCODE_UNKNOWN {
		return fmt.Errorf("unknown key %q", key)
	}
	k[code] = action
	return nil
}

// Resolve returns the actions of every key-down event in events.
func (k Keymap) Resolve(events []Event) []Action {
	var actions []Action
	for _, e := range events {
		if e.Type != EventKeyDown {
			continue
		}
		if a, ok := k[e.Key]; ok && a != ActionNone {
			actions = append(actions, a)
		}
	}
	return actions
}
