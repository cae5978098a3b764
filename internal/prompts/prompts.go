// Package prompts loads the system prompt and user template for a turn.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	systemFile = "system.txt"
	userFile   = "user.txt"

	// InputPlaceholder is replaced with the user's text in the user template.
	InputPlaceholder = "{input}"

	// FallbackSystem is used when the system prompt is blank.
	FallbackSystem = "You are a helpful NASA Worldview assistant."
)

//go:embed defaults/*.txt
var defaults embed.FS

// Set is a loaded pair of prompts.
type Set struct {
	System string
	User   string
}

// Default returns the built-in prompts.
func Default() Set {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		panic(err) // embedded layout is fixed at build time
	}
	s, err := load(sub)
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads system.txt and user.txt from dir. An empty dir selects the
// built-in prompts. Both files must exist.
func Load(dir string) (Set, error) {
	if dir == "" {
		return Default(), nil
	}
	return load(os.DirFS(dir))
}

func load(fsys fs.FS) (Set, error) {
	system, err := fs.ReadFile(fsys, systemFile)
	if err != nil {
		return Set{}, fmt.Errorf("prompts: read %s: %w", systemFile, err)
	}
	user, err := fs.ReadFile(fsys, userFile)
	if err != nil {
		return Set{}, fmt.Errorf("prompts: read %s: %w", userFile, err)
	}
	return Set{
		System: strings.TrimSpace(string(system)),
		User:   strings.TrimSpace(string(user)),
	}, nil
}

// Render returns the system prompt and the user message for input. A blank
// system prompt falls back to FallbackSystem; a template that renders blank
// falls back to the raw input. The user message may be empty when input is.
func (s Set) Render(input string) (system, user string) {
	system = s.System
	if strings.TrimSpace(system) == "" {
		system = FallbackSystem
	}
	user = strings.TrimSpace(strings.ReplaceAll(s.User, InputPlaceholder, input))
	if user == "" {
		user = strings.TrimSpace(input)
	}
	return system, user
}
