package bot

import (
	"fmt"
	"strings"
)

// AI class names carried in player slots.
const (
	ClassLegal = "bot.Legal"
	ClassEager = "bot.Eager"
)

// NewBrain creates the strategy for an AI class name.
func NewBrain(class string) (Brain, error) {
	switch class {
	case ClassLegal:
		return &LegalBot{}, nil
	case ClassEager:
		return &EagerBot{}, nil
	default:
		return nil, fmt.Errorf("unknown ai class: %q", class)
	}
}

// IsAIClass reports whether name looks like an AI class rather than a nickname.
func IsAIClass(name string) bool {
	return strings.HasPrefix(name, "bot.")
}
