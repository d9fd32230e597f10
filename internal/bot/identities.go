package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Identity is the public face of an AI seat.
type Identity struct {
	Nickname string `json:"nickname"`
	Class    string `json:"class"`
}

var defaultIdentities = []Identity{
	{Nickname: "Brother Anselm", Class: ClassEager},
	{Nickname: "Sister Hild", Class: ClassEager},
	{Nickname: "Abbot Odo", Class: ClassLegal},
	{Nickname: "Prior Wulfric", Class: ClassLegal},
}

var (
	identities []Identity
	loadOnce   sync.Once
	loadErr    error
)

// LoadIdentities loads the AI nicknames from the given path. An empty path
// keeps the built-in list. Later calls return the first result.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}
		var loaded []Identity
		if err := json.Unmarshal(data, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		for _, id := range loaded {
			if _, err := NewBrain(id.Class); err != nil {
				loadErr = fmt.Errorf("bot identity %q: %w", id.Nickname, err)
				return
			}
		}
		identities = loaded
	})
	return loadErr
}

// Nickname names the n-th AI seat of class. Seats beyond the known
// identities get a numbered name.
func Nickname(class string, n int) string {
	list := identities
	if len(list) == 0 {
		list = defaultIdentities
	}
	seen := 0
	for _, id := range list {
		if id.Class != class {
			continue
		}
		if seen == n {
			return id.Nickname
		}
		seen++
	}
	return fmt.Sprintf("%s #%d", class, n+1)
}
