package app

import (
	"errors"
	"testing"

	"cloister/internal/game"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	c := NewGameController(game.New("g1", "table"), "lobby", 0)
	if _, added := r.AddGame(c); !added {
		t.Fatal("first controller not added")
	}
	if existing, added := r.AddGame(NewGameController(game.New("g1", "other"), "lobby", 0)); added || existing != c {
		t.Fatal("second controller replaced the first")
	}

	got, err := r.Lookup("g1")
	if err != nil || got != c {
		t.Fatalf("lookup = %v, %v", got, err)
	}
	if _, err := r.Lookup("g2"); !errors.Is(err, ErrUnknownGame) {
		t.Fatalf("error = %v, want ErrUnknownGame", err)
	}

	r.RemoveGame("g1")
	if _, err := r.Lookup("g1"); !errors.Is(err, ErrUnknownGame) {
		t.Fatalf("error after remove = %v, want ErrUnknownGame", err)
	}
}
