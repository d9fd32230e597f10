package bot

import (
	"errors"
	"fmt"
	"testing"

	"cloister/internal/domain"
	"cloister/internal/game"
)

func newGame(t *testing.T, expansions ...domain.Expansion) *game.Game {
	t.Helper()
	g := game.New("bot-game", "bots")
	for _, e := range expansions {
		g.SetExpansion(e, true)
	}
	for i := 0; i < 2; i++ {
		if err := g.UpdateSlot(domain.PlayerSlot{
			Number: i, Nickname: fmt.Sprintf("bot-%d", i), SessionID: "server", State: domain.SlotOwn, AIClass: ClassEager,
		}); err != nil {
			t.Fatal(err)
		}
	}
	g.PhaseLoop()
	if err := g.StartGame(); err != nil {
		t.Fatal(err)
	}
	g.PhaseLoop()
	return g
}

func TestNewBrain(t *testing.T) {
	for _, class := range []string{ClassLegal, ClassEager} {
		if _, err := NewBrain(class); err != nil {
			t.Errorf("NewBrain(%q): %v", class, err)
		}
		if !IsAIClass(class) {
			t.Errorf("IsAIClass(%q) = false", class)
		}
	}
	if _, err := NewBrain("bot.Genius"); err == nil {
		t.Error("expected unknown class error")
	}
	if IsAIClass("alice") {
		t.Error("nickname treated as AI class")
	}
}

func TestBotsFinishGame(t *testing.T) {
	tests := []struct {
		name  string
		class string
	}{
		{"Legal", ClassLegal},
		{"Eager", ClassEager},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGame(t, domain.ExpansionCastles, domain.ExpansionMayor)
			agents := make([]*Agent, g.PlayerCount())
			for i := range agents {
				a, err := NewAgent(i, tt.class)
				if err != nil {
					t.Fatal(err)
				}
				agents[i] = a
			}
			for steps := 0; !g.IsCurrent(game.PhaseGameOver); steps++ {
				if steps > 500 {
					t.Fatalf("game stuck in %s", g.PhaseID())
				}
				call, err := agents[g.ActivePlayer()].Play(g)
				if err != nil {
					t.Fatalf("play: %v", err)
				}
				if err := g.Invoke(call); err != nil {
					t.Fatalf("%s invoke %s: %v", tt.class, call.Method(), err)
				}
				g.PhaseLoop()
			}
		})
	}
}

func TestAgentWaitsForItsTurn(t *testing.T) {
	g := newGame(t)
	a, _ := NewAgent(1, ClassLegal)
	if _, err := a.Play(g); !errors.Is(err, ErrNoPrompt) {
		t.Fatalf("error = %v, want ErrNoPrompt", err)
	}
}

func TestNickname(t *testing.T) {
	tests := []struct {
		class string
		n     int
		want  string
	}{
		{ClassEager, 0, "Brother Anselm"},
		{ClassEager, 1, "Sister Hild"},
		{ClassLegal, 0, "Abbot Odo"},
		{ClassEager, 2, "bot.Eager #3"},
		{"bot.Unknown", 0, "bot.Unknown #1"},
	}
	for _, tt := range tests {
		if got := Nickname(tt.class, tt.n); got != tt.want {
			t.Errorf("Nickname(%q, %d) = %q, want %q", tt.class, tt.n, got, tt.want)
		}
	}
}
