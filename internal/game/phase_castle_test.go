package game

import (
	"errors"
	"testing"

	"cloister/internal/domain"
	"github.com/google/go-cmp/cmp"
)

var (
	startCity = domain.FeaturePointer{Position: domain.Position{}, Location: domain.North}
	capTop    = domain.Position{X: 0, Y: -1}
	capRight  = domain.Position{X: 1, Y: -1}
)

func mustPlace(t *testing.T, b *domain.Board, id string, pos domain.Position, rot domain.Rotation) {
	t.Helper()
	def, ok := domain.LookupTile(id)
	if !ok {
		t.Fatalf("unknown tile %s", id)
	}
	if _, err := b.Place(def, pos, rot); err != nil {
		t.Fatalf("place %s at %s: %v", id, pos, err)
	}
}

// enterCastle swaps in board, marks last as the tile just placed and runs
// the loop from the castle phase.
func enterCastle(g *Game, b *domain.Board, last domain.Position) {
	g.board = b
	g.lastPlaced = &last
	g.DrainEvents()
	g.enterPhase(PhaseCastle)
	g.PhaseLoop()
}

// singleBaseBoard holds one two segment city: the starting tile city and a
// cap placed above it.
func singleBaseBoard(t *testing.T) *domain.Board {
	b := domain.NewBoard()
	mustPlace(t, b, domain.StartingTileID, domain.Position{}, 0)
	mustPlace(t, b, "cap", capTop, 2)
	return b
}

// doubleBaseBoard completes two separate two segment cities with one
// two-caps tile placed last at capTop.
func doubleBaseBoard(t *testing.T) *domain.Board {
	b := domain.NewBoard()
	mustPlace(t, b, domain.StartingTileID, domain.Position{}, 0)
	mustPlace(t, b, "road", domain.Position{X: 1, Y: 0}, 1)
	mustPlace(t, b, "cap", capRight, 3)
	mustPlace(t, b, "two-caps", capTop, 1)
	return b
}

func castleEvents(evs []Event) (prompts []Prompt, deployed []CastleDeployedPayload) {
	for _, ev := range evs {
		switch p := ev.Payload.(type) {
		case SelectActionPayload:
			if p.Prompt.Kind == PromptCastle {
				prompts = append(prompts, p.Prompt)
			}
		case CastleDeployedPayload:
			deployed = append(deployed, p)
		}
	}
	return prompts, deployed
}

func TestCastleQualifyingPlayerConverts(t *testing.T) {
	g := newStartedGame(t, 2, domain.ExpansionCastles)
	b := singleBaseBoard(t)
	if err := b.AddMeeple(startCity, domain.Meeple{Player: 0, Kind: domain.SmallFollower}); err != nil {
		t.Fatal(err)
	}
	enterCastle(g, b, capTop)

	if !g.IsCurrent(PhaseCastle) {
		t.Fatalf("phase = %s, want Castle", g.PhaseID())
	}
	if g.ActivePlayer() != 0 {
		t.Fatalf("active player = %d, want 0", g.ActivePlayer())
	}
	prompts, _ := castleEvents(g.DrainEvents())
	want := []domain.FeaturePointer{{Position: capTop, Location: domain.South}}
	if len(prompts) != 1 || !cmp.Equal(prompts[0].Pointers, want) {
		t.Fatalf("castle prompts = %+v, want one offering %v", prompts, want)
	}

	if err := g.Invoke(DeployCastleCall{Position: capTop, Location: domain.South}); err != nil {
		t.Fatalf("deploy castle: %v", err)
	}
	g.PhaseLoop()

	c, _ := CapabilityOf[*CastleCapability](g)
	if got := c.PlayerCastles(0); got != CastlesPerPlayer-1 {
		t.Errorf("castles left = %d, want %d", got, CastlesPerPlayer-1)
	}
	for _, fp := range []domain.FeaturePointer{startCity, {Position: capTop, Location: domain.South}} {
		f, _ := g.Board().Feature(fp)
		if f.Kind != domain.KindCastle {
			t.Errorf("%s kind = %s, want castle", fp, f.Kind)
		}
	}
	if g.IsCurrent(PhaseCastle) {
		t.Fatal("castle phase should have moved on")
	}
	if _, ok := c.CastlePlayer(); ok || c.CurrentTileCastleBases() != nil || len(c.Offered()) != 0 {
		t.Error("scratch state not cleared")
	}
	_, deployed := castleEvents(g.DrainEvents())
	if len(deployed) != 1 || deployed[0].Player != 0 || len(deployed[0].Castle.Pointers) != 2 {
		t.Errorf("deployed = %+v", deployed)
	}
}

func TestCastleNoAllowanceIsNoOp(t *testing.T) {
	g := newStartedGame(t, 2, domain.ExpansionCastles)
	c, _ := CapabilityOf[*CastleCapability](g)
	for i := 0; i < CastlesPerPlayer; i++ {
		c.DecreaseCastles(0)
	}
	b := singleBaseBoard(t)
	_ = b.AddMeeple(startCity, domain.Meeple{Player: 0, Kind: domain.SmallFollower})
	enterCastle(g, b, capTop)

	if g.IsCurrent(PhaseCastle) {
		t.Fatal("castle phase must pass through")
	}
	if prompts, _ := castleEvents(g.DrainEvents()); len(prompts) != 0 {
		t.Fatalf("unexpected castle prompts %+v", prompts)
	}
	if c.CurrentTileCastleBases() != nil {
		t.Error("bases recorded for a player without allowance")
	}
}

func TestCastlePassthrough(t *testing.T) {
	tests := []struct {
		name    string
		meeples []domain.Meeple
	}{
		{"Unoccupied", nil},
		{"Only a mayor", []domain.Meeple{{Player: 0, Kind: domain.Mayor}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newStartedGame(t, 2, domain.ExpansionCastles, domain.ExpansionMayor)
			b := singleBaseBoard(t)
			for _, m := range tt.meeples {
				_ = b.AddMeeple(startCity, m)
			}
			enterCastle(g, b, capTop)
			if g.IsCurrent(PhaseCastle) {
				t.Fatal("castle phase must pass through")
			}
			if prompts, _ := castleEvents(g.DrainEvents()); len(prompts) != 0 {
				t.Fatalf("unexpected castle prompts %+v", prompts)
			}
		})
	}
}

func TestCastleTurnOrderTieBreak(t *testing.T) {
	tests := []struct {
		name    string
		players int
		turn    int
		first   int
		second  int
	}{
		{"Turn player first", 2, 0, 0, 1},
		{"Later seat first", 2, 1, 1, 0},
		{"Wraps around", 3, 2, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newStartedGame(t, tt.players, domain.ExpansionCastles)
			g.turn = tt.turn
			b := doubleBaseBoard(t)
			_ = b.AddMeeple(startCity, domain.Meeple{Player: 0, Kind: domain.SmallFollower})
			_ = b.AddMeeple(domain.FeaturePointer{Position: capRight, Location: domain.West}, domain.Meeple{Player: 1, Kind: domain.SmallFollower})
			enterCastle(g, b, capTop)

			if g.ActivePlayer() != tt.first {
				t.Fatalf("first actor = %d, want %d", g.ActivePlayer(), tt.first)
			}
			if err := g.Invoke(PassCall{}); err != nil {
				t.Fatalf("pass: %v", err)
			}
			g.PhaseLoop()
			if !g.IsCurrent(PhaseCastle) || g.ActivePlayer() != tt.second {
				t.Fatalf("second actor = %d in %s, want %d", g.ActivePlayer(), g.PhaseID(), tt.second)
			}
		})
	}
}

func TestCastleSelfLoopKeepsOtherPlayers(t *testing.T) {
	g := newStartedGame(t, 2, domain.ExpansionCastles)
	g.turn = 1
	b := doubleBaseBoard(t)
	_ = b.AddMeeple(startCity, domain.Meeple{Player: 0, Kind: domain.SmallFollower})
	_ = b.AddMeeple(domain.FeaturePointer{Position: capRight, Location: domain.West}, domain.Meeple{Player: 1, Kind: domain.SmallFollower})
	enterCastle(g, b, capTop)

	c, _ := CapabilityOf[*CastleCapability](g)
	pending := c.CurrentTileCastleBases()
	if _, ok := pending[1]; ok {
		t.Fatal("presented player's locations must be consumed")
	}
	if diff := cmp.Diff([]domain.Location{domain.South}, pending[0]); diff != "" {
		t.Fatalf("pending for player 0 (-want +got):\n%s", diff)
	}

	if err := g.Invoke(DeployCastleCall{Position: capTop, Location: domain.East}); err != nil {
		t.Fatalf("deploy castle: %v", err)
	}
	g.PhaseLoop()
	if g.ActivePlayer() != 0 || !g.IsCurrent(PhaseCastle) {
		t.Fatalf("active = %d in %s, want player 0 in Castle", g.ActivePlayer(), g.PhaseID())
	}
	if c.PlayerCastles(1) != CastlesPerPlayer-1 || c.PlayerCastles(0) != CastlesPerPlayer {
		t.Fatalf("allowances = %d/%d", c.PlayerCastles(0), c.PlayerCastles(1))
	}

	if err := g.Invoke(DeployCastleCall{Position: capTop, Location: domain.East}); err == nil {
		t.Fatal("player 0 must not be offered player 1's location")
	}
	if err := g.Invoke(PassCall{}); err != nil {
		t.Fatalf("pass: %v", err)
	}
	g.PhaseLoop()
	if g.IsCurrent(PhaseCastle) {
		t.Fatal("castle phase should be done")
	}
	if _, ok := c.CastlePlayer(); ok {
		t.Error("castle player override not cleared")
	}
}

func TestCastlePhaseInactiveWithoutExpansion(t *testing.T) {
	g := newStartedGame(t, 2)
	if g.phases[PhaseCastle].IsActive() {
		t.Fatal("castle phase active without expansion")
	}
	if next, _ := g.successor(PhaseAction); next != PhaseCleanUp {
		t.Fatalf("successor of Action = %s, want CleanUp", next)
	}
}

func TestCastleDeployNeedsAllowance(t *testing.T) {
	g := newStartedGame(t, 2, domain.ExpansionCastles)
	b := singleBaseBoard(t)
	if err := b.AddMeeple(startCity, domain.Meeple{Player: 0, Kind: domain.SmallFollower}); err != nil {
		t.Fatal(err)
	}
	enterCastle(g, b, capTop)
	if !g.IsCurrent(PhaseCastle) {
		t.Fatalf("phase = %s, want Castle", g.PhaseID())
	}

	c, _ := CapabilityOf[*CastleCapability](g)
	for i := 0; i < CastlesPerPlayer+1; i++ {
		c.DecreaseCastles(0)
	}
	if got := c.PlayerCastles(0); got != 0 {
		t.Fatalf("castles left = %d, want 0", got)
	}

	err := g.Invoke(DeployCastleCall{Position: capTop, Location: domain.South})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("error = %v, want ErrIllegalMove", err)
	}
	if f, _ := g.Board().Feature(startCity); f.Kind != domain.KindCity {
		t.Errorf("city converted to %s without allowance", f.Kind)
	}
	if !g.IsCurrent(PhaseCastle) {
		t.Errorf("phase = %s, want Castle", g.PhaseID())
	}
}
