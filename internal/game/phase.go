package game

import (
	"fmt"

	"cloister/internal/domain"
)

// PhaseID identifies a rule stage.
type PhaseID int

const (
	PhaseCreateGame PhaseID = iota
	PhaseLoadGame
	PhaseTile
	PhaseAction
	PhaseCastle
	PhaseCleanUp
	PhaseGameOver
)

var phaseNames = map[PhaseID]string{
	PhaseCreateGame: "CreateGame",
	PhaseLoadGame:   "LoadGame",
	PhaseTile:       "Tile",
	PhaseAction:     "Action",
	PhaseCastle:     "Castle",
	PhaseCleanUp:    "CleanUp",
	PhaseGameOver:   "GameOver",
}

func (id PhaseID) String() string {
	if name, ok := phaseNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(id))
}

// successors is the forward transition table. GameOver has no successor.
var successors = map[PhaseID]PhaseID{
	PhaseCreateGame: PhaseTile,
	PhaseLoadGame:   PhaseTile,
	PhaseTile:       PhaseAction,
	PhaseAction:     PhaseCastle,
	PhaseCastle:     PhaseCleanUp,
	PhaseCleanUp:    PhaseTile,
}

// Phase is one rule stage. Handlers mutate the game and report which
// transition to take; unsupported handlers return ErrNotAllowed.
type Phase interface {
	ID() PhaseID
	// IsActive reports whether the phase may run with the enabled expansions.
	IsActive() bool
	ActivePlayer() int
	Enter() Step
	Prompt() (Prompt, bool)

	Pass() (Step, error)
	StartGame() (Step, error)
	PlaceTile(pos domain.Position, rot domain.Rotation) (Step, error)
	DeployMeeple(fp domain.FeaturePointer, kind domain.MeepleKind) (Step, error)
	DeployCastle(pos domain.Position, loc domain.Location) (Step, error)
}

type basePhase struct {
	game *Game
	id   PhaseID
}

func (p basePhase) ID() PhaseID            { return p.id }
func (p basePhase) IsActive() bool         { return true }
func (p basePhase) ActivePlayer() int      { return p.game.TurnPlayer() }
func (p basePhase) Prompt() (Prompt, bool) { return Prompt{}, false }

func (p basePhase) Pass() (Step, error) { return p.notAllowed(MethodPass) }

func (p basePhase) StartGame() (Step, error) { return p.notAllowed("startGame") }

func (p basePhase) PlaceTile(domain.Position, domain.Rotation) (Step, error) {
	return p.notAllowed(MethodPlaceTile)
}

func (p basePhase) DeployMeeple(domain.FeaturePointer, domain.MeepleKind) (Step, error) {
	return p.notAllowed(MethodDeployMeeple)
}

func (p basePhase) DeployCastle(domain.Position, domain.Location) (Step, error) {
	return p.notAllowed(MethodDeployCastle)
}

func (p basePhase) notAllowed(m Method) (Step, error) {
	return Await, fmt.Errorf("%w: %s in %s", ErrNotAllowed, m, p.id)
}

type stepKind int

const (
	stepAwait stepKind = iota
	stepAdvance
	stepGoto
	stepResume
)

// Step is the transition a phase asks for after entry or an action.
type Step struct {
	kind   stepKind
	target PhaseID
}

var (
	// Await keeps the current phase and waits for the next inbound call.
	Await = Step{kind: stepAwait}
	// Advance moves to the successor, skipping inactive phases.
	Advance = Step{kind: stepAdvance}
)

// Goto branches to a specific phase, which is entered afresh.
func Goto(id PhaseID) Step { return Step{kind: stepGoto, target: id} }

// resume makes id current without running its entry hook again.
func resume(id PhaseID) Step { return Step{kind: stepResume, target: id} }

func (s Step) String() string {
	switch s.kind {
	case stepAdvance:
		return "advance"
	case stepGoto:
		return "goto " + s.target.String()
	case stepResume:
		return "resume " + s.target.String()
	}
	return "await"
}

func (g *Game) registerPhases() {
	g.phases = map[PhaseID]Phase{}
	for _, p := range []Phase{
		&createGamePhase{basePhase{g, PhaseCreateGame}},
		&loadGamePhase{basePhase: basePhase{g, PhaseLoadGame}},
		&tilePhase{basePhase{g, PhaseTile}},
		&actionPhase{basePhase{g, PhaseAction}},
		&castlePhase{basePhase{g, PhaseCastle}},
		&cleanUpPhase{basePhase{g, PhaseCleanUp}},
		&gameOverPhase{basePhase{g, PhaseGameOver}},
	} {
		g.phases[p.ID()] = p
	}
}

// PhaseIDs lists the registered phases in transition order.
func (g *Game) PhaseIDs() []PhaseID {
	ids := make([]PhaseID, 0, len(g.phases))
	for id := PhaseCreateGame; id <= PhaseGameOver; id++ {
		if _, ok := g.phases[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Phase returns the current phase instance.
func (g *Game) Phase() Phase { return g.phases[g.current] }

func (g *Game) PhaseID() PhaseID { return g.current }

// IsCurrent reports whether id is the one current phase.
func (g *Game) IsCurrent(id PhaseID) bool { return g.current == id }

// ActivePlayer returns the player entitled to act in the current phase.
func (g *Game) ActivePlayer() int { return g.phases[g.current].ActivePlayer() }

// Waiting reports whether the current phase has been entered and waits for input.
func (g *Game) Waiting() bool { return g.entered }

func (g *Game) enterPhase(id PhaseID) {
	g.current = id
	g.entered = false
}

// successor returns the next active phase after from.
func (g *Game) successor(from PhaseID) (PhaseID, bool) {
	id := from
	for range successors {
		next, ok := successors[id]
		if !ok {
			return from, false
		}
		if g.phases[next].IsActive() {
			return next, true
		}
		id = next
	}
	return from, false
}

func (g *Game) apply(from PhaseID, step Step) {
	switch step.kind {
	case stepAdvance:
		if next, ok := g.successor(from); ok {
			g.enterPhase(next)
		}
	case stepGoto:
		g.enterPhase(step.target)
	case stepResume:
		g.current = step.target
		g.entered = true
	}
}

// PhaseLoop enters phases until one waits for input. Calling it again while
// the current phase is already entered has no effect.
func (g *Game) PhaseLoop() {
	for !g.entered {
		g.entered = true
		id := g.current
		g.apply(id, g.phases[id].Enter())
	}
}

// Invoke routes a call to the current phase and applies the resulting
// transition. A failed call leaves the game untouched.
func (g *Game) Invoke(call Call) error {
	p := g.phases[g.current]
	var (
		step Step
		err  error
	)
	switch c := call.(type) {
	case PassCall:
		step, err = p.Pass()
	case PlaceTileCall:
		step, err = p.PlaceTile(c.Position, c.Rotation)
	case DeployMeepleCall:
		step, err = p.DeployMeeple(c.Pointer, c.Meeple)
	case DeployCastleCall:
		step, err = p.DeployCastle(c.Position, c.Location)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCall, call)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", p.ID(), call.Method(), err)
	}
	g.serial++
	g.apply(p.ID(), step)
	return nil
}

// StartGame asks the current phase to start or resume play.
func (g *Game) StartGame() error {
	p := g.phases[g.current]
	step, err := p.StartGame()
	if err != nil {
		return fmt.Errorf("%s startGame: %w", p.ID(), err)
	}
	g.serial++
	g.apply(p.ID(), step)
	return nil
}
