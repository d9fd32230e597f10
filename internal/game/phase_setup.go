package game

// createGamePhase waits for the host to start a fresh game.
type createGamePhase struct {
	basePhase
}

func (p *createGamePhase) Enter() Step { return Await }

func (p *createGamePhase) StartGame() (Step, error) {
	if err := p.game.start(); err != nil {
		return Await, err
	}
	return Advance, nil
}

// loadGamePhase holds a restored game until its seats are reassigned and
// the host resumes it at the captured phase.
type loadGamePhase struct {
	basePhase
	resumeTo      PhaseID
	resumeEntered bool
}

func (p *loadGamePhase) Enter() Step { return Await }

func (p *loadGamePhase) StartGame() (Step, error) {
	g := p.game
	if !g.started {
		if err := g.start(); err != nil {
			return Await, err
		}
		return Advance, nil
	}
	g.Post(Event{Kind: EventGameResumed, Payload: GameResumedPayload{Phase: p.resumeTo}})
	if !p.resumeEntered {
		return Goto(p.resumeTo), nil
	}
	if pr, ok := g.phases[p.resumeTo].Prompt(); ok {
		g.postPrompt(pr)
	}
	return resume(p.resumeTo), nil
}

// ActivePlayer defers to the phase being resumed.
func (p *loadGamePhase) ActivePlayer() int {
	if !p.game.started {
		return -1
	}
	return p.game.phases[p.resumeTo].ActivePlayer()
}
