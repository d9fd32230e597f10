package game

import "cloister/internal/domain"

// Method is the wire tag of a remotely invocable phase operation.
type Method string

const (
	MethodPass         Method = "pass"
	MethodPlaceTile    Method = "placeTile"
	MethodDeployMeeple Method = "deployMeeple"
	MethodDeployCastle Method = "deployCastle"
)

// Methods lists the invocable set.
var Methods = []Method{MethodPass, MethodPlaceTile, MethodDeployMeeple, MethodDeployCastle}

// Call is one remotely invocable operation with typed arguments. The set of
// implementations is closed; Game.Invoke switches over it.
type Call interface {
	Method() Method
	isCall()
}

// PassCall declines the optional action of the active phase.
type PassCall struct{}

// PlaceTileCall places the drawn tile.
type PlaceTileCall struct {
	Position domain.Position
	Rotation domain.Rotation
}

// DeployMeepleCall stands a figure on a feature of the placed tile.
type DeployMeepleCall struct {
	Pointer domain.FeaturePointer
	Meeple  domain.MeepleKind
}

// DeployCastleCall converts the city at the offered location into a castle.
type DeployCastleCall struct {
	Position domain.Position
	Location domain.Location
}

func (PassCall) Method() Method         { return MethodPass }
func (PlaceTileCall) Method() Method    { return MethodPlaceTile }
func (DeployMeepleCall) Method() Method { return MethodDeployMeeple }
func (DeployCastleCall) Method() Method { return MethodDeployCastle }

func (PassCall) isCall()         {}
func (PlaceTileCall) isCall()    {}
func (DeployMeepleCall) isCall() {}
func (DeployCastleCall) isCall() {}
