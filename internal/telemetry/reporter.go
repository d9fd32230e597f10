package telemetry

import (
	"context"
	"sync"

	"cloister/internal/protocol"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "cloister/internal/telemetry"

// Reporter records one span per applied message of the active game.
// Messages of other games are ignored.
type Reporter struct {
	tracer trace.Tracer

	mu     sync.Mutex
	active string
}

// NewReporter uses tp, or the global provider when tp is nil.
func NewReporter(tp trace.TracerProvider) *Reporter {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Reporter{tracer: tp.Tracer(instrumentation)}
}

// SetGame makes gameID the reported game.
func (r *Reporter) SetGame(gameID string) {
	r.mu.Lock()
	r.active = gameID
	r.mu.Unlock()
}

// ActiveGame returns the reported game id.
func (r *Reporter) ActiveGame() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Reporter) Record(ctx context.Context, gameID string, kind protocol.Kind) {
	if gameID == "" || gameID != r.ActiveGame() {
		return
	}
	_, span := r.tracer.Start(ctx, "cloister.message."+string(kind),
		trace.WithAttributes(
			attribute.String("game.id", gameID),
			attribute.String("message.kind", string(kind)),
		),
	)
	span.End()
}
