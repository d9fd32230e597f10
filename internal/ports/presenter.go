package ports

import "context"

// ViewKind distinguishes what the presentation layer mounts.
type ViewKind string

const (
	ViewGame    ViewKind = "game"
	ViewChannel ViewKind = "channel"
)

// View describes a game or channel view to mount.
type View struct {
	Kind    ViewKind
	GameID  string
	Channel string
	Name    string
}

// Presenter is the boundary to the presentation layer.
type Presenter interface {
	// Mount requests a view. The returned channel yields exactly one value
	// once the view exists, or the reason it could not be mounted.
	Mount(ctx context.Context, view View) <-chan error

	// Alert shows a user facing notice.
	Alert(ctx context.Context, title, message string)
}

// HeadlessPresenter mounts nothing and acknowledges immediately.
type HeadlessPresenter struct{}

func (HeadlessPresenter) Mount(context.Context, View) <-chan error {
	ack := make(chan error, 1)
	ack <- nil
	return ack
}

func (HeadlessPresenter) Alert(context.Context, string, string) {}
