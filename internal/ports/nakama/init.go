package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"cloister/internal/app"
	"cloister/internal/bot"
	"cloister/internal/config"
	"cloister/internal/ports"
	"cloister/internal/snapshot/sqlite"
	"cloister/internal/telemetry"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// module is the state shared by every match and RPC of this runtime.
type module struct {
	settings config.Settings
	session  string
	outbox   *outbox
	listener *app.Listener
	store    ports.SnapshotStore
}

func newModule(logger runtime.Logger, settings config.Settings, store ports.SnapshotStore) *module {
	m := &module{
		settings: settings,
		session:  uuid.NewString(),
		outbox:   newOutbox(),
		store:    store,
	}
	m.listener = app.NewListener(app.ListenerConfig{
		Logger:     logger,
		Connection: &connection{session: m.session, out: m.outbox},
		Presenter:  ports.HeadlessPresenter{},
		Reporter:   telemetry.NewReporter(nil),
		Observer:   &logObserver{logger: logger},
		Settings:   settings,
	})
	return m
}

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	settings, err := config.ParseSettings(env)
	if err != nil {
		return err
	}
	if err := config.LoadPresets(settings.PresetsPath); err != nil {
		logger.Warn("InitModule: Could not load presets: %v", err)
	}
	if err := bot.LoadIdentities(settings.IdentitiesPath); err != nil {
		logger.Warn("InitModule: Could not load bot identities: %v", err)
	}
	if _, err := telemetry.Setup(ctx, settings); err != nil {
		logger.Warn("InitModule: Tracing disabled: %v", err)
	}
	store, err := sqlite.Open(ctx, settings.SnapshotDB)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}

	m := newModule(logger, settings, store)
	if err := RegisterRPCs(initializer, m); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchName, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &matchHandler{mod: m}, nil
	}); err != nil {
		return err
	}

	logger.Info("Cloister Go module loaded (session %s).", m.session)
	return nil
}
