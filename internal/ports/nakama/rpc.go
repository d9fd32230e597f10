package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloister/internal/app"
	"cloister/internal/ports"
	"cloister/internal/snapshot"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used for RPC errors.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeInternal        = 13
)

const defaultSaveListLimit = 20

// CreateGameRequest is the create_game payload. SaveID loads a saved game.
type CreateGameRequest struct {
	Name   string `json:"name,omitempty"`
	Preset string `json:"preset,omitempty"`
	SaveID string `json:"save_id,omitempty"`
}

// CreateGameResponse is returned by create_game and find_game.
type CreateGameResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type SaveGameRequest struct {
	GameID string `json:"game_id"`
	Name   string `json:"name,omitempty"`
}

type SaveGameResponse struct {
	SaveID string `json:"save_id"`
}

type ListSavesRequest struct {
	Limit int `json:"limit,omitempty"`
}

// SaveSummary describes a saved game without its snapshot.
type SaveSummary struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ListSavesResponse struct {
	Saves []SaveSummary `json:"saves"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, m *module) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcCreateGame: m.rpcCreateGame,
		RpcFindGame:   m.rpcFindGame,
		RpcSaveGame:   m.rpcSaveGame,
		RpcListSaves:  m.rpcListSaves,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("register rpc %s: %w", id, err)
		}
	}
	return nil
}

func decodePayload(payload string, v any) error {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return runtime.NewError("invalid payload: "+err.Error(), codeInvalidArgument)
	}
	return nil
}

func encodeResponse(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("failed to encode response", codeInternal)
	}
	return string(b), nil
}

func (m *module) rpcCreateGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req CreateGameRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	params := map[string]interface{}{
		"name":    req.Name,
		"preset":  req.Preset,
		"save_id": req.SaveID,
	}
	matchID, err := nk.MatchCreate(ctx, MatchName, params)
	if err != nil {
		logger.Error("RpcCreateGame: Failed to create match: %v", err)
		return "", err
	}
	logger.Info("RpcCreateGame: Created game %s", matchID)
	return encodeResponse(CreateGameResponse{MatchID: matchID, IsNew: true})
}

// rpcFindGame joins any open game that still has a free seat, creating one
// when none exists.
func (m *module) rpcFindGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	query := fmt.Sprintf("+label.game:cloister +label.state:OPEN +label.%s:>=1", MatchLabelKey_OpenSlots)
	limit := 10
	authoritative := true
	minSize := 0
	maxSize := 16

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("RpcFindGame: Failed to list matches: %v", err)
		return "", err
	}
	if len(matches) > 0 {
		return encodeResponse(CreateGameResponse{MatchID: matches[0].MatchId})
	}
	return m.rpcCreateGame(ctx, logger, db, nk, "")
}

func (m *module) rpcSaveGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req SaveGameRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	c, err := m.listener.Registry().Lookup(req.GameID)
	if err != nil {
		if errors.Is(err, app.ErrUnknownGame) {
			return "", runtime.NewError(err.Error(), codeNotFound)
		}
		return "", runtime.NewError(err.Error(), codeInternal)
	}
	data, err := snapshot.Encode(c.Snapshot())
	if err != nil {
		logger.Error("RpcSaveGame: Failed to encode game %s: %v", req.GameID, err)
		return "", runtime.NewError("failed to encode snapshot", codeInternal)
	}
	save := ports.SavedGame{
		ID:        uuid.NewString(),
		GameID:    req.GameID,
		Name:      req.Name,
		Snapshot:  data,
		CreatedAt: time.Now().UTC(),
	}
	if save.Name == "" {
		save.Name = req.GameID
	}
	if err := m.store.Save(ctx, save); err != nil {
		logger.Error("RpcSaveGame: Failed to store game %s: %v", req.GameID, err)
		return "", runtime.NewError("failed to store snapshot", codeInternal)
	}
	logger.Info("RpcSaveGame: Saved game %s as %s (%d bytes)", req.GameID, save.ID, len(data))
	return encodeResponse(SaveGameResponse{SaveID: save.ID})
}

func (m *module) rpcListSaves(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req ListSavesRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if req.Limit <= 0 {
		req.Limit = defaultSaveListLimit
	}
	saves, err := m.store.List(ctx, req.Limit)
	if err != nil {
		if errors.Is(err, ports.ErrSaveNotFound) {
			return encodeResponse(ListSavesResponse{Saves: []SaveSummary{}})
		}
		logger.Error("RpcListSaves: %v", err)
		return "", runtime.NewError("failed to list saves", codeInternal)
	}
	resp := ListSavesResponse{Saves: make([]SaveSummary, 0, len(saves))}
	for _, s := range saves {
		resp.Saves = append(resp.Saves, SaveSummary{ID: s.ID, GameID: s.GameID, Name: s.Name, CreatedAt: s.CreatedAt})
	}
	return encodeResponse(resp)
}
