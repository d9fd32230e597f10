package nakama

const (
	// MatchName is the authoritative match handler name registered with Nakama.
	MatchName = "cloister_match"

	// RPC ids.
	RpcCreateGame = "create_game"
	RpcFindGame   = "find_game"
	RpcSaveGame   = "save_game"
	RpcListSaves  = "list_saves"

	// MatchLabelKey_OpenSlots is the label key holding the number of free seats.
	MatchLabelKey_OpenSlots = "open"

	// MetadataVersion is the join metadata key carrying the client protocol version.
	MetadataVersion = "version"

	tickRate = 5
)
