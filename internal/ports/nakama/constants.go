package nakama

const (
	// RpcCreateLobby creates a lobby match, or restores a stored one by code.
	RpcCreateLobby = "create_lobby"
	// RpcFindLobby returns the match id of a running lobby by code.
	RpcFindLobby = "find_lobby"
	// RpcListDecks lists the decks a lobby can be created with.
	RpcListDecks = "list_decks"

	// MatchNameFillBlank is the authoritative match handler name registered with Nakama.
	MatchNameFillBlank = "fillblank_match"

	// LobbyCollection is the storage collection lobby snapshots are kept in.
	LobbyCollection = "lobbies"
)

// Op codes for client messages and server messages. Payloads are JSON.
const (
	// Client -> Server
	OpStartGame  int64 = 1
	OpAction     int64 = 2 // app.Action
	OpSetRole    int64 = 3
	OpSetAICount int64 = 4
	OpLeave      int64 = 5

	// Server -> Client
	OpEvent int64 = 100 // app.Message, filtered per user
	OpSync  int64 = 101 // app.LobbyView, sent on join
	OpError int64 = 102
)
