package app

// MinPlayersToStartGame defines the minimum number of joined players required to start a game.
// Keep this centralized so tests or local runs can adjust the rule without touching multiple call sites.
const MinPlayersToStartGame = 2

// MaxAIPlayers caps how many computer players SetAICount adds.
const MaxAIPlayers = 10
