// Package domain holds the game-state transition rules that decide which
// push notifications a document update should produce.
package domain

import "strings"

// Phase identifies the game's current stage.
type Phase string

const (
	// PhaseLobby is the pre-game waiting room and the default when absent.
	PhaseLobby Phase = "lobby"
	// PhaseSetup is the role-assignment stage.
	PhaseSetup Phase = "setup"
	// PhaseNight is the hidden-action stage.
	PhaseNight Phase = "night"
	// PhaseDay is the discussion and voting stage.
	PhaseDay Phase = "day"
)

// GameDocument mirrors the persisted game document owned by the game backend.
// Absent fields keep their zero values; normalization resolves the documented
// defaults before any rule evaluates.
type GameDocument struct {
	Phase          Phase      `json:"phase,omitempty"`
	RematchOffered bool       `json:"rematchOffered,omitempty"`
	Players        []Player   `json:"players,omitempty"`
	BulletinBoard  []Bulletin `json:"bulletinBoard,omitempty"`
}

// Player is one roster entry. IsAlive is a pointer because an absent field
// means the player is alive.
type Player struct {
	ID      string `json:"id"`
	IsAlive *bool  `json:"isAlive,omitempty"`
}

// Bulletin is one bulletin board entry. Host-only entries are invisible to
// players and never produce notifications.
type Bulletin struct {
	Title        string `json:"title,omitempty"`
	Content      string `json:"content,omitempty"`
	FloatContent string `json:"floatContent,omitempty"`
	IsHostOnly   bool   `json:"isHostOnly,omitempty"`
}

// PrivateStateDocument mirrors one player's private game document.
type PrivateStateDocument struct {
	RoleID string `json:"roleId,omitempty"`
}

// gameState is a GameDocument with defaults resolved, ready for rule
// evaluation.
type gameState struct {
	phase           Phase
	rematchOffered  bool
	players         []playerState
	publicBulletins []Bulletin
}

type playerState struct {
	id    string
	alive bool
}

// normalizeGame resolves documented defaults: absent phase becomes lobby,
// absent isAlive becomes true, players without an id are dropped, and
// host-only bulletins are filtered out.
func normalizeGame(doc GameDocument) gameState {
	state := gameState{
		phase:          doc.Phase,
		rematchOffered: doc.RematchOffered,
	}
	if state.phase == "" {
		state.phase = PhaseLobby
	}
	for _, player := range doc.Players {
		if strings.TrimSpace(player.ID) == "" {
			continue
		}
		state.players = append(state.players, playerState{
			id:    player.ID,
			alive: player.IsAlive == nil || *player.IsAlive,
		})
	}
	for _, entry := range doc.BulletinBoard {
		if entry.IsHostOnly {
			continue
		}
		state.publicBulletins = append(state.publicBulletins, entry)
	}
	return state
}

// playerIDs returns every roster id, de-duplicated in first-seen order.
func (s gameState) playerIDs() []string {
	return collectIDs(s.players, func(playerState) bool { return true })
}

// livingPlayerIDs returns ids of players not marked dead, de-duplicated in
// first-seen order.
func (s gameState) livingPlayerIDs() []string {
	return collectIDs(s.players, func(p playerState) bool { return p.alive })
}

func collectIDs(players []playerState, keep func(playerState) bool) []string {
	ids := make([]string, 0, len(players))
	seen := make(map[string]struct{}, len(players))
	for _, player := range players {
		if !keep(player) {
			continue
		}
		if _, ok := seen[player.id]; ok {
			continue
		}
		seen[player.id] = struct{}{}
		ids = append(ids, player.id)
	}
	return ids
}
