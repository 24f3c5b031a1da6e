package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeGameDefaults(t *testing.T) {
	t.Parallel()

	state := normalizeGame(GameDocument{})
	if state.phase != PhaseLobby {
		t.Fatalf("expected absent phase to default to lobby, got %q", state.phase)
	}
	if state.rematchOffered {
		t.Fatal("expected rematch to default to false")
	}
	if len(state.players) != 0 || len(state.publicBulletins) != 0 {
		t.Fatalf("expected empty roster and bulletin list, got %+v", state)
	}
}

func TestNormalizeGamePlayers(t *testing.T) {
	t.Parallel()

	dead := false
	state := normalizeGame(GameDocument{
		Players: []Player{
			{ID: "p1"},
			{ID: ""},
			{ID: "  "},
			{ID: "p2", IsAlive: &dead},
		},
	})

	if got := len(state.players); got != 2 {
		t.Fatalf("expected blank-id players dropped, got %d entries", got)
	}
	if !state.players[0].alive {
		t.Fatal("expected absent isAlive to normalize to alive")
	}
	if state.players[1].alive {
		t.Fatal("expected explicit isAlive=false to survive normalization")
	}
}

func TestNormalizeGameFiltersHostOnlyBulletins(t *testing.T) {
	t.Parallel()

	state := normalizeGame(GameDocument{
		BulletinBoard: []Bulletin{
			{Title: "public"},
			{Title: "private", IsHostOnly: true},
			{Title: "also public"},
		},
	})
	if got := len(state.publicBulletins); got != 2 {
		t.Fatalf("expected 2 public bulletins, got %d", got)
	}
	if state.publicBulletins[1].Title != "also public" {
		t.Fatalf("expected order preserved, got %+v", state.publicBulletins)
	}
}

func TestGameDocumentDecodesBackendJSON(t *testing.T) {
	t.Parallel()

	payload := `{
		"phase": "night",
		"rematchOffered": true,
		"players": [
			{"id": "p1"},
			{"id": "p2", "isAlive": false}
		],
		"bulletinBoard": [
			{"title": "Note", "content": "hi", "isHostOnly": false}
		],
		"hostId": "ignored-extra-field"
	}`

	var doc GameDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("unmarshal game document: %v", err)
	}
	if doc.Phase != PhaseNight {
		t.Fatalf("expected night phase, got %q", doc.Phase)
	}
	if !doc.RematchOffered {
		t.Fatal("expected rematchOffered true")
	}
	if doc.Players[0].IsAlive != nil {
		t.Fatal("expected absent isAlive to decode as nil")
	}
	if doc.Players[1].IsAlive == nil || *doc.Players[1].IsAlive {
		t.Fatal("expected explicit isAlive=false to decode")
	}

	state := normalizeGame(doc)
	if got := state.playerIDs(); !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Fatalf("expected roster ids, got %v", got)
	}
	if got := state.livingPlayerIDs(); !reflect.DeepEqual(got, []string{"p1"}) {
		t.Fatalf("expected living ids, got %v", got)
	}
}
