package domain

const (
	defaultTitle = "Club Blackout"

	bodyGameStarted  = "The game is starting! Open the app to see your role."
	bodyDayPhase     = "Day phase — time to discuss and vote."
	bodyNightPhase   = "Night phase — check the app for your action."
	bodyRematch      = "Rematch! The host started a new game. Open the app to rejoin."
	bodyNewBulletin  = "New message in the game."
	bodyRoleAssigned = "Your role is ready. Open the app to confirm and see your character."

	roleUnassigned = "unassigned"

	maxBulletinBodyRunes = 100
)

// Intent instructs the dispatcher to notify a set of players with one title
// and body. Intents live only for the invocation that produced them and are
// never persisted.
type Intent struct {
	TargetPlayerIDs []string
	Title           string
	Body            string
}

// GameTransitions diffs two versions of a game document and returns the
// notification intents the update produces, in fixed rule order. Running it
// again on the same pair yields the same intents.
func GameTransitions(before, after GameDocument) []Intent {
	prev := normalizeGame(before)
	next := normalizeGame(after)

	var intents []Intent
	everyone := next.playerIDs()
	phaseChanged := prev.phase != next.phase

	// Entering setup or night starts the game.
	if phaseChanged && (next.phase == PhaseSetup || next.phase == PhaseNight) {
		intents = append(intents, Intent{
			TargetPlayerIDs: everyone,
			Title:           defaultTitle,
			Body:            bodyGameStarted,
		})
	}

	// Entering day only matters to living players.
	if phaseChanged && next.phase == PhaseDay {
		intents = append(intents, Intent{
			TargetPlayerIDs: next.livingPlayerIDs(),
			Title:           defaultTitle,
			Body:            bodyDayPhase,
		})
	}

	// Entering night also fires on its own, so a jump into night notifies
	// everyone twice: game start plus night action. Kept until product
	// decides otherwise.
	if phaseChanged && next.phase == PhaseNight {
		intents = append(intents, Intent{
			TargetPlayerIDs: everyone,
			Title:           defaultTitle,
			Body:            bodyNightPhase,
		})
	}

	if !prev.rematchOffered && next.rematchOffered {
		intents = append(intents, Intent{
			TargetPlayerIDs: everyone,
			Title:           defaultTitle,
			Body:            bodyRematch,
		})
	}

	// A grown public bulletin list announces its newest entry. Count is the
	// only signal: edits that keep or shrink the list stay silent.
	if len(next.publicBulletins) > len(prev.publicBulletins) {
		last := next.publicBulletins[len(next.publicBulletins)-1]
		intents = append(intents, Intent{
			TargetPlayerIDs: everyone,
			Title:           bulletinTitle(last),
			Body:            bulletinBody(last),
		})
	}

	return intents
}

// RoleAssigned reports whether a private-state update assigned the player a
// role worth confirming. Changing away from a role, or into the unassigned
// sentinel, produces nothing.
func RoleAssigned(playerID string, before, after PrivateStateDocument) (Intent, bool) {
	if before.RoleID == after.RoleID || after.RoleID == "" || after.RoleID == roleUnassigned {
		return Intent{}, false
	}
	return Intent{
		TargetPlayerIDs: []string{playerID},
		Title:           defaultTitle,
		Body:            bodyRoleAssigned,
	}, true
}

func bulletinTitle(entry Bulletin) string {
	if entry.Title != "" {
		return entry.Title
	}
	return defaultTitle
}

func bulletinBody(entry Bulletin) string {
	body := entry.Content
	if body == "" {
		body = entry.FloatContent
	}
	body = truncateRunes(body, maxBulletinBodyRunes)
	if body == "" {
		body = bodyNewBulletin
	}
	return body
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
