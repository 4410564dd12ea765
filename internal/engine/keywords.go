package engine

// The raw audit log tags several independent concerns through free-text
// reasons. Every keyword the engine understands lives here, in folded form
// (lowercase, no diacritics), covering both wordings found in production
// data. Nothing outside this package may parse reason text.

// statusCreation is the synthetic new-status of the creation marker.
const statusCreation = "creation"

var (
	// reasons marking a delegation to a Deputy-DSI; "delegat" also covers
	// the folded French "délégation".
	delegationKeywords = []string{"delegat", "deputy", "adjoint"}

	// comment entries carry their text behind one of these prefixes.
	commentPrefixes = []string{"comment:", "commentaire:"}

	// requester verdicts on a resolved ticket.
	userRejectionMarkers  = []string{"user validation: rejected", "validation utilisateur: rejete"}
	userValidationMarkers = []string{"user validation: validated", "validation utilisateur: valide"}

	// a requester editing their own ticket; dropped from timelines as noise.
	ownEditMarkers = []string{"modified by user", "modifie par l'utilisateur"}

	// internal dispatch annotations whose text duplicates the entry title.
	internalDispatchMarkers = []string{
		"assignment by", "assignation par",
		"reassignment by", "reassignation par",
	}

	// a requester or manager nudging a stalled ticket without changing
	// its status.
	relaunchMarkers = []string{"relaunched by", "relance par"}

	// markers introducing the requester's rejection motive.
	reasonMarkers = []string{"reason:", "raison:", "motif:"}

	// a known writer defect duplicates this prefix on resolution entries.
	resolutionSummaryPrefixes = []string{"resolution summary:", "resume de resolution:"}

	// markers preceding an explicit technician name inside a reason.
	// "reassigned to" must come first: it embeds "assigned to".
	assignNameMarkers = []string{"reassigned to", "reassigne a", "assigned to", "assigne a"}
)

// Status matching tolerates the legacy codes still present in old history
// rows alongside the current enum values.

func isPendingTriage(folded string) bool {
	return folded == "pending_triage" || folded == "en_attente_analyse"
}

func isAssignedStatus(folded string) bool {
	return folded == "assigned" || folded == "assigne_technicien" || folded == "assigne"
}

func isInProgressStatus(folded string) bool {
	return folded == "in_progress" || folded == "en_cours"
}

func isResolvedStatus(folded string) bool {
	return folded == "resolved" || folded == "resolu"
}

func isClosedStatus(folded string) bool {
	return folded == "closed" || folded == "cloture"
}

func isRejectedStatus(folded string) bool {
	return folded == "rejected" || folded == "rejete"
}

func isRetiredStatus(folded string) bool {
	return folded == "reprocessed" || folded == "retraite" || folded == "retired" || folded == "retire"
}

func isValidatedStatus(folded string) bool {
	return folded == "validated" || folded == "valide"
}

// isTerminalSuccess covers every state that ends processing successfully.
func isTerminalSuccess(folded string) bool {
	return isResolvedStatus(folded) || isValidatedStatus(folded) || isClosedStatus(folded) || isRetiredStatus(folded)
}

func isWorkingStatus(folded string) bool {
	return isAssignedStatus(folded) || isInProgressStatus(folded)
}
