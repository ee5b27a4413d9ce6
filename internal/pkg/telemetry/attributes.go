package telemetry

// Span attribute keys shared by the HTTP layer and the session service.
const (
	AttrSessionID = "propertypulse.session.id"
	AttrRows      = "propertypulse.dataset.rows"
	AttrMatches   = "propertypulse.proximity.matches"
	AttrSelected  = "propertypulse.selection.size"
)
