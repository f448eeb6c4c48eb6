package assoc

// Attribute names of the two many-to-many link mechanisms as they appear
// in requests and responses.
const (
	// Built-in links: record["vazby"] is a list of entries tagged by
	// typVazbyK, each holding both link sides under "a" and "b".
	builtinLinksRelation = "vazby"
	builtinLinkEntry     = "vazba"
	builtinLinkType      = "typVazbyK"

	// User-defined links: record["uzivatelske-vazby"] is a list of entries
	// tagged by vazbaTyp, each holding the linked record under "object".
	customLinksRelation = "uzivatelske-vazby"
	customLinkEntry     = "uzivatelska-vazba"
	customLinkType      = "vazbaTyp"
	customLinkObject    = "object"

	// envelopeRoot is the root element of every payload.
	envelopeRoot = "winstrom"
)

// Exported names used by the engine when wrapping payloads and writing
// custom links.
const (
	EnvelopeRoot = envelopeRoot

	CustomLinksRelation = customLinksRelation
	CustomLinkEntry     = customLinkEntry
	CustomLinkType      = customLinkType
	CustomLinkObject    = customLinkObject
)
