package model

// IntentKind is the closed set of routing outcomes for an utterance.
type IntentKind int

const (
	// IntentAdd creates a structured record in a category table.
	IntentAdd IntentKind = iota
	// IntentAsk answers a question grounded in stored records.
	IntentAsk
	// IntentDelete removes a previously stored record.
	IntentDelete
	// IntentThink routes long-form input through the thought segmenter.
	IntentThink
	// IntentUnrecognized means the classifier produced nothing usable.
	IntentUnrecognized
)

func (k IntentKind) String() string {
	switch k {
	case IntentAdd:
		return "add"
	case IntentAsk:
		return "ask"
	case IntentDelete:
		return "delete"
	case IntentThink:
		return "think"
	default:
		return "unrecognized"
	}
}

// Intent is the tagged routing result. Category is set for IntentAdd;
// Query carries the search phrase for IntentAsk and IntentDelete.
type Intent struct {
	Kind     IntentKind
	Category string
	Query    string
}
