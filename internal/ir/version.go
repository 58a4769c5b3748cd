package ir

const (
	// IRVersion identifies the canonical-form schema. Recorded with
	// every trace row so old traces stay interpretable.
	IRVersion = "1"

	// EngineVersion identifies the dispatch engine build.
	EngineVersion = "0.1.0"
)
