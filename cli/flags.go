package cli

var (
	verbose    bool
	configPath string

	// for io commands
	logicalCoords bool
	durationMs    int64
)
