package constants

const (
	// MonumentBuildCost is the number of tokens debited for a monument
	MonumentBuildCost uint32 = 5
	// MonumentDriftX is the X offset from the requesting player to the monument
	MonumentDriftX int32 = 2
	// MonumentDriftY is the Y offset from the requesting player to the monument
	MonumentDriftY int32 = 2

	// BuildRequestsPerSecond is the sustained rate of build requests per player
	BuildRequestsPerSecond float64 = 0.5
	// BuildRequestBurst is the number of build requests a player can make at once
	BuildRequestBurst int = 2
)
