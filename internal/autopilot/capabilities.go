package autopilot

// Capabilities holds the flight-mode strings of one autopilot family.
type Capabilities struct {
	// MissionMode is requested to run the uploaded waypoint list.
	MissionMode string
	// AutoModes are modes in which the autopilot flies on its own.
	AutoModes []string
	// LandModes are descent or landing modes.
	LandModes []string
}

var table = map[Type]Capabilities{
	PX4: {
		MissionMode: "AUTO.MISSION",
		AutoModes:   []string{"AUTO.MISSION", "AUTO.LOITER", "AUTO.RTL", "AUTO.TAKEOFF", "AUTO.READY", "AUTO.FOLLOW_TARGET", "OFFBOARD"},
		LandModes:   []string{"AUTO.LAND", "AUTO.PRECLAND", "AUTO.DESCEND"},
	},
	APM: {
		MissionMode: "AUTO",
		AutoModes:   []string{"AUTO", "GUIDED", "LOITER", "RTL", "CIRCLE", "TAKEOFF", "AVOID_ADSB"},
		LandModes:   []string{"QLAND", "QRTL"},
	},
}

// Lookup returns the capabilities of t. Unknown autopilots get an empty table,
// so nothing is ever recognized as automatic.
func Lookup(t Type) Capabilities {
	return table[t]
}

func (c Capabilities) IsAuto(mode string) bool {
	return contains(c.AutoModes, mode)
}

func (c Capabilities) IsLanding(mode string) bool {
	return contains(c.LandModes, mode)
}

func contains(modes []string, mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}
