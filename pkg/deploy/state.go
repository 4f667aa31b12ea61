package deploy

// State is a step of a single deployment run. Runs always start at Idle and
// are never resumed.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StatePreparingTarget
	StateSyncing
	StateStaging
	StateNoChanges
	StateCommitting
	StatePushing
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateBuilding:        "building",
	StatePreparingTarget: "preparing target",
	StateSyncing:         "syncing",
	StateStaging:         "staging",
	StateNoChanges:       "no changes",
	StateCommitting:      "committing",
	StatePushing:         "pushing",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateNoChanges || s == StateDone || s == StateFailed
}
