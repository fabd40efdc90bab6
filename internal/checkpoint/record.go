package checkpoint

// Lap is one edge lap. Times are unix epoch milliseconds.
type Lap struct {
	Start    int64  `json:"start"`
	End      *int64 `json:"end"`
	Duration *int64 `json:"duration"`
}

// Record is the in-progress timer state needed to resume a session after a
// restart. It is never the source of truth for a finished session.
type Record struct {
	State              string `json:"state"`
	SessionStart       int64  `json:"sessionStart"`
	ActiveTime         int64  `json:"activeTime"`
	EdgeTime           int64  `json:"edgeTime"`
	CurrentEdgeStart   *int64 `json:"currentEdgeStart"`
	LastActiveStart    *int64 `json:"lastActiveStart"`
	SessionID          string `json:"sessionId"`
	FinishedDuringEdge bool   `json:"finishedDuringEdge"`
	EdgeLaps           []Lap  `json:"edgeLaps"`
	SavedAt            int64  `json:"savedAt"`
}
