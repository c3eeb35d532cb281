package dto

import "time"

type SessionConfig struct {
	HighAccuracy             bool
	ForceLocationRequest     bool
	ShowLocationDialog       bool
	UseSignificantChanges    bool
	ForegroundServiceEnabled bool
}

type Tuning struct {
	AccuracyAndroid string
	AccuracyIOS     string
	Timeout         time.Duration
	MaximumAge      time.Duration
	DistanceFilter  float64
	Interval        time.Duration
	FastestInterval time.Duration
}

type FetchInput struct {
	Config SessionConfig
	Tuning Tuning
}

type WatchInput struct {
	Config SessionConfig
	Tuning Tuning
}

type PositionOutput struct {
	Latitude       float64
	Longitude      float64
	Altitude       *float64
	Heading        *float64
	Speed          *float64
	AccuracyMeters float64
	CapturedAt     time.Time
}

type WatchOutput struct {
	HandleID        string
	StartedAt       time.Time
	ServiceBound    bool
	AlreadyWatching bool
}

type SnapshotOutput struct {
	State        string
	HandleID     string
	ServiceBound bool
	HasPosition  bool
	Position     PositionOutput
	LastAdvisory string
}

type EventKind string

const (
	EventState    EventKind = "state"
	EventPosition EventKind = "position"
	EventAdvisory EventKind = "advisory"
)

type SessionEvent struct {
	Kind     EventKind
	State    string
	Position PositionOutput
	Message  string
}

type TransitionOutput struct {
	At       time.Time
	From     string
	To       string
	HandleID string
	Reason   string
}

// Advisory is a user-facing notice as shown by a presentation layer.
// Actions, when present, are the choices offered.
type Advisory struct {
	Kind    string
	Title   string
	Message string
	Actions []string
}
