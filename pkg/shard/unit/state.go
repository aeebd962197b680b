package unit

// State is the lifecycle position of an Instance.
type State int

const (
	Unregistered State = iota
	Composed
	Warm
	Cold
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Composed:
		return "composed"
	case Warm:
		return "warm"
	case Cold:
		return "cold"
	default:
		return "unknown"
	}
}
