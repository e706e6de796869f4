package broadcast

// liveness is the heartbeat state of one connection.
type liveness int

const (
	alive liveness = iota
	awaitingPong
	dead
)

func (l liveness) String() string {
	switch l {
	case alive:
		return "alive"
	case awaitingPong:
		return "awaiting_pong"
	case dead:
		return "dead"
	default:
		return "unknown"
	}
}

// onHeartbeat advances the state on a hub heartbeat tick. A connection that is still
// awaiting the previous pong is dead.
func (l liveness) onHeartbeat() liveness {
	if l == alive {
		return awaitingPong
	}
	return dead
}

// onPong handles a pong from the peer. Dead is terminal.
func (l liveness) onPong() liveness {
	if l == dead {
		return dead
	}
	return alive
}
