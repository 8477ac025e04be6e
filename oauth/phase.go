package oauth

import "fmt"

// Phase is a step of one install attempt.
type Phase int

const (
	PhaseUninitiated Phase = iota
	PhaseAwaitingCallback
	PhaseVerified
	PhaseExchanged
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitiated:
		return "uninitiated"
	case PhaseAwaitingCallback:
		return "awaiting_callback"
	case PhaseVerified:
		return "verified"
	case PhaseExchanged:
		return "exchanged"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal phases accept no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseExchanged || p == PhaseFailed
}

var allowedTransitions = map[Phase][]Phase{
	PhaseUninitiated:      {PhaseAwaitingCallback, PhaseFailed},
	PhaseAwaitingCallback: {PhaseVerified, PhaseFailed},
	PhaseVerified:         {PhaseExchanged, PhaseFailed},
}

// Installation tracks one install attempt for one shop.
type Installation struct {
	Shop  string
	State string
	Phase Phase
	Err   error
}

func (i *Installation) advance(to Phase) error {
	for _, allowed := range allowedTransitions[i.Phase] {
		if allowed == to {
			i.Phase = to
			return nil
		}
	}
	return fmt.Errorf("oauth: invalid install transition %s -> %s", i.Phase, to)
}

// fail moves to PhaseFailed and records why. It returns err for convenient returns.
// A terminal installation keeps its phase.
func (i *Installation) fail(err error) error {
	_ = i.advance(PhaseFailed)
	i.Err = err
	return err
}
