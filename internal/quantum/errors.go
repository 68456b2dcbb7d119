package quantum

import "fmt"

// MalformedCircuitError reports a circuit that cannot run: a qubit index
// outside the register, a bad gate, or a bad measurement plan. Gate is -1
// when the problem is not tied to a gate; Qubit is -1 when no qubit applies.
type MalformedCircuitError struct {
	Gate   int
	Qubit  int
	Reason string
}

func (e *MalformedCircuitError) Error() string {
	switch {
	case e.Gate >= 0 && e.Qubit >= 0:
		return fmt.Sprintf("malformed circuit: gate %d, qubit %d: %s", e.Gate, e.Qubit, e.Reason)
	case e.Gate >= 0:
		return fmt.Sprintf("malformed circuit: gate %d: %s", e.Gate, e.Reason)
	case e.Qubit >= 0:
		return fmt.Sprintf("malformed circuit: qubit %d: %s", e.Qubit, e.Reason)
	}
	return "malformed circuit: " + e.Reason
}
