package domain

// Step is one emitted super-step: the node that ran and the state after its
// output was merged.
type Step struct {
	Index int      `json:"step"`
	Node  string   `json:"node"`
	State RunState `json:"state"`
}
