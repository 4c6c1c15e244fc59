// Package components defines the vehicle model and the ECS components used to
// track which agents are still racing.
package components

// Entrant links an ECS entity to its slot in the population's agent slice.
type Entrant struct {
	Slot int
}

// Racing tags entrants that have not ended yet.
type Racing struct{}

// Leader tags the best entrant of the current tick.
type Leader struct{}
