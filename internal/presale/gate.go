package presale

// PauseGate tracks the paused and closed flags of a sale.
//
// Pause and Unpause are idempotent while the sale is open. Close is terminal:
// once set, Pause and Unpause fail with ErrSaleClosed and the flag never
// goes back to false.
type PauseGate struct {
	paused bool
	closed bool
}

// Pause blocks purchases.
func (g *PauseGate) Pause() error {
	if g.closed {
		return ErrSaleClosed
	}
	g.paused = true
	return nil
}

// Unpause allows purchases again.
func (g *PauseGate) Unpause() error {
	if g.closed {
		return ErrSaleClosed
	}
	g.paused = false
	return nil
}

// Close ends the sale for good.
func (g *PauseGate) Close() {
	g.closed = true
}

func (g *PauseGate) Paused() bool { return g.paused }
func (g *PauseGate) Closed() bool { return g.closed }

// Check returns the error a purchase should fail with, or nil when the gate is open.
// Closed wins over paused.
func (g *PauseGate) Check() error {
	if g.closed {
		return ErrSaleClosed
	}
	if g.paused {
		return ErrSalePaused
	}
	return nil
}
