package domain

// Vault holds the real lamport balance escrowed for a single curve.
// Invariant: Balance equals the curve's RealSolReserve outside an
// in-flight operation.
type Vault struct {
	Mint    string // owning curve's mint reference
	Balance uint64 // lamports held
}

// Clone returns a copy callers can mutate without affecting the stored record.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}
