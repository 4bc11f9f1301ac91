package domain

// MaxFeeBasisPoints caps the protocol fee parameter (100% in bps).
const MaxFeeBasisPoints = 10_000

// Protocol is the process-wide singleton created by init_protocol.
// It holds the authority allowed to administer the protocol and the
// default virtual reserves seeded into newly launched curves.
type Protocol struct {
	Authority           string // base58 identity allowed to pause and launch-gate
	Paused              bool   // blocks launch_coin only, never trades
	DefaultVirtualSol   uint64 // lamports seeded as virtual SOL liquidity
	DefaultVirtualToken uint64 // raw token units seeded as virtual token liquidity
	FeeBasisPoints      uint32 // stored default; trade math is fee-free
	CreatedAt           int64  // unix ms
	UpdatedAt           int64  // unix ms
}

// Clone returns a copy callers can mutate without affecting the stored record.
func (p *Protocol) Clone() *Protocol {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Validate checks the protocol record fields.
func (p *Protocol) Validate() error {
	if p == nil {
		return ErrInvalidInput
	}
	if err := ValidateAddress(p.Authority); err != nil {
		return err
	}
	if p.DefaultVirtualSol == 0 || p.DefaultVirtualToken == 0 {
		return ErrInvalidInput
	}
	if p.FeeBasisPoints > MaxFeeBasisPoints {
		return ErrInvalidInput
	}
	return nil
}
