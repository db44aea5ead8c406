package vybiummastvm

import (
	"fmt"

	cryptofield "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/air"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/processor"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// ExecutionOptions are the execution-time knobs an embedding program
// sets before running a Program: a value the caller builds, not
// something parsed from flags or the environment. STARK-security knobs
// (FRI query count, blowup factor, trace length) are deliberately
// absent; those belong to the STARK library layered on top.
type ExecutionOptions struct {
	// MaxCycles bounds execution; zero means unbounded.
	MaxCycles uint64

	// CheckAir, when true, materialises the execution trace after a
	// successful run, evaluates every AIR subsystem's boundary and
	// transition constraints over it, and verifies every chiplet bus
	// under Fiat-Shamir-derived challenges, failing the call on any
	// nonzero residual. This is the algebraic self-check a STARK prover
	// builds its low-degree test on top of; it is not itself a proof.
	CheckAir bool
}

// DefaultExecutionOptions returns the options a caller gets without
// building its own: no cycle limit, no post-run AIR check (the caller
// opts into the more expensive self-check explicitly).
func DefaultExecutionOptions() ExecutionOptions {
	return ExecutionOptions{}
}

// AdviceProvider is the host-side non-determinism source consumed by
// AdvPop/AdvPopW and by Merkle-lookup events.
type AdviceProvider struct {
	inner *processor.AdviceProvider
}

// NewAdviceProvider returns a provider seeded with a public advice tape.
func NewAdviceProvider(tape []Felt) *AdviceProvider {
	return &AdviceProvider{inner: processor.NewAdviceProvider(tape)}
}

// PutMap registers a Digest-keyed advice value ahead of execution.
func (a *AdviceProvider) PutMap(key Digest, values []Felt) error {
	return wrapErr(a.inner.PutMap(key, values))
}

// RegisterMerkleTree builds a Merkle tree over leaves on the host side
// and returns its root; MpVerify/MrUpdate resolve authentication paths
// against it without the paths ever touching the advice tape.
func (a *AdviceProvider) RegisterMerkleTree(leaves []Word) (Digest, error) {
	root, err := a.inner.RegisterMerkleTree(leaves)
	if err != nil {
		return Digest{}, wrapErr(err)
	}
	return root, nil
}

// Result is the public view of a successful run: the final 16 fast
// stack positions plus any declared overflow remainder, the Poseidon
// commitment binding the run's public inputs, and the materialised
// trace when ExecutionOptions.CheckAir requested it.
type Result struct {
	Top16    [16]Felt
	Overflow []Felt

	// Commitment is CommitPublicInputs over the run's program digest,
	// stack inputs, stack outputs, and kernel; a proof envelope carries
	// it in place of the full bundle.
	Commitment cryptofield.Element

	// Trace is non-nil only when ExecutionOptions.CheckAir was set.
	Trace *trace.Trace
}

// Execute runs prog's entry node to completion against stackInputs and
// host, honoring opts, and reports the stack outputs. It is the single
// entry point the CLI driver and any embedding program call into.
func Execute(prog *Program, kernel *Kernel, stackInputs []Felt, host *AdviceProvider, opts ExecutionOptions) (*Result, error) {
	hostProv := processor.NewAdviceProvider(nil)
	if host != nil {
		hostProv = host.inner
	}

	var mastKernel *mast.Kernel
	var kernelDigests []Digest
	if kernel != nil {
		mastKernel = kernel.inner
		kernelDigests = mastKernel.Digests()
	}

	p, err := processor.New(stackInputs, hostProv, kernelDigests, opts.MaxCycles)
	if err != nil {
		return nil, wrapErr(err)
	}

	d := processor.NewDecoder(prog.inner.Forest, mastKernel)
	if err := d.Run(p, prog.inner.Entry); err != nil {
		return nil, wrapErr(err)
	}

	res := &Result{Top16: p.Stack.Top16(), Overflow: p.Stack.OverflowValues()}
	res.Commitment = CommitPublicInputs(prog.Digest(), stackInputs, res.Top16[:], kernelDigests)
	if opts.CheckAir {
		tr := trace.Build(p, d)
		pub := air.PublicInputs{
			ProgramDigest: prog.Digest(),
			StackInputs:   stackInputs,
			StackOutputs:  res.Top16[:],
			Kernel:        kernelDigests,
		}
		ch := air.DeriveChallenges(pub, tr.Height)
		if err := air.New(tr, pub).Verify(ch); err != nil {
			return nil, wrapErr(fmt.Errorf("post-run self-check failed: %w", err))
		}
		res.Trace = tr
	}
	return res, nil
}
