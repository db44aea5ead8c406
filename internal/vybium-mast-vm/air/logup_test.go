package air

import (
	"testing"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/utils"
)

func testOpenings() ([][]core.Felt, []core.QuadFelt) {
	openings := [][]core.Felt{
		{core.NewFelt(1), core.NewFelt(2)},
		{core.NewFelt(3), core.NewFelt(4)},
		{core.NewFelt(5), core.NewFelt(6)},
		{core.NewFelt(7), core.NewFelt(8)},
	}
	alpha := []core.QuadFelt{
		core.NewQuadFelt(core.NewFelt(11), core.NewFelt(13)),
		core.NewQuadFelt(core.NewFelt(17), core.NewFelt(19)),
	}
	return openings, alpha
}

func TestAuxColumnSatisfiesItsOwnConstraints(t *testing.T) {
	openings, alpha := testOpenings()
	r := []core.QuadFelt{
		core.NewQuadFelt(core.NewFelt(2), core.NewFelt(3)),
		core.NewQuadFelt(core.NewFelt(5), core.NewFelt(7)),
	}
	lagrange, s, err := AuxColumn(r, alpha, openings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !AuxBoundaryFirst(lagrange, s, alpha, openings).IsZero() {
		t.Fatalf("first boundary residual should vanish on a freshly built column")
	}
	for row := 1; row < len(s); row++ {
		if !AuxTransition(row, lagrange, s, alpha, openings).IsZero() {
			t.Fatalf("transition residual should vanish at row %d", row)
		}
	}
}

func TestAuxColumnRejectsMismatchedHeight(t *testing.T) {
	openings, alpha := testOpenings()
	r := []core.QuadFelt{core.OneQuadFelt()} // 2^1 != 4 rows
	if _, _, err := AuxColumn(r, alpha, openings); err == nil {
		t.Fatalf("expected error for openings height not matching 2^len(r)")
	}
}

func TestGkrProveVerifyRoundTrip(t *testing.T) {
	openings, alpha := testOpenings()

	proof, err := Prove(openings, alpha, utils.NewTranscript("logup-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claim, err := Verify(proof.Claim, proof, openings, alpha, utils.NewTranscript("logup-test"))
	if err != nil {
		t.Fatalf("verification should succeed with a matching transcript: %v", err)
	}
	if len(claim.Point) != 2 {
		t.Fatalf("final opening point should have one coordinate per variable, got %d", len(claim.Point))
	}
	if !claim.Value.Equal(proof.Claim) {
		t.Fatalf("final opening value should equal the claimed sum")
	}
}

func TestGkrVerifyRejectsTamperedClaim(t *testing.T) {
	openings, alpha := testOpenings()
	proof, err := Prove(openings, alpha, utils.NewTranscript("logup-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := proof.Claim.Add(core.OneQuadFelt())
	if _, err := Verify(bad, proof, openings, alpha, utils.NewTranscript("logup-test")); err == nil {
		t.Fatalf("expected rejection of a tampered claim")
	}
}

func TestDeriveChallengesIsDeterministicInPublicInputs(t *testing.T) {
	pub := PublicInputs{
		ProgramDigest: core.LinearHash([]core.Felt{core.NewFelt(1)}),
		StackInputs:   []core.Felt{core.NewFelt(2)},
		StackOutputs:  []core.Felt{core.NewFelt(3)},
	}
	a := DeriveChallenges(pub, 8)
	b := DeriveChallenges(pub, 8)
	if !a.Range.Const.Equal(b.Range.Const) {
		t.Fatalf("identical public inputs should derive identical challenges")
	}
	if len(a.GkrR) != 3 {
		t.Fatalf("expected log2(8)=3 kernel challenges, got %d", len(a.GkrR))
	}

	pub.StackInputs = []core.Felt{core.NewFelt(99)}
	c := DeriveChallenges(pub, 8)
	if a.Range.Const.Equal(c.Range.Const) {
		t.Fatalf("different public inputs should derive different challenges")
	}
}
