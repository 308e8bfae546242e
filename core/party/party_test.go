package party_test

import (
	mathrand "math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/republicprotocol/co-go"

	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/dealer"
	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/party"
	"github.com/republicprotocol/beaver/core/transport"
)

func TestParty(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Party Suite")
}

type rngSource struct{ r *mathrand.Rand }

func (s rngSource) Uint64() uint64 { return s.r.Uint64() }

func newRNG(seed int64) rngSource { return rngSource{mathrand.New(mathrand.NewSource(seed))} }

// additionCircuit computes x + y, one input each from P1 and P2.
func additionCircuit() *circuit.Circuit {
	gates := []circuit.Gate{
		{ID: 0, Op: circuit.Add, Left: circuit.PartyInputOperand(circuit.P1, circuit.Left), Right: circuit.PartyInputOperand(circuit.P2, circuit.Left)},
	}
	c, err := circuit.New(gates, []uint32{0}, []uint32{0})
	Expect(err).To(BeNil())
	return c
}

// mixedCircuit computes (x*y + x) * 2 - 1, exercising every gate kind. P1's
// value x is used twice, as two distinct declared input slots (gate 0's
// left operand and gate 1's right operand), each requiring its own share.
func mixedCircuit() *circuit.Circuit {
	gates := []circuit.Gate{
		{ID: 0, Op: circuit.Mul, Left: circuit.PartyInputOperand(circuit.P1, circuit.Left), Right: circuit.PartyInputOperand(circuit.P2, circuit.Left)},
		{ID: 1, Op: circuit.Add, Left: circuit.GateRefOperand(0), Right: circuit.PartyInputOperand(circuit.P1, circuit.Left)},
		{ID: 2, Op: circuit.MulC, Left: circuit.GateRefOperand(1), Right: circuit.ConstantOperand(2)},
		{ID: 3, Op: circuit.AddC, Left: circuit.GateRefOperand(2), Right: circuit.ConstantOperand(-1)},
	}
	c, err := circuit.New(gates, []uint32{3}, []uint32{3})
	Expect(err).To(BeNil())
	return c
}

// scalingCircuit computes (-2*x)+10 from a single P1 input, output only to
// P2.
func scalingCircuit() *circuit.Circuit {
	gates := []circuit.Gate{
		{ID: 0, Op: circuit.MulC, Left: circuit.PartyInputOperand(circuit.P1, circuit.Left), Right: circuit.ConstantOperand(-2)},
		{ID: 1, Op: circuit.AddC, Left: circuit.GateRefOperand(0), Right: circuit.ConstantOperand(10)},
	}
	c, err := circuit.New(gates, nil, []uint32{1})
	Expect(err).To(BeNil())
	return c
}

// multiplicationCircuit computes x*y, one input each from P1 and P2, output
// to both.
func multiplicationCircuit() *circuit.Circuit {
	gates := []circuit.Gate{
		{ID: 0, Op: circuit.Mul, Left: circuit.PartyInputOperand(circuit.P1, circuit.Left), Right: circuit.PartyInputOperand(circuit.P2, circuit.Left)},
	}
	c, err := circuit.New(gates, []uint32{0}, []uint32{0})
	Expect(err).To(BeNil())
	return c
}

func runProtocol(f field.Field, c *circuit.Circuit, authenticated bool, p1Inputs, p2Inputs []int64, corrupt circuit.Party, corruptDegree float64, seed int64) (p1Out, p2Out party.Outcome) {
	net := transport.NewNetwork(8, func(string) transport.Logger { return transport.NopLogger{} })

	d := dealer.New(f, c, authenticated, newRNG(seed))
	p1 := party.New(f, c, circuit.P1, authenticated, corrupt == circuit.P1, corruptDegree, newRNG(seed+1), newRNG(seed+2))
	p2 := party.New(f, c, circuit.P2, authenticated, corrupt == circuit.P2, corruptDegree, newRNG(seed+3), newRNG(seed+4))

	x := make([]field.Elem, len(p1Inputs))
	for i, v := range p1Inputs {
		x[i] = f.FromSigned(v)
	}
	y := make([]field.Elem, len(p2Inputs))
	for i, v := range p2Inputs {
		y[i] = f.FromSigned(v)
	}

	var out1, out2 party.Outcome
	co.ParBegin(
		func() { d.Run(net.DealerToP1, net.DealerToP2) },
		func() {
			out1 = p1.Run(party.Links{FromDealer: net.DealerToP1, ToPeer: net.P1ToP2, FromPeer: net.P2ToP1}, x)
		},
		func() {
			out2 = p2.Run(party.Links{FromDealer: net.DealerToP2, ToPeer: net.P2ToP1, FromPeer: net.P1ToP2}, y)
		},
	)
	return out1, out2
}

var _ = Describe("Party protocol execution", func() {
	f := field.NewField(65537)

	Context("unauthenticated mode", func() {
		It("reconstructs x+y for both parties", func() {
			out1, out2 := runProtocol(f, additionCircuit(), false, []int64{3}, []int64{4}, circuit.Party(0), 0, 1)
			Expect(out1.State).To(Equal(party.Done))
			Expect(out2.State).To(Equal(party.Done))
			Expect(out1.Outputs[0].Eq(f.FromSigned(7))).To(BeTrue())
			Expect(out2.Outputs[0].Eq(f.FromSigned(7))).To(BeTrue())
		})

		It("reconstructs (x*y+x)*2-1 across add/addc/mulc/mul gates", func() {
			// x=3, y=5: (15+3)*2-1 = 35
			out1, out2 := runProtocol(f, mixedCircuit(), false, []int64{3, 3}, []int64{5}, circuit.Party(0), 0, 2)
			Expect(out1.State).To(Equal(party.Done))
			Expect(out1.Outputs[3].Eq(f.FromSigned(35))).To(BeTrue())
			Expect(out2.Outputs[3].Eq(f.FromSigned(35))).To(BeTrue())
		})

		It("does not abort when a corrupt party tampers a message in unauthenticated mode", func() {
			out1, out2 := runProtocol(f, mixedCircuit(), false, []int64{3, 3}, []int64{5}, circuit.P1, 1.0, 3)
			Expect(out1.State).To(Equal(party.Done))
			Expect(out2.State).To(Equal(party.Done))
			// A certainly-tampered run should not land on the honest result.
			Expect(out2.Outputs[3].Eq(f.FromSigned(35))).To(BeFalse())
		})
	})

	Context("authenticated mode", func() {
		It("reconstructs (x*y+x)*2-1 and both parties agree", func() {
			out1, out2 := runProtocol(f, mixedCircuit(), true, []int64{3, 3}, []int64{5}, circuit.Party(0), 0, 4)
			Expect(out1.State).To(Equal(party.Done))
			Expect(out2.State).To(Equal(party.Done))
			Expect(out1.Outputs[3].Eq(f.FromSigned(35))).To(BeTrue())
			Expect(out2.Outputs[3].Eq(f.FromSigned(35))).To(BeTrue())
		})

		It("reconstructs a single multiplication to both parties", func() {
			out1, out2 := runProtocol(f, multiplicationCircuit(), true, []int64{6}, []int64{7}, circuit.Party(0), 0, 6)
			Expect(out1.State).To(Equal(party.Done))
			Expect(out2.State).To(Equal(party.Done))
			Expect(out1.Outputs[0].Eq(f.FromSigned(42))).To(BeTrue())
			Expect(out2.Outputs[0].Eq(f.FromSigned(42))).To(BeTrue())
		})

		It("reconstructs a constant-scaled value for the non-owning party", func() {
			out1, out2 := runProtocol(f, scalingCircuit(), true, []int64{4}, nil, circuit.Party(0), 0, 7)
			Expect(out1.State).To(Equal(party.Done))
			Expect(out2.State).To(Equal(party.Done))
			Expect(out1.Outputs).To(BeEmpty())
			Expect(out2.Outputs[1].Eq(f.FromSigned(2))).To(BeTrue())
		})

		It("aborts when a corrupt party always tampers", func() {
			out1, out2 := runProtocol(f, mixedCircuit(), true, []int64{3, 3}, []int64{5}, circuit.P1, 1.0, 5)
			Expect(out2.State).To(Equal(party.Aborted))
			Expect(out2.AbortReason).NotTo(BeEmpty())
			_ = out1
		})
	})
})
