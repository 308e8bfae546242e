package inputfile_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/internal/inputfile"
)

func TestInputFile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Input File Suite")
}

var _ = Describe("Input file parsing", func() {
	It("parses a constant-scaling circuit with an output owned by the non-input party", func() {
		// gates 0,P1,mulc,-2; 1,0,addc,10; P1 input [4], output to P2 = {1}.
		data := "0,P1,mulc,-2|1,0,addc,10&&1\n\n65537\n4\n\n\n\ntrue\nfalse\n"

		f, err := inputfile.Parse(data)
		Expect(err).To(BeNil())
		Expect(f.Field.Q()).To(Equal(uint64(65537)))
		Expect(f.Authenticated).To(BeTrue())
		Expect(f.OneCorruptParty).To(BeFalse())

		Expect(f.P1Inputs).To(HaveLen(1))
		Expect(f.P1Inputs[0].Eq(f.Field.FromSigned(4))).To(BeTrue())
		Expect(f.P2Inputs).To(BeEmpty())

		Expect(f.Circuit.OutputsFor(circuit.P2)).To(Equal([]uint32{1}))
		Expect(f.Circuit.OutputsFor(circuit.P1)).To(BeEmpty())
	})

	It("parses a two-input addition circuit across both parties", func() {
		// P2 is gate 0's right operand, so its value belongs in the
		// p2-right vector (the fourth input-vector line), not p2-left.
		data := "0,P1,add,P2&0&0\n\n65537\n3\n\n\n4\ntrue\nfalse\n"

		f, err := inputfile.Parse(data)
		Expect(err).To(BeNil())
		Expect(f.P1Inputs).To(HaveLen(1))
		Expect(f.P2Inputs).To(HaveLen(1))
		Expect(f.P1Inputs[0].Eq(f.Field.FromSigned(3))).To(BeTrue())
		Expect(f.P2Inputs[0].Eq(f.Field.FromSigned(4))).To(BeTrue())
	})

	It("tolerates whitespace and line breaks within the circuit section", func() {
		data := "0, P1 , add , P2\n&0\n&0\n\n65537\n3\n\n\n4\nfalse\ntrue\n"

		f, err := inputfile.Parse(data)
		Expect(err).To(BeNil())
		Expect(f.Authenticated).To(BeFalse())
		Expect(f.OneCorruptParty).To(BeTrue())
	})

	It("rejects a missing blank-line separator", func() {
		data := "0,P1,add,P2&0&0\n65537\n3\n\n\n4\ntrue\nfalse\n"
		_, err := inputfile.Parse(data)
		Expect(err).NotTo(BeNil())
	})

	It("rejects a non-prime modulus", func() {
		data := "0,P1,add,P2&0&0\n\n10\n3\n\n\n4\ntrue\nfalse\n"
		_, err := inputfile.Parse(data)
		Expect(err).NotTo(BeNil())
	})

	It("rejects an input vector whose length does not match the circuit's declared slots", func() {
		data := "0,P1,add,P2&0&0\n\n65537\n3,3\n\n\n4\ntrue\nfalse\n"
		_, err := inputfile.Parse(data)
		Expect(err).NotTo(BeNil())
	})

	It("propagates circuit validation errors for an unknown gate reference", func() {
		data := "0,P1,add,9&0&0\n\n65537\n3\n\n\n\ntrue\nfalse\n"
		_, err := inputfile.Parse(data)
		Expect(err).NotTo(BeNil())
	})

	It("round-trips through Serialize and Parse", func() {
		// x (P1) is used twice: gate 0's left operand and gate 1's right
		// operand, so it appears once in the P1-left vector and once in the
		// P1-right vector. y (P2) appears once, as gate 0's right operand.
		data := "0,P1,mul,P2|1,0,add,P1|2,1,mulc,2|3,2,addc,-1&3&3\n\n65537\n3\n3\n\n5\ntrue\nfalse\n"

		original, err := inputfile.Parse(data)
		Expect(err).To(BeNil())

		reparsed, err := inputfile.Parse(inputfile.Serialize(original))
		Expect(err).To(BeNil())

		Expect(cmp.Diff(original.Circuit.Gates(), reparsed.Circuit.Gates())).To(BeEmpty())
		Expect(cmp.Diff(original.Circuit.OutputsFor(circuit.P1), reparsed.Circuit.OutputsFor(circuit.P1))).To(BeEmpty())
		Expect(cmp.Diff(original.Circuit.OutputsFor(circuit.P2), reparsed.Circuit.OutputsFor(circuit.P2))).To(BeEmpty())
		Expect(reparsed.Field.Q()).To(Equal(original.Field.Q()))
		Expect(reparsed.Authenticated).To(Equal(original.Authenticated))
		Expect(reparsed.OneCorruptParty).To(Equal(original.OneCorruptParty))

		for i := range original.P1Inputs {
			Expect(reparsed.P1Inputs[i].Eq(original.P1Inputs[i])).To(BeTrue())
		}
		for i := range original.P2Inputs {
			Expect(reparsed.P2Inputs[i].Eq(original.P2Inputs[i])).To(BeTrue())
		}
	})
})
