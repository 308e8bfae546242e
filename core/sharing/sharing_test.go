package sharing_test

import (
	mathrand "math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/sharing"
)

func TestSharing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sharing Suite")
}

type rngSource struct{ r *mathrand.Rand }

func (s rngSource) Uint64() uint64 { return s.r.Uint64() }

var _ = Describe("Additive sharing and MACs", func() {
	f := field.NewField(65537)
	rng := rngSource{mathrand.New(mathrand.NewSource(7))}

	It("splits and opens back to the original secret", func() {
		for i := 0; i < 200; i++ {
			x := f.SampleUniform(rng)
			x1, x2 := sharing.Split(f, x, rng)
			Expect(sharing.Open(x1, x2).Eq(x)).To(BeTrue())
		}
	})

	It("produces MAC tags that verify for the tagged value", func() {
		alpha := f.SampleUniform(rng)
		for i := 0; i < 200; i++ {
			x := f.SampleUniform(rng)
			t1, t2 := sharing.Tag(f, alpha, x, rng)
			Expect(sharing.Verify(alpha, x, t1, t2)).To(BeTrue())
		}
	})

	It("fails verification when the opened value was tampered with", func() {
		alpha := f.SampleUniform(rng)
		x := f.SampleUniform(rng)
		t1, t2 := sharing.Tag(f, alpha, x, rng)
		tampered := x.Add(f.One())
		Expect(sharing.Verify(alpha, tampered, t1, t2)).To(BeFalse())
	})
})
