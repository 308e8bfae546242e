// Package sharing implements additive 2-out-of-2 secret sharing over a
// field.Field, plus the information-theoretic MAC layer used by the
// authenticated protocol variant: a simplified, strict two-party
// additive scheme rather than a polynomial (Shamir) scheme requiring a
// threshold of parties.
package sharing

import "github.com/republicprotocol/beaver/core/field"

// Share is one party's half of an additively shared secret: for a secret x,
// a pair of Shares (x1, x2) satisfies x1+x2 = x (mod q).
type Share = field.Elem

// Split samples x1 uniformly and returns (x1, x2) with x1+x2 = x.
func Split(f field.Field, x field.Elem, rng field.RNG) (x1, x2 Share) {
	x1 = f.SampleUniform(rng)
	x2 = x.Sub(x1)
	return x1, x2
}

// Open reconstructs a secret from both parties' shares.
func Open(mine, peer Share) field.Elem {
	return mine.Add(peer)
}

// MACKey is a field element an individual party holds privately to
// authenticate values opened to it. It is never shared or sent.
type MACKey = field.Elem

// Tag computes the MAC t = alpha*x and splits it into shares, so the tag
// itself crosses the wire as a shared value no single party can forge
// (a party's MAC key).
func Tag(f field.Field, alpha, x field.Elem, rng field.RNG) (t1, t2 Share) {
	t := alpha.Mul(x)
	return Split(f, t, rng)
}

// Verify checks that the shares of a tag reconstruct to alpha*opened,
// i.e. that the opened value was not tampered with after tagging.
func Verify(alpha, opened, tMine, tPeer field.Elem) bool {
	return tMine.Add(tPeer).Eq(alpha.Mul(opened))
}
