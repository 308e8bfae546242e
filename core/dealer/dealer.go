// Package dealer implements the offline, trusted-at-setup randomness
// source of the Beaver protocol: one Beaver triple per
// multiplication gate, and, in authenticated mode, independent MAC keys
// plus every MAC-share pair a party will need to locally maintain its
// running per-wire MAC as the circuit evaluates. The Dealer never observes
// a party's inputs or outputs and sends exactly one Setup message to each
// party.
package dealer

import (
	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/sharing"
	"github.com/republicprotocol/beaver/core/transport"
)

// Dealer generates the setup bundles for a single protocol run.
type Dealer struct {
	field         field.Field
	circuit       *circuit.Circuit
	authenticated bool
	rng           field.RNG
}

// New returns a Dealer for the given circuit and field, operating in
// authenticated or unauthenticated mode, drawing all randomness from rng.
func New(f field.Field, c *circuit.Circuit, authenticated bool, rng field.RNG) *Dealer {
	return &Dealer{field: f, circuit: c, authenticated: authenticated, rng: rng}
}

// Run generates both parties' bundles and sends each exactly once over the
// given links, then returns: the Dealer performs no further work and
// observes no input or output values.
func (d *Dealer) Run(toP1, toP2 *transport.Link) {
	b1, b2 := d.generate()
	toP1.Send(transport.Setup{Bundle: b1})
	toP2.Send(transport.Setup{Bundle: b2})
	toP1.Close()
	toP2.Close()
}

// tripleShares is one multiplication gate's freshly sampled triple, both in
// the clear (for MAC tagging, which only the Dealer ever does) and already
// split into the two parties' shares.
type tripleShares struct {
	id      uint32
	a, b, c field.Elem
	a1, a2  field.Elem
	b1, b2  field.Elem
	c1, c2  field.Elem
}

func (d *Dealer) generate() (b1, b2 transport.Bundle) {
	mulGates := mulGateIDs(d.circuit)

	b1 = transport.Bundle{Triples: map[uint32]transport.Triple{}, Authenticated: d.authenticated}
	b2 = transport.Bundle{Triples: map[uint32]transport.Triple{}, Authenticated: d.authenticated}

	results := make([]tripleShares, len(mulGates))

	// Triples are sampled one after another from the single rng, so a
	// pinned seed reproduces them exactly.
	for i := range mulGates {
		id := mulGates[i]
		a := d.field.SampleUniform(d.rng)
		bb := d.field.SampleUniform(d.rng)
		c := a.Mul(bb)

		a1, a2 := sharing.Split(d.field, a, d.rng)
		b1v, b2v := sharing.Split(d.field, bb, d.rng)
		c1, c2 := sharing.Split(d.field, c, d.rng)

		results[i] = tripleShares{id: id, a: a, b: bb, c: c, a1: a1, a2: a2, b1: b1v, b2: b2v, c1: c1, c2: c2}
	}

	for _, r := range results {
		b1.Triples[r.id] = transport.Triple{A: r.a1, B: r.b1, C: r.c1}
		b2.Triples[r.id] = transport.Triple{A: r.a2, B: r.b2, C: r.c2}
	}

	if d.authenticated {
		d.attachMACs(&b1, &b2, results)
	}

	return b1, b2
}

// attachMACs samples the two parties' independent MAC keys, the per-run
// "tag of 1" shares, and every MAC-share pair a party needs to locally
// derive running per-wire MACs. The Dealer only ever
// tags values it itself knows in full: the triple components a, b, c, and
// a per-input-slot pad p substituted for the owner's self-sampled share
// x1. See core/party/mac.go for how these combine with the public delta
// revealed at input-sharing time, and with add/addc/mulc propagation, into
// a MAC the verifier can check once a value is finally opened.
func (d *Dealer) attachMACs(b1, b2 *transport.Bundle, triples []tripleShares) {
	alpha1 := d.nonZero()
	alpha2 := d.nonZero()
	b1.Alpha = alpha1
	b2.Alpha = alpha2

	o1, o2 := sharing.Split(d.field, alpha1, d.rng)
	p1, p2 := sharing.Split(d.field, alpha2, d.rng)
	b1.OneShare = transport.MACPair{transport.KeyP1: o1, transport.KeyP2: p1}
	b2.OneShare = transport.MACPair{transport.KeyP1: o2, transport.KeyP2: p2}

	b1.TripleTags = make(map[uint32]transport.TripleTag, len(triples))
	b2.TripleTags = make(map[uint32]transport.TripleTag, len(triples))
	for _, t := range triples {
		tag1, tag2 := d.tagBoth(alpha1, alpha2, t.a)
		tagB1, tagB2 := d.tagBoth(alpha1, alpha2, t.b)
		tagC1, tagC2 := d.tagBoth(alpha1, alpha2, t.c)
		b1.TripleTags[t.id] = transport.TripleTag{A: tag1, B: tagB1, C: tagC1}
		b2.TripleTags[t.id] = transport.TripleTag{A: tag2, B: tagB2, C: tagC2}
	}

	b1.InputPad = make(map[transport.InputKey]field.Elem)
	b2.InputPad = make(map[transport.InputKey]field.Elem)
	b1.InputPadTag = make(map[transport.InputKey]transport.MACPair)
	b2.InputPadTag = make(map[transport.InputKey]transport.MACPair)

	for _, owner := range []circuit.Party{circuit.P1, circuit.P2} {
		for _, slot := range d.circuit.InputsOf(owner) {
			key := transport.InputKey{GateID: slot.GateID, Slot: slot.Slot}
			p := d.field.SampleUniform(d.rng)
			if owner == circuit.P1 {
				b1.InputPad[key] = p
			} else {
				b2.InputPad[key] = p
			}
			tag1, tag2 := d.tagBoth(alpha1, alpha2, p)
			b1.InputPadTag[key] = tag1
			b2.InputPadTag[key] = tag2
		}
	}
}

// tagBoth computes value's tag under both alpha1 and alpha2, and additively
// splits each into the pair handed to P1 and P2 respectively.
func (d *Dealer) tagBoth(alpha1, alpha2, value field.Elem) (forP1, forP2 transport.MACPair) {
	t1a, t2a := sharing.Tag(d.field, alpha1, value, d.rng)
	t1b, t2b := sharing.Tag(d.field, alpha2, value, d.rng)
	forP1 = transport.MACPair{transport.KeyP1: t1a, transport.KeyP2: t1b}
	forP2 = transport.MACPair{transport.KeyP1: t2a, transport.KeyP2: t2b}
	return forP1, forP2
}

func (d *Dealer) nonZero() field.Elem {
	for {
		v := d.field.SampleUniform(d.rng)
		if !v.Eq(d.field.Zero()) {
			return v
		}
	}
}

func mulGateIDs(c *circuit.Circuit) []uint32 {
	var ids []uint32
	for _, g := range c.Gates() {
		if g.Op == circuit.Mul {
			ids = append(ids, g.ID)
		}
	}
	return ids
}
