package transport

import (
	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/field"
)

// FieldElem is the wire representation of a field element; transport does
// not depend on sharing/party internals, only on field.
type FieldElem = field.Elem

// Triple holds one party's shares of a Beaver triple (a, b, c) with
// c = a*b, assigned to a single multiplication gate.
type Triple struct {
	A, B, C FieldElem
}

// KeyIndex selects which of the two parties' MAC key a MAC-share
// component is computed under: KeyP1 = under P1's private key alpha1,
// KeyP2 = under P2's private key alpha2. Every authenticated-mode MAC
// share a party tracks comes in a pair, one per KeyIndex, because the
// Beaver-triple opening in a mul gate is verified independently by both
// parties under their own keys.
type KeyIndex uint8

const (
	KeyP1 KeyIndex = 0
	KeyP2 KeyIndex = 1
)

// MACPair holds a party's share of some tagged value under each of the
// two parties' keys.
type MACPair [2]FieldElem

// InputKey names one of a party's own input operands within a bundle.
type InputKey struct {
	GateID uint32
	Slot   circuit.Slot
}

// TripleTag holds a party's MAC shares, under both keys, for each of a
// Beaver triple's three dealer-known components. Since the dealer
// generates a, b, c itself, it can tag them directly under both alpha1
// and alpha2 without ever touching a party's secret input.
type TripleTag struct {
	A, B, C MACPair
}

// Bundle is the setup material the Dealer sends to a single party. In
// this protocol variant the Dealer never learns a party's inputs (parties
// share their own inputs), so Bundle carries only triples and, in
// authenticated mode, MAC material — never input shares themselves.
type Bundle struct {
	// Triples holds this party's shares of every mul gate's triple, keyed
	// by gate id.
	Triples map[uint32]Triple

	// Authenticated is true when this run uses the MAC layer. The fields
	// below are populated only when Authenticated is true.
	Authenticated bool

	// Alpha is this party's own MAC key, used to verify values opened to
	// it. Never sent to the peer.
	Alpha FieldElem

	// OneShare is this party's share of "tag of 1" under each key, i.e.
	// a share of alpha1 (OneShare[KeyP1]) and of alpha2 (OneShare[KeyP2]).
	// A constant-term MAC correction for addc gates and for the public
	// delta revealed when an input is shared, generalizing the "tag of 1"
	// convention used for addc constants to input masking below.
	OneShare MACPair

	// InputPad holds, for each of THIS party's own input operands, the
	// dealer-chosen value p used in place of a self-sampled x1 for
	// authenticated-mode input masking (see core/party/mac.go): the
	// owner sets its share x1 := p and sends the peer the public
	// delta x - p. Absent (zero value) for slots this party does not
	// own.
	InputPad map[InputKey]FieldElem

	// InputPadTag holds, for every input operand in the circuit (owned
	// by either party), this party's MAC-share pair for the dealer's pad
	// p, under both keys. Both the owner and the peer need their half to
	// locally derive their share of the input wire's running MAC once
	// the public delta is known.
	InputPadTag map[InputKey]MACPair

	// TripleTags holds, per mul gate id, this party's MAC-share pairs for
	// the gate's triple components a, b, c under both keys.
	TripleTags map[uint32]TripleTag
}
