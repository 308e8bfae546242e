// Package transport defines the typed message union exchanged between the
// three protocol actors (Dealer, P1, P2) and the point-to-point channels
// that carry them, with a logging hook fired on every send/receive. The
// Message sum type uses a marker-interface convention: an IsMessage marker
// method makes sending a value that is not one of the message types a
// compile error. Every Link accepts any Message; which message may appear
// on which link is checked by the receiver at run time.
package transport

import "github.com/republicprotocol/beaver/core/circuit"

// Message is anything that can cross a channel between two actors.
type Message interface {
	IsMessage()
}

// Setup is sent once, by the Dealer to each Party, carrying that party's
// entire setup bundle.
type Setup struct {
	Bundle Bundle
}

func (Setup) IsMessage() {}

// InputShare carries one half of a party's sharing of one of its own input
// operands. In unauthenticated mode Value is the traditional
// "other half" x2 of a fresh additive split. In authenticated mode the
// owner's share x1 is instead the dealer's InputPad for this slot, so Value
// is the public delta x-x1; both parties can then derive their own share of
// the wire's running MAC locally from Bundle.InputPadTag and Bundle.OneShare
// (core/party/mac.go), so no separate MAC-share field ever needs to cross
// the wire here.
type InputShare struct {
	GateID uint32
	Slot   circuit.Slot
	Value  FieldElem
}

func (InputShare) IsMessage() {}

// MulOpen carries the peer's shares of a multiplication gate's masked
// operands d = x-a and e = y-b, to be summed with the receiver's own
// shares to reconstruct d and e. In authenticated mode
// DMac/EMac carry the sender's locally-tracked MAC share for d and e,
// computed under the RECEIVER's key so the receiver can verify with a key
// only it holds; nil in unauthenticated mode.
type MulOpen struct {
	GateID uint32
	DShare FieldElem
	EShare FieldElem
	DMac   *FieldElem
	EMac   *FieldElem
}

func (MulOpen) IsMessage() {}

// OutputShare carries the non-recipient party's share (and, in
// authenticated mode, MAC share under the recipient's key) of a gate
// designated as an output, sent to the recipient for reconstruction.
type OutputShare struct {
	GateID   uint32
	Value    FieldElem
	MACShare *FieldElem
}

func (OutputShare) IsMessage() {}

// Abort notifies the peer that the sender detected tampering (or some
// other unrecoverable condition) and is halting.
type Abort struct {
	Reason string
}

func (Abort) IsMessage() {}
