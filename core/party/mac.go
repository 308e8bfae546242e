package party

import (
	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/transport"
)

// keyIdxOf selects which half of a transport.MACPair belongs to a given
// party's own verifying key.
func keyIdxOf(p circuit.Party) transport.KeyIndex {
	if p == circuit.P1 {
		return transport.KeyP1
	}
	return transport.KeyP2
}

func (p *Party) myKeyIdx() transport.KeyIndex   { return keyIdxOf(p.me) }
func (p *Party) peerKeyIdx() transport.KeyIndex { return keyIdxOf(p.peer) }

// localInputMAC computes this party's share, under both keys, of an input
// wire's running MAC once the public delta for that wire is known: tag(p)
// + delta*tag(1), using the dealer's InputPadTag for the slot and the
// per-run "tag of 1" shares.
//
// For a slot this party owns, delta is its own freshly computed x-x1
// (before any tamper substitution is applied to the outgoing message, per
// MAC shares are not adjusted for the owner). For a slot the peer owns,
// delta is whatever value arrived in the peer's InputShare message — this
// is unavoidably the only value this party ever sees for that wire, and
// it is also why a corrupted input delta is eventually caught: the
// owner's own bookkeeping stays keyed to the honest delta while the
// peer's tracks the corrupted one, so the two views of the wire diverge
// and the mismatch surfaces at the first subsequent opening.
func (p *Party) localInputMAC(key transport.InputKey, delta field.Elem) transport.MACPair {
	tag := p.bundle.InputPadTag[key]
	one := p.bundle.OneShare
	return transport.MACPair{
		transport.KeyP1: tag[transport.KeyP1].Add(delta.Mul(one[transport.KeyP1])),
		transport.KeyP2: tag[transport.KeyP2].Add(delta.Mul(one[transport.KeyP2])),
	}
}
