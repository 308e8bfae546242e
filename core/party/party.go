// Package party implements the per-actor state machine that evaluates a
// circuit over a party's own share of its inputs: traversing
// gates in the circuit's canonical topological order, exchanging masked
// operands for each multiplication gate, applying the tamper policy when
// corrupt, verifying MACs in authenticated mode, and reconstructing
// designated outputs, one gate at a time in an "open shares, check,
// continue" loop.
package party

import (
	"fmt"
	"sort"

	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/transport"
)

// State names a point in a party's evaluation lifecycle.
type State uint8

const (
	AwaitingSetup State = iota
	InputSharing
	Evaluating
	OutputReconstruction
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case AwaitingSetup:
		return "awaiting_setup"
	case InputSharing:
		return "input_sharing"
	case Evaluating:
		return "evaluating"
	case OutputReconstruction:
		return "output_reconstruction"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Links bundles a Party's three channel endpoints: one inbound from the
// Dealer, and a bidirectional pair with its peer party.
type Links struct {
	FromDealer *transport.Link
	ToPeer     *transport.Link
	FromPeer   *transport.Link
}

// Outcome is what Run returns once a Party reaches Done or Aborted.
type Outcome struct {
	State       State
	Outputs     map[uint32]field.Elem
	AbortReason string
}

// Party evaluates one circuit run on behalf of one of the two input
// parties.
type Party struct {
	field         field.Field
	circuit       *circuit.Circuit
	me, peer      circuit.Party
	authenticated bool
	corrupt       bool
	corruptDegree float64
	rng           field.RNG // sharing/evaluation randomness
	tamperRNG     field.RNG // kept separate so tamper schedules are reproducible independent of sharing randomness
	onTamper      func(original, tampered field.Elem)

	state  State
	bundle transport.Bundle

	valueShare      map[uint32]field.Elem
	inputValueShare map[transport.InputKey]field.Elem
	gateMAC         map[uint32]transport.MACPair
	inputMAC        map[transport.InputKey]transport.MACPair
}

// New returns a Party for circuit c, acting as me, evaluating with the
// given field and randomness sources. corrupt marks whether this party is
// the run's designated tamperer; corruptDegree is the per-message tamper
// probability, used as given (the beaver command's flag defaults to 0.20).
func New(f field.Field, c *circuit.Circuit, me circuit.Party, authenticated, corrupt bool, corruptDegree float64, rng, tamperRNG field.RNG) *Party {
	peer := circuit.P2
	if me == circuit.P2 {
		peer = circuit.P1
	}
	return &Party{
		field:           f,
		circuit:         c,
		me:              me,
		peer:            peer,
		authenticated:   authenticated,
		corrupt:         corrupt,
		corruptDegree:   corruptDegree,
		rng:             rng,
		tamperRNG:       tamperRNG,
		state:           AwaitingSetup,
		valueShare:      make(map[uint32]field.Elem),
		inputValueShare: make(map[transport.InputKey]field.Elem),
		gateMAC:         make(map[uint32]transport.MACPair),
		inputMAC:        make(map[transport.InputKey]transport.MACPair),
	}
}

// State returns the party's current lifecycle state.
func (p *Party) State() State { return p.state }

// Run drives the full lifecycle: AwaitingSetup -> InputSharing ->
// Evaluating -> OutputReconstruction -> Done, or Aborted at the first MAC
// failure or peer abort. inputs is this party's flat input vector, in the
// same ascending-gate-id order circuit.InputsOf(me) produces.
func (p *Party) Run(links Links, inputs []field.Elem) Outcome {
	if reason, ok := p.awaitSetup(links); !ok {
		return p.abortedOutcome(reason)
	}
	if reason, ok := p.shareInputs(links, inputs); !ok {
		return p.abortedOutcome(reason)
	}
	if reason, ok := p.evaluate(links); !ok {
		return p.abortedOutcome(reason)
	}
	outputs, reason, ok := p.reconstructOutputs(links)
	if !ok {
		return p.abortedOutcome(reason)
	}
	p.state = Done
	return Outcome{State: Done, Outputs: outputs}
}

func (p *Party) abortedOutcome(reason string) Outcome {
	p.state = Aborted
	return Outcome{State: Aborted, AbortReason: reason}
}

func (p *Party) awaitSetup(links Links) (string, bool) {
	p.state = AwaitingSetup
	msg, ok := links.FromDealer.Recv()
	if !ok {
		return "dealer channel closed before setup", false
	}
	setup, ok := msg.(transport.Setup)
	if !ok {
		return "unexpected message from dealer", false
	}
	p.bundle = setup.Bundle
	return "", true
}

func (p *Party) shareInputs(links Links, inputs []field.Elem) (string, bool) {
	p.state = InputSharing

	mine := p.circuit.InputsOf(p.me)
	if len(inputs) != len(mine) {
		return fmt.Sprintf("input vector length %d does not match %d declared input slots", len(inputs), len(mine)), false
	}

	for i, slot := range mine {
		key := transport.InputKey{GateID: slot.GateID, Slot: slot.Slot}
		x := inputs[i]

		var x1 field.Elem
		if p.authenticated {
			x1 = p.bundle.InputPad[key]
		} else {
			x1 = p.field.SampleUniform(p.rng)
		}
		x2 := x.Sub(x1)

		p.inputValueShare[key] = x1
		if p.authenticated {
			p.inputMAC[key] = p.localInputMAC(key, x2)
		}

		links.ToPeer.Send(transport.InputShare{GateID: key.GateID, Slot: key.Slot, Value: p.maybeTamper(x2)})
	}

	peerSlots := p.circuit.InputsOf(p.peer)
	for range peerSlots {
		msg, ok := links.FromPeer.Recv()
		if !ok {
			return "peer channel closed during input sharing", false
		}
		if a, isAbort := msg.(transport.Abort); isAbort {
			return "peer aborted: " + a.Reason, false
		}
		share, ok := msg.(transport.InputShare)
		if !ok {
			return "unexpected message during input sharing", false
		}
		key := transport.InputKey{GateID: share.GateID, Slot: share.Slot}
		p.inputValueShare[key] = share.Value
		if p.authenticated {
			p.inputMAC[key] = p.localInputMAC(key, share.Value)
		}
	}

	return "", true
}

func (p *Party) operandValue(gateID uint32, slot circuit.Slot, op circuit.Operand) field.Elem {
	switch op.Kind {
	case circuit.OperandPartyInput:
		return p.inputValueShare[transport.InputKey{GateID: gateID, Slot: slot}]
	case circuit.OperandGateRef:
		return p.valueShare[op.GateRef]
	default:
		return p.field.Zero()
	}
}

func (p *Party) operandMAC(gateID uint32, slot circuit.Slot, op circuit.Operand) transport.MACPair {
	switch op.Kind {
	case circuit.OperandPartyInput:
		return p.inputMAC[transport.InputKey{GateID: gateID, Slot: slot}]
	case circuit.OperandGateRef:
		return p.gateMAC[op.GateRef]
	default:
		return transport.MACPair{}
	}
}

func (p *Party) evaluate(links Links) (string, bool) {
	p.state = Evaluating

	for _, id := range p.circuit.TopologicalOrder() {
		g, _ := p.circuit.Gate(id)
		switch g.Op {
		case circuit.Add:
			p.evalAdd(id, g)
		case circuit.AddC:
			p.evalAddC(id, g)
		case circuit.MulC:
			p.evalMulC(id, g)
		case circuit.Mul:
			if reason, ok := p.evalMul(links, id, g); !ok {
				return reason, false
			}
		}
	}
	return "", true
}

func (p *Party) evalAdd(id uint32, g circuit.Gate) {
	lv := p.operandValue(id, circuit.Left, g.Left)
	rv := p.operandValue(id, circuit.Right, g.Right)
	p.valueShare[id] = lv.Add(rv)

	if p.authenticated {
		lm := p.operandMAC(id, circuit.Left, g.Left)
		rm := p.operandMAC(id, circuit.Right, g.Right)
		p.gateMAC[id] = transport.MACPair{
			transport.KeyP1: lm[transport.KeyP1].Add(rm[transport.KeyP1]),
			transport.KeyP2: lm[transport.KeyP2].Add(rm[transport.KeyP2]),
		}
	}
}

// evalAddC follows the "only P1 adds the constant" convention for the
// value shares. The MAC correction is applied by both parties, each
// scaling its own per-run "tag of 1" share, since only the two shares
// together sum to alpha and alpha itself is never held by both parties.
func (p *Party) evalAddC(id uint32, g circuit.Gate) {
	lv := p.operandValue(id, circuit.Left, g.Left)
	c := p.field.FromSigned(g.Right.Constant)

	out := lv
	if p.me == circuit.P1 {
		out = out.Add(c)
	}
	p.valueShare[id] = out

	if p.authenticated {
		mac := p.operandMAC(id, circuit.Left, g.Left)
		one := p.bundle.OneShare
		mac = transport.MACPair{
			transport.KeyP1: mac[transport.KeyP1].Add(c.Mul(one[transport.KeyP1])),
			transport.KeyP2: mac[transport.KeyP2].Add(c.Mul(one[transport.KeyP2])),
		}
		p.gateMAC[id] = mac
	}
}

func (p *Party) evalMulC(id uint32, g circuit.Gate) {
	lv := p.operandValue(id, circuit.Left, g.Left)
	c := p.field.FromSigned(g.Right.Constant)
	p.valueShare[id] = lv.Mul(c)

	if p.authenticated {
		mac := p.operandMAC(id, circuit.Left, g.Left)
		p.gateMAC[id] = transport.MACPair{
			transport.KeyP1: mac[transport.KeyP1].Mul(c),
			transport.KeyP2: mac[transport.KeyP2].Mul(c),
		}
	}
}

// evalMul runs the Beaver-triple exchange for one multiplication gate
// mask both operands against the gate's triple, swap
// the masked shares with the peer, verify in authenticated mode, then
// combine.
func (p *Party) evalMul(links Links, id uint32, g circuit.Gate) (string, bool) {
	lv := p.operandValue(id, circuit.Left, g.Left)
	rv := p.operandValue(id, circuit.Right, g.Right)
	triple, ok := p.bundle.Triples[id]
	if !ok {
		panic(fmt.Sprintf("party: no Beaver triple supplied for multiplication gate %d", id))
	}

	dShare := lv.Sub(triple.A)
	eShare := rv.Sub(triple.B)

	var lmac, rmac transport.MACPair
	var tag transport.TripleTag
	var dMacOut, eMacOut *field.Elem
	if p.authenticated {
		lmac = p.operandMAC(id, circuit.Left, g.Left)
		rmac = p.operandMAC(id, circuit.Right, g.Right)
		tag = p.bundle.TripleTags[id]
		dm := lmac[p.peerKeyIdx()].Sub(tag.A[p.peerKeyIdx()])
		em := rmac[p.peerKeyIdx()].Sub(tag.B[p.peerKeyIdx()])
		dMacOut, eMacOut = &dm, &em
	}

	links.ToPeer.Send(transport.MulOpen{
		GateID: id,
		DShare: p.maybeTamper(dShare),
		EShare: p.maybeTamper(eShare),
		DMac:   dMacOut,
		EMac:   eMacOut,
	})

	msg, ok := links.FromPeer.Recv()
	if !ok {
		return "peer channel closed during multiplication", false
	}
	if a, isAbort := msg.(transport.Abort); isAbort {
		return "peer aborted: " + a.Reason, false
	}
	peerOpen, ok := msg.(transport.MulOpen)
	if !ok || peerOpen.GateID != id {
		return "unexpected message during multiplication", false
	}

	d := dShare.Add(peerOpen.DShare)
	e := eShare.Add(peerOpen.EShare)

	if p.authenticated {
		myD := lmac[p.myKeyIdx()].Sub(tag.A[p.myKeyIdx()])
		myE := rmac[p.myKeyIdx()].Sub(tag.B[p.myKeyIdx()])
		totalD := myD.Add(*peerOpen.DMac)
		totalE := myE.Add(*peerOpen.EMac)
		if !totalD.Eq(p.bundle.Alpha.Mul(d)) || !totalE.Eq(p.bundle.Alpha.Mul(e)) {
			reason := fmt.Sprintf("MAC mismatch opening gate %d", id)
			p.sendAbort(links, reason)
			return reason, false
		}
	}

	out := triple.C.Add(d.Mul(triple.B)).Add(e.Mul(triple.A))
	if p.me == circuit.P1 {
		out = out.Add(d.Mul(e))
	}
	p.valueShare[id] = out

	if p.authenticated {
		mac := transport.MACPair{
			transport.KeyP1: tag.C[transport.KeyP1].Add(d.Mul(tag.B[transport.KeyP1])).Add(e.Mul(tag.A[transport.KeyP1])),
			transport.KeyP2: tag.C[transport.KeyP2].Add(d.Mul(tag.B[transport.KeyP2])).Add(e.Mul(tag.A[transport.KeyP2])),
		}
		// Both parties add d*e times their own "tag of 1" share: the
		// shares sum to alpha, so the d*e term is tagged exactly once.
		de := d.Mul(e)
		one := p.bundle.OneShare
		mac = transport.MACPair{
			transport.KeyP1: mac[transport.KeyP1].Add(de.Mul(one[transport.KeyP1])),
			transport.KeyP2: mac[transport.KeyP2].Add(de.Mul(one[transport.KeyP2])),
		}
		p.gateMAC[id] = mac
	}

	return "", true
}

func (p *Party) reconstructOutputs(links Links) (map[uint32]field.Elem, string, bool) {
	p.state = OutputReconstruction

	p1Outputs := toSet(p.circuit.OutputsFor(circuit.P1))
	p2Outputs := toSet(p.circuit.OutputsFor(circuit.P2))
	ids := unionSorted(p.circuit.OutputsFor(circuit.P1), p.circuit.OutputsFor(circuit.P2))
	outputs := make(map[uint32]field.Elem)

	for _, id := range ids {
		_, wantP1 := p1Outputs[id]
		_, wantP2 := p2Outputs[id]
		bothWant := wantP1 && wantP2
		iWant := (p.me == circuit.P1 && wantP1) || (p.me == circuit.P2 && wantP2)

		myShare := p.valueShare[id]
		var macOut *field.Elem
		if p.authenticated {
			v := p.gateMAC[id][p.peerKeyIdx()]
			macOut = &v
		}

		// A gate owned by only one party is revealed one-way: the
		// non-recipient sends its share and never receives the
		// recipient's, so it never reconstructs a value it has no
		// right to see.
		if bothWant || !iWant {
			links.ToPeer.Send(transport.OutputShare{GateID: id, Value: p.maybeTamper(myShare), MACShare: macOut})
		}
		if !iWant {
			continue
		}

		msg, ok := links.FromPeer.Recv()
		if !ok {
			return nil, "peer channel closed during output reconstruction", false
		}
		if a, isAbort := msg.(transport.Abort); isAbort {
			return nil, "peer aborted: " + a.Reason, false
		}
		peerShare, ok := msg.(transport.OutputShare)
		if !ok || peerShare.GateID != id {
			return nil, "unexpected message during output reconstruction", false
		}

		opened := myShare.Add(peerShare.Value)

		if p.authenticated {
			myMAC := p.gateMAC[id][p.myKeyIdx()]
			total := myMAC.Add(*peerShare.MACShare)
			if !total.Eq(p.bundle.Alpha.Mul(opened)) {
				reason := fmt.Sprintf("MAC mismatch on output gate %d", id)
				p.sendAbort(links, reason)
				return nil, reason, false
			}
		}

		outputs[id] = opened
	}

	return outputs, "", true
}

func (p *Party) sendAbort(links Links, reason string) {
	p.state = Aborted
	links.ToPeer.Send(transport.Abort{Reason: reason})
	links.ToPeer.Close()
}

// maybeTamper: a corrupt party replaces an outgoing
// field value with uniform noise with independent probability
// corruptDegree, drawn from a RNG kept separate from sharing/evaluation
// randomness so tamper schedules are reproducible on their own.
func (p *Party) maybeTamper(v field.Elem) field.Elem {
	if !p.corrupt {
		return v
	}
	const resolution = 1 << 24
	roll := float64(p.tamperRNG.Uint64()%resolution) / float64(resolution)
	if roll >= p.corruptDegree {
		return v
	}
	tampered := p.field.SampleUniform(p.tamperRNG)
	if p.onTamper != nil {
		p.onTamper(v, tampered)
	}
	return tampered
}

// OnTamper installs a callback invoked every time this party actually
// substitutes an outgoing value (tamper events are announced on stdout
// and recorded in the run log). fn receives the honest value and the
// replacement that was sent in its place.
func (p *Party) OnTamper(fn func(original, tampered field.Elem)) {
	p.onTamper = fn
}

func toSet(ids []uint32) map[uint32]struct{} {
	s := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func unionSorted(a, b []uint32) []uint32 {
	set := toSet(a)
	for _, id := range b {
		set[id] = struct{}{}
	}
	out := make([]uint32, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
