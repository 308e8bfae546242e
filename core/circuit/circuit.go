// Package circuit represents the arithmetic circuit a Beaver protocol run
// evaluates: a DAG of addition/multiplication gates (plus their
// constant-operand variants) with typed operands, validated for
// acyclicity and referential integrity, and exposing the canonical
// topological order both parties must agree on.
//
// Operand and Op are small closed value types switched on exhaustively
// rather than an open interface hierarchy, since the set of gate shapes is
// fixed by the protocol.
package circuit

import (
	"fmt"
	"sort"
)

// Party identifies one of the two input parties.
type Party uint8

const (
	P1 Party = iota + 1
	P2
)

func (p Party) String() string {
	switch p {
	case P1:
		return "P1"
	case P2:
		return "P2"
	default:
		return fmt.Sprintf("Party(%d)", uint8(p))
	}
}

// Slot identifies which positional input of a gate a PartyInput operand
// fills.
type Slot uint8

const (
	Left Slot = iota
	Right
)

func (s Slot) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Op is a gate's operation.
type Op uint8

const (
	Add Op = iota
	Mul
	AddC
	MulC
)

func (op Op) String() string {
	switch op {
	case Add:
		return "add"
	case Mul:
		return "mul"
	case AddC:
		return "addc"
	case MulC:
		return "mulc"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// OperandKind tags which variant an Operand holds.
type OperandKind uint8

const (
	OperandPartyInput OperandKind = iota
	OperandGateRef
	OperandConstant
)

// Operand is one of PartyInput(party, slot), GateRef(id), or
// Constant(signed). Exactly one of the fields is meaningful, selected by
// Kind.
type Operand struct {
	Kind     OperandKind
	Party    Party
	Slot     Slot
	GateRef  uint32
	Constant int64
}

// PartyInputOperand constructs an operand drawing from a party's flat input
// vector.
func PartyInputOperand(p Party, slot Slot) Operand {
	return Operand{Kind: OperandPartyInput, Party: p, Slot: slot}
}

// GateRefOperand constructs an operand referring to another gate's output.
func GateRefOperand(id uint32) Operand {
	return Operand{Kind: OperandGateRef, GateRef: id}
}

// ConstantOperand constructs a public constant operand.
func ConstantOperand(v int64) Operand {
	return Operand{Kind: OperandConstant, Constant: v}
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandPartyInput:
		return fmt.Sprintf("%s.%s", o.Party, o.Slot)
	case OperandGateRef:
		return fmt.Sprintf("#%d", o.GateRef)
	case OperandConstant:
		return fmt.Sprintf("%d", o.Constant)
	default:
		return "<invalid operand>"
	}
}

// Gate is one node of the circuit.
type Gate struct {
	ID    uint32
	Op    Op
	Left  Operand
	Right Operand
}

// Circuit is an acyclic network of gates plus the designated outputs for
// each party.
type Circuit struct {
	gates      map[uint32]Gate
	order      []uint32 // ascending gate ID, for deterministic iteration
	outputsP1  map[uint32]struct{}
	outputsP2  map[uint32]struct{}
	topoOrder  []uint32 // computed once by New via topologicalOrder
}

// New validates and constructs a Circuit from its gates and declared
// outputs. Gate identifiers need not be contiguous or ordered in the input
// slice; New sorts a local copy for deterministic inputs_of ordering.
func New(gates []Gate, outputsP1, outputsP2 []uint32) (*Circuit, error) {
	c := &Circuit{
		gates:     make(map[uint32]Gate, len(gates)),
		outputsP1: toSet(outputsP1),
		outputsP2: toSet(outputsP2),
	}

	for _, g := range gates {
		if _, exists := c.gates[g.ID]; exists {
			return nil, &ValidationError{Kind: DuplicateGateID, GateID: g.ID}
		}
		if err := validateOperandTypes(g); err != nil {
			return nil, err
		}
		c.gates[g.ID] = g
		c.order = append(c.order, g.ID)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })

	for _, g := range c.gates {
		for _, op := range []Operand{g.Left, g.Right} {
			if op.Kind == OperandGateRef {
				if _, ok := c.gates[op.GateRef]; !ok {
					return nil, &ValidationError{Kind: UnknownGateRef, GateID: g.ID, Ref: op.GateRef}
				}
			}
		}
	}

	for id := range c.outputsP1 {
		if _, ok := c.gates[id]; !ok {
			return nil, &ValidationError{Kind: UnknownOutputID, GateID: id}
		}
	}
	for id := range c.outputsP2 {
		if _, ok := c.gates[id]; !ok {
			return nil, &ValidationError{Kind: UnknownOutputID, GateID: id}
		}
	}

	topo, err := topologicalOrder(c.gates, c.order)
	if err != nil {
		return nil, err
	}
	c.topoOrder = topo

	return c, nil
}

func toSet(ids []uint32) map[uint32]struct{} {
	s := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func validateOperandTypes(g Gate) error {
	switch g.Op {
	case AddC, MulC:
		if g.Right.Kind != OperandConstant {
			return &ValidationError{Kind: OperandTypeMismatch, GateID: g.ID}
		}
		if g.Left.Kind == OperandConstant {
			return &ValidationError{Kind: OperandTypeMismatch, GateID: g.ID}
		}
	case Add, Mul:
		if g.Left.Kind == OperandConstant || g.Right.Kind == OperandConstant {
			return &ValidationError{Kind: OperandTypeMismatch, GateID: g.ID}
		}
	default:
		return &ValidationError{Kind: OperandTypeMismatch, GateID: g.ID}
	}
	return nil
}

// Gate returns the gate with the given ID and whether it exists.
func (c *Circuit) Gate(id uint32) (Gate, bool) {
	g, ok := c.gates[id]
	return g, ok
}

// Gates returns every gate, in ascending ID order.
func (c *Circuit) Gates() []Gate {
	gs := make([]Gate, len(c.order))
	for i, id := range c.order {
		gs[i] = c.gates[id]
	}
	return gs
}

// OutputsFor returns the set of gate IDs whose value is to be reconstructed
// for the given party.
func (c *Circuit) OutputsFor(p Party) []uint32 {
	var set map[uint32]struct{}
	if p == P1 {
		set = c.outputsP1
	} else {
		set = c.outputsP2
	}
	ids := make([]uint32, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TopologicalOrder returns the canonical evaluation order: a DFS
// post-order over the GateRef edges, ties broken by ascending gate ID, as
// required by spec so both parties derive the same sequence independently.
func (c *Circuit) TopologicalOrder() []uint32 {
	out := make([]uint32, len(c.topoOrder))
	copy(out, c.topoOrder)
	return out
}

// InputSlot names one of a party's input operands by the gate/slot it
// fills.
type InputSlot struct {
	GateID uint32
	Slot   Slot
}

// InputsOf returns, in ascending gate-ID order (the declared convention of
// the input file), the ordered list of (gate_id, slot) pairs that draw from
// the given party's flat input vector. Ties within the same gate (a gate
// using the party for both Left and Right) are broken Left-before-Right.
func (c *Circuit) InputsOf(p Party) []InputSlot {
	var slots []InputSlot
	for _, id := range c.order {
		g := c.gates[id]
		if g.Left.Kind == OperandPartyInput && g.Left.Party == p {
			slots = append(slots, InputSlot{GateID: id, Slot: Left})
		}
		if g.Right.Kind == OperandPartyInput && g.Right.Party == p {
			slots = append(slots, InputSlot{GateID: id, Slot: Right})
		}
	}
	return slots
}

func topologicalOrder(gates map[uint32]Gate, ascendingIDs []uint32) ([]uint32, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[uint32]int, len(gates))
	order := make([]uint32, 0, len(gates))

	var visit func(id uint32) error
	visit = func(id uint32) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return &ValidationError{Kind: CycleDetected, GateID: id}
		}
		color[id] = gray
		g := gates[id]
		for _, op := range []Operand{g.Left, g.Right} {
			if op.Kind == OperandGateRef {
				if err := visit(op.GateRef); err != nil {
					return err
				}
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range ascendingIDs {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}
