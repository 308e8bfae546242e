package inputfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/field"
)

// Serialize renders f back into the grammar Parse accepts. It is
// the inverse of Parse: round-tripping a circuit through Serialize then
// Parse reconstructs the same gates, outputs, and input assignment.
func Serialize(f *File) string {
	gateStrs := make([]string, 0, len(f.Circuit.Gates()))
	for _, g := range f.Circuit.Gates() {
		gateStrs = append(gateStrs, serializeGate(g))
	}

	var b strings.Builder
	b.WriteString(strings.Join(gateStrs, "|"))
	b.WriteString("&")
	b.WriteString(joinIDs(f.Circuit.OutputsFor(circuit.P1)))
	b.WriteString("&")
	b.WriteString(joinIDs(f.Circuit.OutputsFor(circuit.P2)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%d\n", f.Field.Q())

	p1Left, p1Right := splitByOwnerSlot(f.Circuit.InputsOf(circuit.P1), f.P1Inputs)
	p2Left, p2Right := splitByOwnerSlot(f.Circuit.InputsOf(circuit.P2), f.P2Inputs)
	b.WriteString(joinInts(p1Left) + "\n")
	b.WriteString(joinInts(p1Right) + "\n")
	b.WriteString(joinInts(p2Left) + "\n")
	b.WriteString(joinInts(p2Right) + "\n")

	fmt.Fprintf(&b, "%t\n", f.Authenticated)
	fmt.Fprintf(&b, "%t\n", f.OneCorruptParty)

	return b.String()
}

func serializeGate(g circuit.Gate) string {
	return fmt.Sprintf("%d,%s,%s,%s", g.ID, serializeOperand(g.Left), g.Op.String(), serializeOperand(g.Right))
}

func serializeOperand(op circuit.Operand) string {
	switch op.Kind {
	case circuit.OperandPartyInput:
		return op.Party.String()
	case circuit.OperandGateRef:
		return strconv.FormatUint(uint64(op.GateRef), 10)
	case circuit.OperandConstant:
		return strconv.FormatInt(op.Constant, 10)
	default:
		return ""
	}
}

func splitByOwnerSlot(slots []circuit.InputSlot, values []field.Elem) (left, right []int64) {
	for i, s := range slots {
		v := int64(values[i].Uint64())
		switch s.Slot {
		case circuit.Left:
			left = append(left, v)
		case circuit.Right:
			right = append(right, v)
		}
	}
	return left, right
}

func joinIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

func joinInts(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}
