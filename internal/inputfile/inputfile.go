// Package inputfile parses the external input-file grammar into a
// ready-to-run circuit, field, and per-party input vectors. It mirrors
// core/circuit's validate-then-construct shape: parsing happens entirely
// before any actor starts, so every failure here is a fatal, pre-start
// parse/validation error rather than something discovered mid protocol.
package inputfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/field"
)

// File is the fully parsed and validated content of an input file: a
// circuit, its field, both parties' flat input vectors (in the order
// circuit.InputsOf expects), and the two run-mode flags.
type File struct {
	Field           field.Field
	Circuit         *circuit.Circuit
	P1Inputs        []field.Elem
	P2Inputs        []field.Elem
	Authenticated   bool
	OneCorruptParty bool
}

// Parse reads the full grammar from data: the circuit
// section (gates, then each party's declared outputs, separated by "&"),
// a blank line, the prime modulus, the four per-slot input vectors, and the
// two boolean run-mode flags.
func Parse(data string) (*File, error) {
	circuitText, paramLines, err := splitSections(data)
	if err != nil {
		return nil, err
	}

	gates, outsP1, outsP2, err := parseCircuitText(circuitText)
	if err != nil {
		return nil, err
	}

	c, err := circuit.New(gates, outsP1, outsP2)
	if err != nil {
		return nil, err
	}

	if len(paramLines) != 7 {
		return nil, malformed("expected a prime modulus, four input-vector lines, and two flag lines after the circuit, got %d lines", len(paramLines))
	}

	qVal, err := strconv.ParseUint(paramLines[0], 10, 64)
	if err != nil {
		return nil, malformed("modulus %q is not a u32: %v", paramLines[0], err)
	}
	f, err := newField(qVal)
	if err != nil {
		return nil, err
	}

	p1Left, err := parseIntVector(paramLines[1])
	if err != nil {
		return nil, err
	}
	p1Right, err := parseIntVector(paramLines[2])
	if err != nil {
		return nil, err
	}
	p2Left, err := parseIntVector(paramLines[3])
	if err != nil {
		return nil, err
	}
	p2Right, err := parseIntVector(paramLines[4])
	if err != nil {
		return nil, err
	}

	authenticated, err := parseBool(paramLines[5])
	if err != nil {
		return nil, err
	}
	oneCorrupt, err := parseBool(paramLines[6])
	if err != nil {
		return nil, err
	}

	p1Inputs, err := interleave(f, c.InputsOf(circuit.P1), p1Left, p1Right)
	if err != nil {
		return nil, err
	}
	p2Inputs, err := interleave(f, c.InputsOf(circuit.P2), p2Left, p2Right)
	if err != nil {
		return nil, err
	}

	return &File{
		Field:           f,
		Circuit:         c,
		P1Inputs:        p1Inputs,
		P2Inputs:        p2Inputs,
		Authenticated:   authenticated,
		OneCorruptParty: oneCorrupt,
	}, nil
}

// splitSections separates the circuit grammar (whitespace-flexible, may
// span several lines) from the parameter lines that follow the first blank
// line.
func splitSections(data string) (circuitText string, paramLines []string, err error) {
	normalized := strings.ReplaceAll(data, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	blankAt := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankAt = i
			break
		}
	}
	if blankAt < 0 {
		return "", nil, malformed("missing blank line separating circuit from parameters")
	}

	circuitText = stripWhitespace(strings.Join(lines[:blankAt], "\n"))

	// A blank input-vector line is meaningful (a party with no inputs in
	// that slot), so only trailing blank lines produced by a final newline
	// are dropped; interior blanks keep their position.
	rest := lines[blankAt+1:]
	for len(rest) > 0 && strings.TrimSpace(rest[len(rest)-1]) == "" {
		rest = rest[:len(rest)-1]
	}
	paramLines = make([]string, len(rest))
	for i, line := range rest {
		paramLines[i] = strings.TrimSpace(line)
	}
	return circuitText, paramLines, nil
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseCircuitText(text string) (gates []circuit.Gate, outsP1, outsP2 []uint32, err error) {
	parts := strings.Split(text, "&")
	if len(parts) != 3 {
		return nil, nil, nil, malformed("circuit section must have the form gates & outs_p1 & outs_p2")
	}

	if parts[0] != "" {
		for _, gateStr := range strings.Split(parts[0], "|") {
			g, err := parseGate(gateStr)
			if err != nil {
				return nil, nil, nil, err
			}
			gates = append(gates, g)
		}
	}

	outsP1, err = parseIDList(parts[1])
	if err != nil {
		return nil, nil, nil, err
	}
	outsP2, err = parseIDList(parts[2])
	if err != nil {
		return nil, nil, nil, err
	}
	return gates, outsP1, outsP2, nil
}

func parseGate(gateStr string) (circuit.Gate, error) {
	fields := strings.Split(gateStr, ",")
	if len(fields) != 4 {
		return circuit.Gate{}, malformed("gate %q must have the form id,operand,op,operand", gateStr)
	}

	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return circuit.Gate{}, malformed("gate id %q is not a u32: %v", fields[0], err)
	}

	op, err := parseOp(fields[2])
	if err != nil {
		return circuit.Gate{}, err
	}

	left, err := parseOperand(fields[1], circuit.Left, op, false)
	if err != nil {
		return circuit.Gate{}, err
	}
	right, err := parseOperand(fields[3], circuit.Right, op, true)
	if err != nil {
		return circuit.Gate{}, err
	}

	return circuit.Gate{ID: uint32(id), Op: op, Left: left, Right: right}, nil
}

func parseOp(s string) (circuit.Op, error) {
	switch s {
	case "add":
		return circuit.Add, nil
	case "mul":
		return circuit.Mul, nil
	case "addc":
		return circuit.AddC, nil
	case "mulc":
		return circuit.MulC, nil
	default:
		return 0, malformed("unknown op %q", s)
	}
}

// parseOperand parses one <operand> token. For addc/mulc's second operand,
// the grammar notation says <operand> but the literal is actually parsed as
// a signed i32 constant, selected here via isRightOfConstGate.
func parseOperand(tok string, slot circuit.Slot, op circuit.Op, isRightOfConstGate bool) (circuit.Operand, error) {
	if isRightOfConstGate && (op == circuit.AddC || op == circuit.MulC) {
		c, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return circuit.Operand{}, malformed("constant operand %q is not an i32: %v", tok, err)
		}
		return circuit.ConstantOperand(c), nil
	}

	switch tok {
	case "P1":
		return circuit.PartyInputOperand(circuit.P1, slot), nil
	case "P2":
		return circuit.PartyInputOperand(circuit.P2, slot), nil
	default:
		ref, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return circuit.Operand{}, malformed("operand %q is not P1, P2, or a gate reference: %v", tok, err)
		}
		return circuit.GateRefOperand(uint32(ref)), nil
	}
}

func parseIDList(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, malformed("output id %q is not a u32: %v", p, err)
		}
		ids[i] = uint32(v)
	}
	return ids, nil
}

func parseIntVector(line string) ([]int64, error) {
	if line == "" {
		return nil, nil
	}
	fields := strings.Split(line, ",")
	vals := make([]int64, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 32)
		if err != nil {
			return nil, malformed("input value %q is not an i32: %v", tok, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, malformed("flag %q is not true or false", s)
	}
}

// newField recovers from field.NewField's panic-on-bad-modulus convention
// and reports it as an ordinary parse error instead, since an input file
// supplying a bad prime is attacker/operator-controlled input, not a
// programming bug.
func newField(q uint64) (f field.Field, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{Kind: NonPrimeModulus, Detail: fmt.Sprintf("%v", r)}
		}
	}()
	return field.NewField(q), nil
}

// interleave zips a party's declared input slots (ascending gate id,
// left-before-right within a gate) against its separately-declared left and
// right vectors, producing the single flat vector Party.Run expects.
func interleave(f field.Field, slots []circuit.InputSlot, leftVals, rightVals []int64) ([]field.Elem, error) {
	out := make([]field.Elem, len(slots))
	li, ri := 0, 0
	for i, s := range slots {
		switch s.Slot {
		case circuit.Left:
			if li >= len(leftVals) {
				return nil, lengthMismatch(len(slots), len(leftVals)+len(rightVals))
			}
			out[i] = f.FromSigned(leftVals[li])
			li++
		case circuit.Right:
			if ri >= len(rightVals) {
				return nil, lengthMismatch(len(slots), len(leftVals)+len(rightVals))
			}
			out[i] = f.FromSigned(rightVals[ri])
			ri++
		}
	}
	if li != len(leftVals) || ri != len(rightVals) {
		return nil, lengthMismatch(len(slots), len(leftVals)+len(rightVals))
	}
	return out, nil
}

func lengthMismatch(want, got int) *ParseError {
	return &ParseError{Kind: InputVectorLengthMismatch, Detail: fmt.Sprintf("circuit declares %d input slots, file supplies %d values", want, got)}
}
