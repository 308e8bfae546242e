// Command beaver runs one end-to-end Beaver protocol session described by
// an input file: it parses the circuit and parameters, wires up
// the Dealer, P1, and P2 actors over in-process channels, drives them to
// completion, and writes a chronological log for each actor. Modelled on
// a single-purpose command layout (core actors wired directly in main,
// no subcommand tree) since this protocol has exactly one thing to do.
package main

import (
	"fmt"
	mathrand "math/rand"
	"os"

	crand "crypto/rand"
	"encoding/binary"

	"github.com/spf13/cobra"

	"github.com/republicprotocol/co-go"

	"github.com/republicprotocol/beaver/core/circuit"
	"github.com/republicprotocol/beaver/core/dealer"
	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/party"
	"github.com/republicprotocol/beaver/core/transport"
	"github.com/republicprotocol/beaver/internal/inputfile"
	"github.com/republicprotocol/beaver/internal/runlog"
)

var (
	seed          int64
	corruptDegree float64
)

var rootCmd = &cobra.Command{
	Use:   "beaver <input_path> <output_path>",
	Short: "run a two-party Beaver secret-sharing protocol session",
	Args:  cobra.ExactArgs(2),
	RunE:  run,
}

func init() {
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 derives a random seed from the OS CSPRNG)")
	rootCmd.Flags().Float64Var(&corruptDegree, "corrupt-degree", 0.20, "per-message tamper probability for the corrupt party, when one_party_corrupt is set")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "beaver: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	parsed, err := inputfile.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", inputPath, err)
	}

	runLog, err := runlog.Open(outputPath)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer runLog.Close()

	runSeed := seed
	if runSeed == 0 {
		runSeed = randomSeed()
	}

	// The input file's one_party_corrupt flag names only whether a party is
	// corrupt, not which one; by convention P1 is the designated tamperer
	// when the flag is set (documented in DESIGN.md, parallel to the addc
	// "P1 absorbs the constant" convention).
	corrupt := circuit.Party(0)
	if parsed.OneCorruptParty {
		corrupt = circuit.P1
	}

	d := dealer.New(parsed.Field, parsed.Circuit, parsed.Authenticated, newRNG(runSeed))
	p1 := party.New(parsed.Field, parsed.Circuit, circuit.P1, parsed.Authenticated, corrupt == circuit.P1, corruptDegree, newRNG(runSeed+1), newRNG(runSeed+2))
	p2 := party.New(parsed.Field, parsed.Circuit, circuit.P2, parsed.Authenticated, corrupt == circuit.P2, corruptDegree, newRNG(runSeed+3), newRNG(runSeed+4))

	if corrupt == circuit.P1 {
		p1.OnTamper(func(original, tampered field.Elem) {
			fmt.Printf("p1: tampered %s -> %s\n", original, tampered)
			runLog.LogTamper(transport.ActorP1, original, tampered)
		})
	} else if corrupt == circuit.P2 {
		p2.OnTamper(func(original, tampered field.Elem) {
			fmt.Printf("p2: tampered %s -> %s\n", original, tampered)
			runLog.LogTamper(transport.ActorP2, original, tampered)
		})
	}

	net := transport.NewNetwork(8, func(actor string) transport.Logger {
		switch actor {
		case transport.ActorDealer:
			return runLog.DealerLogger()
		case transport.ActorP1:
			return runLog.P1Logger()
		default:
			return runLog.P2Logger()
		}
	})

	var out1, out2 party.Outcome
	co.ParBegin(
		func() { d.Run(net.DealerToP1, net.DealerToP2) },
		func() {
			out1 = p1.Run(party.Links{FromDealer: net.DealerToP1, ToPeer: net.P1ToP2, FromPeer: net.P2ToP1}, parsed.P1Inputs)
		},
		func() {
			out2 = p2.Run(party.Links{FromDealer: net.DealerToP2, ToPeer: net.P2ToP1, FromPeer: net.P1ToP2}, parsed.P2Inputs)
		},
	)

	record(runLog, transport.ActorP1, out1)
	record(runLog, transport.ActorP2, out2)

	// A protocol abort is a successful run at the process level: it is
	// recorded in the logs above, and the exit code still reports success.
	return nil
}

func record(run *runlog.Run, actor string, out party.Outcome) {
	if out.State == party.Aborted {
		run.LogAbort(actor, out.AbortReason)
		return
	}
	run.LogOutputs(actor, out.Outputs)
}

type rngSource struct{ r *mathrand.Rand }

func (s rngSource) Uint64() uint64 { return s.r.Uint64() }

func newRNG(seed int64) rngSource { return rngSource{mathrand.New(mathrand.NewSource(seed))} }

func randomSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// The OS CSPRNG failing is an environment-level problem no seed
		// choice can work around; fall back to a fixed seed rather than
		// leave the run unseedable.
		return 1
	}
	v := int64(binary.LittleEndian.Uint64(buf[:]))
	if v == 0 {
		return 1
	}
	return v
}
