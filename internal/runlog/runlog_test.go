package runlog_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/transport"
	"github.com/republicprotocol/beaver/internal/runlog"
)

func TestRunLog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Run Log Suite")
}

var _ = Describe("Run log", func() {
	var (
		dir  string
		base string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		base = filepath.Join(dir, "out")
	})

	It("creates one file per actor, named by convention", func() {
		run, err := runlog.Open(base)
		Expect(err).To(BeNil())
		defer run.Close()

		for _, suffix := range []string{"_dealer.txt", "_p1.txt", "_p2.txt"} {
			_, err := os.Stat(base + suffix)
			Expect(err).To(BeNil())
		}
	})

	It("records sends, receives, tamper events, aborts, and outputs", func() {
		run, err := runlog.Open(base)
		Expect(err).To(BeNil())

		f := field.NewField(65537)
		a, b := f.FromSigned(3), f.FromSigned(99)

		run.P1Logger().LogSend(transport.ActorP1, transport.ActorP2, transport.OutputShare{GateID: 0, Value: a})
		run.P2Logger().LogRecv(transport.ActorP2, transport.ActorP1, transport.OutputShare{GateID: 0, Value: a})
		run.LogTamper(transport.ActorP1, a, b)
		run.LogAbort(transport.ActorP2, "mac check failed")
		run.LogOutputs(transport.ActorP1, map[uint32]field.Elem{0: a, 1: b})

		Expect(run.Close()).To(BeNil())

		p1Contents, err := os.ReadFile(base + "_p1.txt")
		Expect(err).To(BeNil())
		Expect(string(p1Contents)).To(ContainSubstring("send"))
		Expect(string(p1Contents)).To(ContainSubstring("tamper"))
		Expect(string(p1Contents)).To(ContainSubstring("output"))

		p2Contents, err := os.ReadFile(base + "_p2.txt")
		Expect(err).To(BeNil())
		Expect(string(p2Contents)).To(ContainSubstring("recv"))
		Expect(string(p2Contents)).To(ContainSubstring("abort"))
	})

	It("tags a logged line with the run id", func() {
		run, err := runlog.Open(base)
		Expect(err).To(BeNil())
		run.LogAbort(transport.ActorDealer, "peer disconnected")
		Expect(run.Close()).To(BeNil())

		contents, err := os.ReadFile(base + "_dealer.txt")
		Expect(err).To(BeNil())
		Expect(string(contents)).To(ContainSubstring(run.ID.String()))
	})

	It("fails to open when the output directory does not exist", func() {
		_, err := runlog.Open(filepath.Join(dir, "missing", "out"))
		Expect(err).NotTo(BeNil())
	})
})
