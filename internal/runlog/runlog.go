// Package runlog adapts transport.Logger onto go.uber.org/zap, giving each
// actor in a protocol run its own chronological log file: every
// sent/received message, every tamper substitution, and every abort or
// final output. A github.com/google/uuid run id is attached to every line
// so that the three files for one run can be correlated against each
// other.
package runlog

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/republicprotocol/beaver/core/field"
	"github.com/republicprotocol/beaver/core/transport"
)

// Run owns the three output log files for one protocol execution, named
// "<outputPath>_dealer.txt", "_p1.txt", and "_p2.txt".
type Run struct {
	ID     uuid.UUID
	dealer *actorLog
	p1     *actorLog
	p2     *actorLog
}

// Open creates the three log files rooted at outputPath.
func Open(outputPath string) (*Run, error) {
	id := uuid.New()

	dealer, err := newActorLog(outputPath+"_dealer.txt", transport.ActorDealer, id)
	if err != nil {
		return nil, err
	}
	p1, err := newActorLog(outputPath+"_p1.txt", transport.ActorP1, id)
	if err != nil {
		dealer.Close()
		return nil, err
	}
	p2, err := newActorLog(outputPath+"_p2.txt", transport.ActorP2, id)
	if err != nil {
		dealer.Close()
		p1.Close()
		return nil, err
	}

	return &Run{ID: id, dealer: dealer, p1: p1, p2: p2}, nil
}

// DealerLogger, P1Logger, and P2Logger satisfy transport.Logger for their
// respective actor's Links.
func (r *Run) DealerLogger() transport.Logger { return r.dealer }
func (r *Run) P1Logger() transport.Logger     { return r.p1 }
func (r *Run) P2Logger() transport.Logger     { return r.p2 }

// LogTamper records a tamper substitution against the named actor's file.
func (r *Run) LogTamper(actor string, original, tampered field.Elem) {
	r.actorLog(actor).tamper(original, tampered)
}

// LogAbort records the reason an actor transitioned to Aborted.
func (r *Run) LogAbort(actor, reason string) {
	r.actorLog(actor).abort(reason)
}

// LogOutputs records an actor's final reconstructed outputs, keyed by gate
// id in ascending order.
func (r *Run) LogOutputs(actor string, outputs map[uint32]field.Elem) {
	r.actorLog(actor).outputs(outputs)
}

func (r *Run) actorLog(actor string) *actorLog {
	switch actor {
	case transport.ActorDealer:
		return r.dealer
	case transport.ActorP1:
		return r.p1
	default:
		return r.p2
	}
}

// Close flushes and closes all three files.
func (r *Run) Close() error {
	errs := []error{r.dealer.Close(), r.p1.Close(), r.p2.Close()}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type actorLog struct {
	logger *zap.Logger
	file   *os.File
}

func newActorLog(path, actor string, runID uuid.UUID) (*actorLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)

	core := zapcore.NewCore(encoder, zapcore.AddSync(f), zap.InfoLevel)
	logger := zap.New(core).With(
		zap.String("run_id", runID.String()),
		zap.String("actor", actor),
	)

	return &actorLog{logger: logger, file: f}, nil
}

func (a *actorLog) LogSend(from, to string, msg transport.Message) {
	a.logger.Info("send", zap.String("from", from), zap.String("to", to), zap.String("message", fmt.Sprintf("%+v", msg)))
}

func (a *actorLog) LogRecv(to, from string, msg transport.Message) {
	a.logger.Info("recv", zap.String("from", from), zap.String("to", to), zap.String("message", fmt.Sprintf("%+v", msg)))
}

func (a *actorLog) tamper(original, tampered field.Elem) {
	a.logger.Warn("tamper", zap.String("original", original.String()), zap.String("tampered", tampered.String()))
}

func (a *actorLog) abort(reason string) {
	a.logger.Error("abort", zap.String("reason", reason))
}

func (a *actorLog) outputs(outputs map[uint32]field.Elem) {
	ids := make([]uint32, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a.logger.Info("output", zap.Uint32("gate_id", id), zap.String("value", outputs[id].String()))
	}
}

func (a *actorLog) Close() error {
	_ = a.logger.Sync()
	return a.file.Close()
}
