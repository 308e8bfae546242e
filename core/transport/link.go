package transport

// Logger receives a structured record for every message sent or received on
// a Link. Implementations are expected to be cheap and non-blocking (the
// internal/runlog package adapts this onto zap).
type Logger interface {
	LogSend(from, to string, msg Message)
	LogRecv(to, from string, msg Message)
}

// NopLogger discards every record.
type NopLogger struct{}

func (NopLogger) LogSend(string, string, Message) {}
func (NopLogger) LogRecv(string, string, Message) {}

// Link is a single directed, in-process channel between two named actors,
// guaranteeing FIFO delivery with no loss or duplication,
// backed by a buffered Go channel. Every Send/Recv triggers the configured
// Logger.
type Link struct {
	from, to     string
	ch           chan Message
	senderLog    Logger
	receiverLog  Logger
}

// NewLink returns a Link from actor `from` to actor `to` with the given
// buffer capacity. senderLog and receiverLog are each fired from the
// respective endpoint's goroutine, so every actor's log reflects only the
// messages it itself sent or received.
func NewLink(from, to string, capacity int, senderLog, receiverLog Logger) *Link {
	if senderLog == nil {
		senderLog = NopLogger{}
	}
	if receiverLog == nil {
		receiverLog = NopLogger{}
	}
	return &Link{from: from, to: to, ch: make(chan Message, capacity), senderLog: senderLog, receiverLog: receiverLog}
}

// Send enqueues a message. It never blocks beyond the channel's buffer
// capacity: a reliable, in-process transport assumption, with no
// network backpressure modelling in scope.
func (l *Link) Send(msg Message) {
	l.senderLog.LogSend(l.from, l.to, msg)
	l.ch <- msg
}

// Close closes the underlying channel so the receiver observes EOF after
// draining any buffered messages. Only the sending side should call this
// a sender closes its outgoing channels after sending an Abort.
func (l *Link) Close() {
	close(l.ch)
}

// Recv blocks for the next message, returning ok=false once the channel is
// closed and drained (a premature close during normal operation is a
// channel anomaly the caller must detect from protocol state).
func (l *Link) Recv() (Message, bool) {
	msg, ok := <-l.ch
	if ok {
		l.receiverLog.LogRecv(l.to, l.from, msg)
	}
	return msg, ok
}
