package transport

// Actor names used consistently across links and logs.
const (
	ActorDealer = "dealer"
	ActorP1     = "p1"
	ActorP2     = "p2"
)

// Network holds the four directed Links among the three actors: the Dealer
// only ever sends (to each party, once), and the two parties exchange
// messages bidirectionally.
type Network struct {
	DealerToP1 *Link
	DealerToP2 *Link
	P1ToP2     *Link
	P2ToP1     *Link
}

// NewNetwork constructs a fully wired Network, with every Link sharing the
// given buffer capacity and logger set. loggers is called exactly once per
// actor, and that actor's Logger is used on every Link it sends or
// receives on.
func NewNetwork(capacity int, loggers func(actor string) Logger) *Network {
	dealerLog, p1Log, p2Log := loggers(ActorDealer), loggers(ActorP1), loggers(ActorP2)
	return &Network{
		DealerToP1: NewLink(ActorDealer, ActorP1, capacity, dealerLog, p1Log),
		DealerToP2: NewLink(ActorDealer, ActorP2, capacity, dealerLog, p2Log),
		P1ToP2:     NewLink(ActorP1, ActorP2, capacity, p1Log, p2Log),
		P2ToP1:     NewLink(ActorP2, ActorP1, capacity, p2Log, p1Log),
	}
}
