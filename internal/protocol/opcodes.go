package protocol

// Match op codes, one per message kind.
const (
	OpGame         int64 = 1
	OpGameSetup    int64 = 2
	OpSlot         int64 = 3
	OpTakeSlot     int64 = 4
	OpSetExpansion int64 = 5
	OpSetRule      int64 = 6
	OpChat         int64 = 7
	OpClientList   int64 = 8
	OpGameList     int64 = 9
	OpChannel      int64 = 10
	OpRmi          int64 = 11
	OpUndo         int64 = 12
	OpStartGame    int64 = 13

	OpError int64 = 100
)

var opCodes = map[Kind]int64{
	KindGame:         OpGame,
	KindGameSetup:    OpGameSetup,
	KindSlot:         OpSlot,
	KindTakeSlot:     OpTakeSlot,
	KindSetExpansion: OpSetExpansion,
	KindSetRule:      OpSetRule,
	KindChat:         OpChat,
	KindClientList:   OpClientList,
	KindGameList:     OpGameList,
	KindChannel:      OpChannel,
	KindRmi:          OpRmi,
	KindUndo:         OpUndo,
	KindStartGame:    OpStartGame,
	KindError:        OpError,
}

var kindsByOpCode = func() map[int64]Kind {
	m := make(map[int64]Kind, len(opCodes))
	for k, op := range opCodes {
		m[op] = k
	}
	return m
}()

// OpCode returns the match op code carrying kind.
func OpCode(kind Kind) (int64, bool) {
	op, ok := opCodes[kind]
	return op, ok
}

// KindForOpCode is the inverse of OpCode.
func KindForOpCode(op int64) (Kind, bool) {
	k, ok := kindsByOpCode[op]
	return k, ok
}
