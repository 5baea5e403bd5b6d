package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// RuntimeEvent captures a runtime event for post-mortem analysis
type RuntimeEvent struct {
	EventType uint8  // Event type code
	Source    uint8  // Interrupt vector, when relevant
	Value     uint32 // Context-dependent value
}

// Event type codes
const (
	EvtOpen    = 1 // serial opened, Value = rate factor
	EvtClose   = 2 // serial closed
	EvtTimeout = 3 // ReadBytes timed out, Value = bytes received
	EvtAttach  = 4 // handler attached (Value 1) or detached (Value 0)
)

const (
	EventRingSize = 16 // Keep the last 16 events
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	eventRing     [EventRingSize]RuntimeEvent
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores an event in the ring buffer, overwriting the oldest
func RecordEvent(eventType, source uint8, value uint32) {
	idx := eventRingHead
	eventRing[idx] = RuntimeEvent{
		EventType: eventType,
		Source:    source,
		Value:     value,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []RuntimeEvent {
	out := make([]RuntimeEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// DumpEvents writes the event ring through the debug writer
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		var name string
		switch evt.EventType {
		case EvtOpen:
			name = "OPEN"
		case EvtClose:
			name = "CLOSE"
		case EvtTimeout:
			name = "TIMEOUT"
		case EvtAttach:
			name = "ATTACH"
		default:
			name = "UNKNOWN"
		}
		debugPrintln("[EVENTS] " + name +
			" vector=" + itoa(int(evt.Source)) +
			" value=" + utoa(evt.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event ring
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = RuntimeEvent{}
	}
	eventRingHead = 0
}
