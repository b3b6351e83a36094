package schema

// MessageKind identifies the variant carried by a Message.
type MessageKind string

const (
	// MessageClose asks the origin window to drop a tab that was received elsewhere.
	MessageClose MessageKind = "Close"
	// MessageCustom carries an application-defined tag and payload.
	MessageCustom MessageKind = "Custom"
)

// CloseMessage is the payload of a MessageClose.
type CloseMessage struct {
	Index int
}

// CustomMessage is the payload of a MessageCustom.
type CustomMessage struct {
	Tag     string `json:"tag"`
	Payload string `json:"payload"`
}

// Message is posted between windows. Payloads are plain values so the
// receiving window can read them without synchronization.
type Message struct {
	From   WindowID
	To     WindowID
	Kind   MessageKind
	Close  *CloseMessage
	Custom *CustomMessage
}

// NewCloseMessage builds a Close(index) message.
func NewCloseMessage(from, to WindowID, index int) Message {
	return Message{From: from, To: to, Kind: MessageClose, Close: &CloseMessage{Index: index}}
}

// NewCustomMessage builds a Custom(tag, payload) message.
func NewCustomMessage(from, to WindowID, tag, payload string) Message {
	return Message{From: from, To: to, Kind: MessageCustom, Custom: &CustomMessage{Tag: tag, Payload: payload}}
}
