package host

// Message is one asynchronous notification delivered by the host.
type Message struct {
	Type   uint32
	Sender string
	Data   []byte
}

// Listener receives host messages. It is called synchronously on the host's
// control thread.
type Listener func(msg Message)

// MessagingInterface is the host's inter-plugin messaging facility.
type MessagingInterface interface {
	RegisterListener(handle PluginHandle, sender string, listener Listener) bool
}
