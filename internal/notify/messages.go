package notify

type MessageType int

const (
	MsgRecordingStarted MessageType = iota
	MsgProcessing
	MsgPostProcessing
	MsgCompleted
	MsgNoSpeech
	MsgFailed
	MsgCancelled
	MsgIgnored
	MsgAdvisory
	MsgConfigReloaded
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef describes a message and the config key that can override it.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{Type: MsgRecordingStarted, ConfigKey: "recording_started", DefaultTitle: "Hyprdictate", DefaultBody: "Recording started"},
	{Type: MsgProcessing, ConfigKey: "processing", DefaultTitle: "Hyprdictate", DefaultBody: "Transcribing..."},
	{Type: MsgPostProcessing, ConfigKey: "post_processing", DefaultTitle: "Hyprdictate", DefaultBody: "Formatting..."},
	{Type: MsgCompleted, ConfigKey: "completed", DefaultTitle: "Hyprdictate", DefaultBody: "Copied to clipboard"},
	{Type: MsgNoSpeech, ConfigKey: "no_speech", DefaultTitle: "Hyprdictate", DefaultBody: "No speech detected"},
	{Type: MsgFailed, ConfigKey: "failed", DefaultTitle: "Hyprdictate Error", DefaultBody: "Dictation failed", IsError: true},
	{Type: MsgCancelled, ConfigKey: "cancelled", DefaultTitle: "Hyprdictate", DefaultBody: "Dictation cancelled"},
	{Type: MsgIgnored, ConfigKey: "ignored", DefaultTitle: "Hyprdictate", DefaultBody: "Still processing the previous dictation"},
	{Type: MsgAdvisory, ConfigKey: "advisory", DefaultTitle: "Hyprdictate", DefaultBody: "Formatting keeps failing; consider disabling post-processing"},
	{Type: MsgConfigReloaded, ConfigKey: "config_reloaded", DefaultTitle: "Hyprdictate", DefaultBody: "Configuration reloaded"},
}

// DefaultMessages returns every message with its default text.
func DefaultMessages() map[MessageType]Message {
	out := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		out[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return out
}
