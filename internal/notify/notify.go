package notify

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"
)

type Notifier interface {
	RecordingStarted()
	Processing()
	PostProcessing()
	Completed(text string)
	NoSpeech()
	Failed(reason string)
	Cancelled()
	Ignored(reason string)
	Advisory(detail string)
	ConfigReloaded()
}

// New returns the notifier for the configured type: "desktop", "log" or
// "none". Unknown types fall back to log.
func New(kind string, messages map[MessageType]Message) Notifier {
	if messages == nil {
		messages = DefaultMessages()
	}
	switch kind {
	case "desktop":
		return &Desktop{base: base{messages: messages, send: desktopSend}}
	case "none":
		return Nop{}
	default:
		return &Log{base: base{messages: messages, send: logSend}}
	}
}

// previewLen bounds how much dictated text ends up in a notification body.
const previewLen = 80

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= previewLen {
		return text
	}
	return string(r[:previewLen-1]) + "…"
}

type base struct {
	mu       sync.Mutex
	messages map[MessageType]Message
	send     func(Message)
}

func (b *base) emit(mt MessageType, detail string) {
	b.mu.Lock()
	msg, ok := b.messages[mt]
	b.mu.Unlock()
	if !ok {
		return
	}
	if detail != "" {
		msg.Body = fmt.Sprintf("%s: %s", msg.Body, detail)
	}
	b.send(msg)
}

// SetMessages swaps the message table, e.g. after a config reload.
func (b *base) SetMessages(messages map[MessageType]Message) {
	b.mu.Lock()
	b.messages = messages
	b.mu.Unlock()
}

func (b *base) RecordingStarted()      { b.emit(MsgRecordingStarted, "") }
func (b *base) Processing()            { b.emit(MsgProcessing, "") }
func (b *base) PostProcessing()        { b.emit(MsgPostProcessing, "") }
func (b *base) Completed(text string)  { b.emit(MsgCompleted, preview(text)) }
func (b *base) NoSpeech()              { b.emit(MsgNoSpeech, "") }
func (b *base) Failed(reason string)   { b.emit(MsgFailed, reason) }
func (b *base) Cancelled()             { b.emit(MsgCancelled, "") }
func (b *base) Ignored(reason string)  { b.emit(MsgIgnored, reason) }
func (b *base) Advisory(detail string) { b.emit(MsgAdvisory, detail) }
func (b *base) ConfigReloaded()        { b.emit(MsgConfigReloaded, "") }

// Desktop shows notifications through the desktop notification daemon.
type Desktop struct{ base }

func desktopSend(msg Message) {
	var err error
	if msg.IsError {
		err = beeep.Alert(msg.Title, msg.Body, "")
	} else {
		err = beeep.Notify(msg.Title, msg.Body, "")
	}
	if err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the standard logger.
type Log struct{ base }

func logSend(msg Message) {
	log.Printf("%s: %s", msg.Title, msg.Body)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted() {}
func (Nop) Processing()       {}
func (Nop) PostProcessing()   {}
func (Nop) Completed(string)  {}
func (Nop) NoSpeech()         {}
func (Nop) Failed(string)     {}
func (Nop) Cancelled()        {}
func (Nop) Ignored(string)    {}
func (Nop) Advisory(string)   {}
func (Nop) ConfigReloaded()   {}

// Swappable forwards to a notifier that can be replaced at runtime, so
// holders such as FallbackTracker survive a config reload.
type Swappable struct {
	mu sync.RWMutex
	n  Notifier
}

func NewSwappable(n Notifier) *Swappable {
	s := &Swappable{}
	s.Set(n)
	return s
}

func (s *Swappable) Set(n Notifier) {
	if n == nil {
		n = Nop{}
	}
	s.mu.Lock()
	s.n = n
	s.mu.Unlock()
}

func (s *Swappable) current() Notifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

func (s *Swappable) RecordingStarted()      { s.current().RecordingStarted() }
func (s *Swappable) Processing()            { s.current().Processing() }
func (s *Swappable) PostProcessing()        { s.current().PostProcessing() }
func (s *Swappable) Completed(text string)  { s.current().Completed(text) }
func (s *Swappable) NoSpeech()              { s.current().NoSpeech() }
func (s *Swappable) Failed(reason string)   { s.current().Failed(reason) }
func (s *Swappable) Cancelled()             { s.current().Cancelled() }
func (s *Swappable) Ignored(reason string)  { s.current().Ignored(reason) }
func (s *Swappable) Advisory(detail string) { s.current().Advisory(detail) }
func (s *Swappable) ConfigReloaded()        { s.current().ConfigReloaded() }
