package live

import (
	"time"

	"peerprep/interview/internal/models"
)

// EventKind names one channel of the client's event stream.
type EventKind string

const (
	EventOpen                 EventKind = "open"
	EventClose                EventKind = "close"
	EventError                EventKind = "error"
	EventLog                  EventKind = "log"
	EventSetupComplete        EventKind = "setupcomplete"
	EventContent              EventKind = "content"
	EventAudio                EventKind = "audio"
	EventOutputTranscription  EventKind = "outputtranscription"
	EventInputTranscription   EventKind = "inputtranscription"
	EventInterrupted          EventKind = "interrupted"
	EventTurnComplete         EventKind = "turncomplete"
	EventToolCall             EventKind = "toolcall"
	EventToolCallCancellation EventKind = "toolcallcancellation"
	EventGoAway               EventKind = "goaway"
)

// Event is implemented by every variant the client emits. Server frames are
// decoded into these once, at the transport boundary.
type Event interface {
	Kind() EventKind
}

type Open struct{}

type Close struct {
	Code   int
	Reason string
}

type Error struct {
	Err error
}

type Log struct {
	Time    time.Time
	Type    string
	Message string
}

type SetupComplete struct{}

// ModelTurnFragment carries the non-audio parts of a streamed model turn.
type ModelTurnFragment struct {
	Parts []Part
}

// Text concatenates the fragment's text parts.
func (f ModelTurnFragment) Text() string {
	var out string
	for _, p := range f.Parts {
		out += p.Text
	}
	return out
}

type AudioChunk struct {
	MIMEType string
	Data     []byte
}

type OutputTranscription struct {
	Text string
}

type InputTranscription struct {
	Text string
}

type Interrupted struct{}

type TurnComplete struct{}

type ToolCall struct {
	Calls []models.ToolCall
}

type ToolCallCancellation struct {
	IDs []string
}

// GoAway warns that the server will close the connection soon.
type GoAway struct {
	TimeLeft string
}

func (Open) Kind() EventKind                 { return EventOpen }
func (Close) Kind() EventKind                { return EventClose }
func (Error) Kind() EventKind                { return EventError }
func (Log) Kind() EventKind                  { return EventLog }
func (SetupComplete) Kind() EventKind        { return EventSetupComplete }
func (ModelTurnFragment) Kind() EventKind    { return EventContent }
func (AudioChunk) Kind() EventKind           { return EventAudio }
func (OutputTranscription) Kind() EventKind  { return EventOutputTranscription }
func (InputTranscription) Kind() EventKind   { return EventInputTranscription }
func (Interrupted) Kind() EventKind          { return EventInterrupted }
func (TurnComplete) Kind() EventKind         { return EventTurnComplete }
func (ToolCall) Kind() EventKind             { return EventToolCall }
func (ToolCallCancellation) Kind() EventKind { return EventToolCallCancellation }
func (GoAway) Kind() EventKind               { return EventGoAway }

// Part is one piece of content exchanged with the model.
type Part struct {
	Text       string
	InlineData *Blob
}

type Blob struct {
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}
