package live

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"peerprep/interview/internal/models"
)

// Gemini Live (BidiGenerateContent) wire frames.

type clientMessage struct {
	Setup         *setupMessage      `json:"setup,omitempty"`
	ClientContent *clientContent     `json:"clientContent,omitempty"`
	RealtimeInput *realtimeInput     `json:"realtimeInput,omitempty"`
	ToolResponse  *toolResponseFrame `json:"toolResponse,omitempty"`
}

type setupMessage struct {
	Model                    string                `json:"model"`
	GenerationConfig         *wireGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *wireContent          `json:"systemInstruction,omitempty"`
	Tools                    []wireTool            `json:"tools,omitempty"`
	InputAudioTranscription  *struct{}             `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}             `json:"outputAudioTranscription,omitempty"`
}

type wireGenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
	Temperature        *float32      `json:"temperature,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type wireTool struct {
	FunctionDeclarations []models.FunctionDeclaration `json:"functionDeclarations"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *wireBlob `json:"inlineData,omitempty"`
}

// Data is base64 encoded on the wire.
type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientContent struct {
	Turns        []wireContent `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type realtimeInput struct {
	Audio *wireBlob `json:"audio,omitempty"`
}

type toolResponseFrame struct {
	FunctionResponses []models.ToolResponse `json:"functionResponses"`
}

type serverMessage struct {
	SetupComplete        *struct{}         `json:"setupComplete,omitempty"`
	ServerContent        *serverContent    `json:"serverContent,omitempty"`
	ToolCall             *serverToolCall   `json:"toolCall,omitempty"`
	ToolCallCancellation *serverToolCancel `json:"toolCallCancellation,omitempty"`
	GoAway               *serverGoAway     `json:"goAway,omitempty"`
}

type serverContent struct {
	ModelTurn           *wireContent       `json:"modelTurn,omitempty"`
	TurnComplete        bool               `json:"turnComplete,omitempty"`
	Interrupted         bool               `json:"interrupted,omitempty"`
	InputTranscription  *wireTranscription `json:"inputTranscription,omitempty"`
	OutputTranscription *wireTranscription `json:"outputTranscription,omitempty"`
}

type wireTranscription struct {
	Text string `json:"text"`
}

type serverToolCall struct {
	FunctionCalls []models.ToolCall `json:"functionCalls"`
}

type serverToolCancel struct {
	IDs []string `json:"ids"`
}

type serverGoAway struct {
	TimeLeft string `json:"timeLeft"`
}

func buildSetup(cfg models.LiveConfig) clientMessage {
	setup := &setupMessage{Model: cfg.Model}

	gc := cfg.GenerationConfig
	if len(gc.ResponseModalities) > 0 || gc.VoiceName != "" || gc.Temperature != nil {
		wgc := &wireGenerationConfig{
			ResponseModalities: gc.ResponseModalities,
			Temperature:        gc.Temperature,
		}
		if gc.VoiceName != "" {
			wgc.SpeechConfig = &speechConfig{VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: gc.VoiceName},
			}}
		}
		setup.GenerationConfig = wgc
	}
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &wireContent{Parts: []wirePart{{Text: cfg.SystemInstruction}}}
	}
	if len(cfg.Tools) > 0 {
		setup.Tools = []wireTool{{FunctionDeclarations: cfg.Tools}}
	}
	if cfg.InputAudioTranscription {
		setup.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputAudioTranscription {
		setup.OutputAudioTranscription = &struct{}{}
	}
	return clientMessage{Setup: setup}
}

func toWireParts(parts []Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		wp := wirePart{Text: p.Text}
		if p.InlineData != nil {
			wp.InlineData = &wireBlob{
				MIMEType: p.InlineData.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
			}
		}
		out = append(out, wp)
	}
	return out
}

// decodeServerFrame converts one server frame into events. Within a content
// frame the order is interrupted, input transcription, output transcription,
// model turn, turn complete, so a turn boundary always follows its text.
// Undecodable inline parts are skipped: the remaining events are returned
// together with an error describing what was dropped.
func decodeServerFrame(data []byte) ([]Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}

	var events []Event
	var partErrs []error
	if msg.SetupComplete != nil {
		events = append(events, SetupComplete{})
	}
	if msg.ToolCall != nil {
		events = append(events, ToolCall{Calls: msg.ToolCall.FunctionCalls})
	}
	if msg.ToolCallCancellation != nil {
		events = append(events, ToolCallCancellation{IDs: msg.ToolCallCancellation.IDs})
	}
	if msg.GoAway != nil {
		events = append(events, GoAway{TimeLeft: msg.GoAway.TimeLeft})
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted {
			events = append(events, Interrupted{})
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			events = append(events, InputTranscription{Text: sc.InputTranscription.Text})
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			events = append(events, OutputTranscription{Text: sc.OutputTranscription.Text})
		}
		if sc.ModelTurn != nil {
			turnEvents, errs := decodeModelTurn(sc.ModelTurn)
			events = append(events, turnEvents...)
			partErrs = errs
		}
		if sc.TurnComplete {
			events = append(events, TurnComplete{})
		}
	}

	return events, errors.Join(partErrs...)
}

func decodeModelTurn(turn *wireContent) ([]Event, []error) {
	var events []Event
	var errs []error
	var rest []Part
	for i, p := range turn.Parts {
		if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
			pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				errs = append(errs, fmt.Errorf("decode audio part %d: %w", i, err))
				continue
			}
			events = append(events, AudioChunk{MIMEType: p.InlineData.MIMEType, Data: pcm})
			continue
		}

		part := Part{Text: p.Text}
		if p.InlineData != nil {
			raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				errs = append(errs, fmt.Errorf("decode inline part %d: %w", i, err))
				continue
			}
			part.InlineData = &Blob{MIMEType: p.InlineData.MIMEType, Data: raw}
		}
		rest = append(rest, part)
	}
	if len(rest) > 0 {
		events = append(events, ModelTurnFragment{Parts: rest})
	}
	return events, errs
}
