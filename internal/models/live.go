package models

// LiveConfig is the session configuration negotiated with the live model on connect.
// It can only change through a fresh handshake.
type LiveConfig struct {
	Model                    string                `json:"model"`
	GenerationConfig         GenerationConfig      `json:"generation_config"`
	SystemInstruction        string                `json:"system_instruction,omitempty"`
	Tools                    []FunctionDeclaration `json:"tools,omitempty"`
	InputAudioTranscription  bool                  `json:"input_audio_transcription"`
	OutputAudioTranscription bool                  `json:"output_audio_transcription"`
}

type GenerationConfig struct {
	ResponseModalities []string `json:"response_modalities,omitempty"`
	VoiceName          string   `json:"voice_name,omitempty"`
	Temperature        *float32 `json:"temperature,omitempty"`
}

// FunctionDeclaration describes a tool the live model may invoke.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// CandidateResponseDeclaration lets the model report what it heard the candidate say.
func CandidateResponseDeclaration() FunctionDeclaration {
	return FunctionDeclaration{
		Name:        CandidateResponseTool,
		Description: "Records the candidate's spoken answer as text in the interview transcript.",
		Parameters: map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"transcription": map[string]any{
					"type":        "STRING",
					"description": "Verbatim transcription of the candidate's answer.",
				},
			},
			"required": []string{"transcription"},
		},
	}
}

// DefaultLiveConfig is an audio-native configuration with both transcription directions enabled.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		Model: DefaultLiveModel,
		GenerationConfig: GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			VoiceName:          DefaultLiveVoice,
		},
		Tools:                    []FunctionDeclaration{CandidateResponseDeclaration()},
		InputAudioTranscription:  true,
		OutputAudioTranscription: true,
	}
}

// ToolCall is a single function invocation requested by the live model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResponse answers a ToolCall, correlated by ID.
type ToolResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}
