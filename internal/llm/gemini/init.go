package gemini

import "peerprep/interview/internal/llm"

func init() {
	llm.RegisterProvider(ProviderName, newFromEnv)
}

// newFromEnv builds the evaluation client from GEMINI_* and EVALUATION_MODEL.
// A missing key surfaces as an ErrCodeAPIKey provider error.
func newFromEnv() (llm.Provider, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Evaluation provider is not configured",
			Err:      err,
		}
	}
	return NewClient(cfg)
}
