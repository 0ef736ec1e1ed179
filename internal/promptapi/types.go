package promptapi

import "strings"

// GenerationRequest is the payload for POST /prompts/generate.
type GenerationRequest struct {
	InputText     string   `json:"inputText"`
	SelectedTones []string `json:"selectedTones"`
	IsVoiceInput  bool     `json:"isVoiceInput"`
}

// GenerationResponse is the structured result returned by the service.
type GenerationResponse struct {
	GeneratedPrompt  string   `json:"generatedPrompt"`
	ContentType      string   `json:"contentType"`
	TonesApplied     bool     `json:"tonesApplied"`
	AppliedTones     []string `json:"appliedTones,omitempty"`
	ProcessingTimeMs float64  `json:"processingTimeMs"`
}

// NewGenerationRequest builds a request verbatim from user input. The text is
// not trimmed: validation looks at the trimmed form but the service receives
// whatever was typed or dictated.
func NewGenerationRequest(inputText string, selectedTones []string, isVoiceInput bool) GenerationRequest {
	tones := make([]string, len(selectedTones))
	copy(tones, selectedTones)
	return GenerationRequest{
		InputText:     inputText,
		SelectedTones: tones,
		IsVoiceInput:  isVoiceInput,
	}
}

func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.InputText) == "" {
		return &ValidationError{Field: "inputText", Reason: "input text is empty"}
	}
	return nil
}
