package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"peerprep/interview/internal/models"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

type interviewerTemplate struct {
	BasePrompt             string                          `yaml:"base_prompt"`
	TranscriptInstructions string                          `yaml:"transcript_instructions"`
	LevelGuidance          string                          `yaml:"level_guidance"`
	TypeLabels             map[models.InterviewType]string `yaml:"type_labels"`
	Personas               map[models.InterviewType]string `yaml:"personas"`
}

type questionBank struct {
	// interview type -> skill band -> question
	Questions map[models.InterviewType]map[string]string `yaml:"questions"`
}

type evaluationTemplate struct {
	Prompt string `yaml:"prompt"`
}

// InterviewPrompt is what a live interview is configured with.
type InterviewPrompt struct {
	SystemPrompt    string
	InitialQuestion string
}

type PromptManager struct {
	interviewer interviewerTemplate
	questions   questionBank
	evaluation  evaluationTemplate
	loaded      []string
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// BuildInterviewPrompt assembles the interviewer system prompt and picks the
// opening question for the type and skill band.
func (pm *PromptManager) BuildInterviewPrompt(interviewType models.InterviewType, skillLevel, numQuestions int) (*InterviewPrompt, error) {
	persona, exists := pm.interviewer.Personas[interviewType]
	if !exists {
		return nil, fmt.Errorf("template not found for interview type: %s", interviewType)
	}

	band := models.SkillBand(skillLevel)
	question, exists := pm.questions.Questions[interviewType][band]
	if !exists {
		return nil, fmt.Errorf("no initial question for type '%s' and band '%s'", interviewType, band)
	}

	var sb strings.Builder
	sb.WriteString(pm.interviewer.BasePrompt)
	sb.WriteString("\n")
	sb.WriteString(persona)
	sb.WriteString("\n")
	sb.WriteString(pm.interviewer.LevelGuidance)
	sb.WriteString("\n")
	sb.WriteString(pm.interviewer.TranscriptInstructions)

	result := strings.ReplaceAll(sb.String(), "{{.SkillLevel}}", strconv.Itoa(skillLevel))
	result = strings.ReplaceAll(result, "{{.Band}}", band)
	result = strings.ReplaceAll(result, "{{.NumQuestions}}", strconv.Itoa(numQuestions))

	return &InterviewPrompt{
		SystemPrompt:    result,
		InitialQuestion: question,
	}, nil
}

// BuildEvaluationPrompt embeds a markdown transcript in the evaluation prompt.
// A skill level of zero is reported as unspecified.
func (pm *PromptManager) BuildEvaluationPrompt(interviewType models.InterviewType, skillLevel int, transcript string) (string, error) {
	if pm.evaluation.Prompt == "" {
		return "", fmt.Errorf("evaluation template not loaded")
	}

	level := "unspecified level"
	if skillLevel > 0 {
		level = fmt.Sprintf("%d/10", skillLevel)
	}

	result := strings.ReplaceAll(pm.evaluation.Prompt, "{{.InterviewType}}", pm.TypeLabel(interviewType))
	result = strings.ReplaceAll(result, "{{.SkillLevel}}", level)
	result = strings.ReplaceAll(result, "{{.Transcript}}", transcript)

	return result, nil
}

// TypeLabel is the human-readable interview type, "General Technical" when unknown.
func (pm *PromptManager) TypeLabel(interviewType models.InterviewType) string {
	if label, ok := pm.interviewer.TypeLabels[interviewType]; ok {
		return label
	}
	return "General Technical"
}

// returns the names of the loaded template files
func (pm *PromptManager) GetTemplates() []string {
	out := make([]string, len(pm.loaded))
	copy(out, pm.loaded)
	return out
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	targets := map[string]any{
		"interviewer": &pm.interviewer,
		"questions":   &pm.questions,
		"evaluation":  &pm.evaluation,
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		target, known := targets[name]
		if !known {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}
		if err := yaml.Unmarshal(data, target); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}
		pm.loaded = append(pm.loaded, name)
	}

	for name := range targets {
		if !contains(pm.loaded, name) {
			return fmt.Errorf("missing template file %s.yaml", name)
		}
	}
	sort.Strings(pm.loaded)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
