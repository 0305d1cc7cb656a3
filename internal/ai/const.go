package ai

const (
	Free = "🆓"

	TextModality   = "💬"
	ImageModality  = "🖼️"
	VisionModality = "👁️"
	AudioModality  = "🎵"

	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

var SupportedRoles = []string{
	RoleSystem,
	RoleUser,
	RoleAssistant,
}

// CapabilityEmoji is used by the lineup displays in /start and /model.
func CapabilityEmoji(c Capability) string {
	switch c {
	case TextGeneration:
		return TextModality
	case ImageGeneration:
		return ImageModality
	case ImageAnalysis:
		return VisionModality
	case AudioTranscription:
		return AudioModality
	}
	return "❓"
}
