package image

import "strings"

// DefaultNegativePrompt captures undesirable artefacts we want the model to avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted faces, extra limbs, duplicated people, text artefacts, watermark"

// BuildHugPrompt describes the composite: the adult from the second photo
// embracing their younger self from the first photo.
func BuildHugPrompt() string {
	lines := []string{
		"The first image is a childhood photo and the second image is a present-day photo of the same person.",
		"Create a single photorealistic image where the present-day person warmly hugs their childhood self.",
		"Preserve both faces, hairstyles and clothing exactly as they appear in the source photos.",
		"Use soft, natural lighting and a simple, neutral background so both figures stay in focus.",
		"Do not add any text, logos or watermarks.",
	}
	return strings.Join(lines, " ")
}
