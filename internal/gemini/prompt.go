package gemini

import "strings"

const promptTemplate = `Create a structured summary of the following YouTube video transcript.

Use the following Markdown format:

## Main topic

[A short description of the main topic of the video]

## Key points

- First important point
- Second important point
- Third important point

## Details

[A detailed description with the important details]

### Additional subheadings

[Add subsections if needed]

## Conclusions

[The main conclusions and takeaways]

Transcript:

{{transcript}}`

// BuildPrompt interpolates transcript into the summary template.
func BuildPrompt(transcript string) string {
	return strings.Replace(promptTemplate, "{{transcript}}", transcript, 1)
}
