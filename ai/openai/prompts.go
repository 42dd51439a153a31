package openai

import (
	"fmt"
	"strings"

	"github.com/coverdesk/docpipe/ai"
)

const taggingResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "document_type": {
      "type": "string"
    },
    "tags": {
      "type": "array",
      "items": {
        "type": "string",
        "pattern": "^[a-z0-9]+([ -][a-z0-9]+)*$"
      },
      "maxItems": 8
    },
    "summary": {
      "type": "string",
      "maxLength": 400
    }
  },
  "required": ["document_type", "tags", "summary"],
  "additionalProperties": false
}`

const taggingPromptTemplate = `You classify insurance-agency documents. Given the extracted text of a document, return its type, a few tags, and a one-or-two sentence summary as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- document_type must match exactly one of the listed values: %s.
- Tags are lowercase, 1-3 words each, at most 8; cover line of business, carrier, and notable coverages.
- The summary states what the document is and who it concerns, nothing else.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "COMMERCIAL GENERAL LIABILITY DECLARATIONS ... Named Insured: Acme Roofing LLC ... Policy Period 01/01/2025 to 01/01/2026 ..."
Output:
{
  "document_type": "policy",
  "tags": ["general liability", "commercial", "roofing"],
  "summary": "Commercial general liability policy declarations for Acme Roofing LLC, policy period January 2025 to January 2026."
}`

// buildTaggingPrompt creates the system prompt with document types embedded.
func buildTaggingPrompt() string {
	return fmt.Sprintf(taggingPromptTemplate,
		taggingResponseSchema,
		strings.Join(ai.DocumentTypes, ", "))
}
