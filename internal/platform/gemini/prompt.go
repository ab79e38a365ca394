package gemini

// defaultPromptTemplate instructs the model to split the script into
// paragraphs verbatim. The word-for-word constraint is load-bearing: the
// aligner maps each paragraph back onto the transcript timeline and rejects
// output that drifts from the source text.
const defaultPromptTemplate = `You are an educational content designer. Split the lecture script below into coherent paragraphs and enrich each one.

Rules:
1. Reproduce the script text word for word. Do not add, drop, or reorder any words. Every word of the script must appear in exactly one paragraph, in the original order.
2. For each paragraph extract 2-5 short keywords suitable for on-screen display. Classify each keyword as "main", "key_terms", "callouts", or "warnings".
3. Where a paragraph would benefit from a visual, suggest at most one: a chart (Chart.js config object), a table (array of row objects), or an image (object with "type":"image" and a "src" URL). Include a "start_sentence" field holding the first few words of the sentence the visual should appear at.
4. Respond with JSON only, no surrounding prose, matching this shape:

{
  "paragraphs": [
    {
      "paragraph_index": 0,
      "paragraph_text": "...",
      "keywords": [{"text": "...", "type": "main"}],
      "visuals": {"type": "chart", "content": {}, "start_sentence": "..."}
    }
  ]
}

Omit the "visuals" field for paragraphs without one.

Script:
{{.Script}}`

// promptData carries the values substituted into the prompt template.
type promptData struct {
	Script string
}
