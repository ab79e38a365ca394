// Package gemini implements the content generator on top of Google's
// Gemini API. It turns a flattened lecture script into structured
// paragraphs with keyword and visual suggestions.
package gemini
