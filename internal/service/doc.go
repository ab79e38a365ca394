// Package service implements the media-processing pipeline: fetching input
// artifacts, transcription, LLM paragraph/visual generation, alignment of
// generated paragraphs against the transcript timeline, and persistence of
// the finished content. The heavy lifting is delegated to external
// collaborators behind small interfaces; this package owns the orchestration
// and the alignment arithmetic.
package service
