// Package gemini provides an implementation of the generation.Generator interface
// that uses Google's Gemini API for analyzing jewelry photos and rendering
// product imagery.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the studio's domain logic to Google's external Gemini AI service.
// It translates between the application's domain models and the Gemini API
// without exposing the details of the external service to the core application.
//
// Key components:
//
// 1. GeminiGenerator:
//   - Implements the generation.Generator interface
//   - Makes exactly one API round trip per call; retries belong to the caller
//
// 2. Prompt Management:
//   - One system instruction per studio mode for the analysis call
//   - A text/template that composes the per-image instruction, including
//     variation, resolution and framing hints
//
// 3. Response Processing:
//   - Strips Markdown fences from JSON answers and maps each mode's schema
//     onto domain.Plan
//   - Extracts the first inline image part as the artifact
//
// 4. Error Handling:
//   - Classifies genai.APIError values as transient (500/503) or permanent
//   - Translates permission, safety and empty-image outcomes into
//     generation package errors
package gemini
