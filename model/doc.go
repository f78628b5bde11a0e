// Package model defines the provider‑agnostic abstraction for the LLM
// backends used by the coordination engine.
//
// Core goals:
//   - Keep the single-turn Request/Response shape minimal and transport independent
//   - Normalize tool definitions so prompts can advertise available tools
//   - Facilitate lightweight scripting for tests (MockCompleter)
//
// Providers (OpenAI and OpenAI-compatible endpoints such as Ollama,
// Anthropic) implement Completer in sub-packages so higher layers stay
// decoupled from vendor SDKs.
package model
