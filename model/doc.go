// Package model defines the provider-agnostic chat-completion abstraction
// used by the supervisor, responder and prompt rewriter.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single
//     channel-based interface
//   - Normalize OpenAI-style tool calling (tool specs, tool-role responses
//     keyed by call id) across vendors
//   - Keep adapters thin: subpackages openai and anthropic translate
//     Request/Response to the respective official SDKs
//
// Adapters are constructed once per configured model name and treated as
// read-only after initialization; they are safe for concurrent use.
package model
