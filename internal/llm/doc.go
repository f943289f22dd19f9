// Package llm defines the model backend contract used by the host when a
// guest asks for a chat completion. Guests address models by numeric id; the
// ModelTable resolves those ids to provider model names before the request
// is handed to a concrete backend such as openai or pythonbridge.
package llm
