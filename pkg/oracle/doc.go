// Package oracle holds the boundary between the workflow and the models
// behind it: strict parsing of tool-call payloads into the typed oracle
// contracts, and a retry and rate-limit Policy for any oracle.
//
// Concrete oracles live in sub-packages: scripted (deterministic fixtures)
// and openai (chat-completion models with function calling).
package oracle
