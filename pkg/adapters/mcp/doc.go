// Package mcp exposes the engine as a Model Context Protocol server, over
// stdio or SSE, with tools to run objectives and inspect archived runs.
package mcp
