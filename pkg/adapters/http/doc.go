/*
Package http exposes the engine over HTTP.

POST /runs starts a run and streams its events as NDJSON on the response.
Every event is also relayed to Server-Sent Events subscribers of
GET /runs/{runID}/events, so a second client can watch a run started
elsewhere. Finished runs are served from the configured archive, and
/graph renders the workflow topology as Mermaid or JSON.
*/
package http
