// Package ops implements the operation surface (C9): the named,
// stable-contract operations (add/update/select/complete/delete/reopen/
// work-on/execution-state) that the MCP transport and CLI adapters call
// into (spec §4.9, §6). Mutating operations run through the sync engine
// (C6); read operations skip the lock.
package ops

import (
	"encoding/json"
	"fmt"
)

// Chunk is one piece of a Response's content (spec §4.9 "a list of
// content chunks (text and/or JSON)").
type Chunk struct {
	Text string
	JSON interface{}
}

// Response is what every operation returns (spec §4.9).
type Response struct {
	Chunks  []Chunk
	IsError bool
}

// TextChunk returns a Chunk carrying only human-readable text.
func TextChunk(text string) Chunk { return Chunk{Text: text} }

// JSONChunk returns a Chunk carrying a JSON-serializable payload.
func JSONChunk(v interface{}) Chunk { return Chunk{JSON: v} }

// Text builds a successful Response out of a single text chunk.
func Text(format string, args ...interface{}) Response {
	return Response{Chunks: []Chunk{TextChunk(fmt.Sprintf(format, args...))}}
}

// WithJSON appends a JSON chunk to r and returns it.
func (r Response) WithJSON(v interface{}) Response {
	r.Chunks = append(r.Chunks, JSONChunk(v))
	return r
}

// WithText appends a text chunk to r and returns it.
func (r Response) WithText(format string, args ...interface{}) Response {
	r.Chunks = append(r.Chunks, TextChunk(fmt.Sprintf(format, args...)))
	return r
}

// ErrorResponse converts err into an isError=true Response, unwrapping a
// structured *Error when possible so the message is specific rather than
// a generic wrapper string.
func ErrorResponse(err error) Response {
	return Response{
		Chunks:  []Chunk{TextChunk(err.Error())},
		IsError: true,
	}
}

// MarshalChunksJSON is a convenience for adapters (the MCP transport, the
// CLI) that need the chunk list as JSON text.
func MarshalChunksJSON(chunks []Chunk) ([]byte, error) {
	return json.Marshal(chunks)
}
