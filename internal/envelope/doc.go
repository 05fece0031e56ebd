// Package envelope holds the request and response bodies that carry NullG
// queries and results: SearchFilter, PipelineFilter and ServerResponse.
//
// Request bodies are checked with queryir before anything is executed.
// Response items are turned into typed records through the resolver,
// keyed by the response's item class. Transport is out of scope; callers
// hand this package bytes or decoded trees.
package envelope
