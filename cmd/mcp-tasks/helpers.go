package main

import "strconv"

// parseTaskID parses a positional task-id argument, exiting the process on
// a malformed value.
func parseTaskID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatalErrorRespectJSON("invalid task id %q", s)
	}
	return id
}
