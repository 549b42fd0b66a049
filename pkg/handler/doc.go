// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a request struct filled by binders from
// pkg/binder and returns a Response. Wrap turns it into an
// http.HandlerFunc; binding failures become 400 responses and every other
// failure is routed to the ErrorHandler.
//
// Responses use a single JSON envelope:
//
//	{"success": true, "data": {...}}
//	{"success": false, "error": {"code": "not_found", "message": "Not Found"}}
package handler
