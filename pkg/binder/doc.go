// Package binder fills typed request structs from an HTTP request.
//
// Each binder reads one source and only touches fields tagged for it:
//
//	type ListRequest struct {
//		UserID string `header:"X-User-ID"`
//		Page   int    `query:"page"`
//		Limit  int    `query:"limit"`
//	}
//
//	type ReadRequest struct {
//		UserID string `header:"X-User-ID"`
//		ID     string `path:"id"`
//	}
//
// Supported field kinds are string, signed and unsigned integers, bool,
// pointers to those (for optional values) and slices, which accept repeated
// or comma-separated values. Binding failures wrap ErrFailedToParseQuery,
// ErrFailedToParsePath or ErrFailedToParseHeader.
package binder
