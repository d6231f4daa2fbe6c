package graceful

import (
	"fmt"
)

// PaginationParams declares page_size and page. Override either by
// redeclaring it in a registry that extends this one.
func PaginationParams() *Registry[Param] {
	return Params(
		DeclareParam("page_size", NewIntParam(
			"Specifies number of result entries in single response",
			WithDefault("10"),
		)),
		DeclareParam("page", NewIntParam(`
			Specifies number of results page for response.
			Page count starts from 0
		`, WithDefault("0"))),
	)
}

// AddPaginationMeta stores page_size, page, prev and next in meta. prev is
// nil on the first page; next is nil when meta["has_more"] is false.
func AddPaginationMeta(params, meta map[string]any) {
	size, _ := params["page_size"].(int)
	page, _ := params["page"].(int)

	meta["page_size"] = size
	meta["page"] = page

	meta["prev"] = nil
	if page > 0 {
		meta["prev"] = fmt.Sprintf("page=%d&page_size=%d", page-1, size)
	}

	meta["next"] = nil
	if more, ok := meta["has_more"].(bool); !ok || more {
		meta["next"] = fmt.Sprintf("page=%d&page_size=%d", page+1, size)
	}
}
