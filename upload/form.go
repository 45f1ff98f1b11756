package upload

import (
	"maps"
	"mime/multipart"
	"slices"

	"github.com/yourusername/serverrequest/params"
)

// FromMultipartForm builds an uploaded-files tree from a form the caller
// has already parsed.
//
// Field names use bracket syntax to build nested groups:
//
//	avatar        -> {"avatar": File}
//	docs[]        -> {"docs": [File, File]}
//	docs[a][b]    -> {"docs": {"a": {"b": File}}}
//
// A plain name carrying several files becomes a list.
func FromMultipartForm(form *multipart.Form) map[string]any {
	tree := make(map[string]any)
	if form == nil {
		return tree
	}

	for _, name := range slices.Sorted(maps.Keys(form.File)) {
		headers := form.File[name]
		path := params.Split(name)

		if len(path) == 1 && len(headers) > 1 {
			list := make([]any, 0, len(headers))
			for _, fh := range headers {
				list = append(list, FromFileHeader(fh))
			}
			tree[name] = list
			continue
		}

		for _, fh := range headers {
			params.Set(tree, path, FromFileHeader(fh))
		}
	}
	return tree
}
