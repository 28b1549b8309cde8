package score

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// beatmapSchema is the CUE schema a YAML beatmap document must satisfy.
// Schema violations are reported before the document is decoded into a
// BeatMap, so loader errors stay about structure, not shape.
const beatmapSchema = `
#BeatMap: {
	bpm:              number & >0
	seconds_per_slot: number & >0
	tracks: {
		[string]: [...(0 | 1)] & [_, ...]
	}
}
`

// ValidateDocument checks a YAML beatmap document against the CUE schema.
// The filename is used only for error positions. Returns all schema
// violations found; an empty slice means the document conforms.
func ValidateDocument(filename string, data []byte) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(beatmapSchema)
	if err := schema.Err(); err != nil {
		// The schema is a compile-time constant; failing to compile it is
		// a programming error, surfaced like any other violation.
		return cueErrors(err)
	}
	schema = schema.LookupPath(cue.ParsePath("#BeatMap"))

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return cueErrors(err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return cueErrors(err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueErrors(err)
	}
	return nil
}

// cueErrors converts a CUE error (possibly a list) into ValidationErrors.
func cueErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		field := ""
		if path := e.Path(); len(path) > 0 {
			field = path[len(path)-1]
		}
		out = append(out, ValidationError{
			Field:   field,
			Message: e.Error(),
			Code:    ErrSchemaViolation,
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{
			Field:   "document",
			Message: err.Error(),
			Code:    ErrSchemaViolation,
		})
	}
	return out
}
