package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/respkv/pkg/resp"
)

// JSONFormatter renders replies as JSON: bulks and simple strings become
// strings, integers numbers, nils null, arrays lists, and errors an object
// {"error": msg}.
type JSONFormatter struct{}

// Format writes v as one JSON document.
func (f *JSONFormatter) Format(w io.Writer, v resp.Value) error {
	return json.NewEncoder(w).Encode(toJSON(v))
}

func toJSON(v resp.Value) any {
	switch v.Kind() {
	case resp.KindSimpleString, resp.KindBulk:
		return v.Str()
	case resp.KindError:
		return map[string]string{"error": v.Str()}
	case resp.KindInteger:
		return v.Int()
	case resp.KindArray:
		out := make([]any, 0, v.Len())
		for _, e := range v.All() {
			out = append(out, toJSON(e))
		}
		return out
	default:
		return nil
	}
}
