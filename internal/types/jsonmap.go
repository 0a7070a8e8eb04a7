package types

import "encoding/json"

// jsonColumn marshals a typed compound field into the string form stored in
// a JSON SQL column. Marshal failures on well-formed in-memory structs are a
// programmer error, not a runtime condition callers need to handle, so the
// helper panics rather than threading an error through every ToMap call.
func jsonColumn(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic("types: jsonColumn: " + err.Error())
	}
	return string(b)
}

// parseJSONColumn unmarshals a JSON SQL column into dst. An empty column
// value leaves dst at its zero value rather than erroring, since NULL/empty
// compound fields are common for freshly inserted rows.
func parseJSONColumn(s string, dst any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}
