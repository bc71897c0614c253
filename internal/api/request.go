package api

import (
	"encoding/json"
	"net/http"
)

// decodeJSON decodes r's body into v, rejecting unknown fields so typos in a
// caller's request surface as a 400 instead of being silently ignored.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("MALFORMED_JSON", "request body is not valid JSON: "+err.Error())
	}
	return nil
}
