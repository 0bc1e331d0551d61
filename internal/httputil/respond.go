// Package httputil holds the JSON request/response helpers shared by HTTP
// handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodySize bounds request bodies to 1 MiB.
const maxBodySize = 1 << 20

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a bounded JSON body into dst. Unknown keys are
// accepted; schema layers decide what to ignore.
func DecodeJSON(r io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
