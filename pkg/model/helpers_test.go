package model

import (
	"encoding/json"
	"net/http"
)

func jsonDecode(req *http.Request, v any) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}
