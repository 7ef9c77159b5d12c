package odin

import (
	"encoding/json"

	"forseti-scan/internal/domain"
)

// listingEnvelope covers the shapes the listing endpoint has been observed to
// return: {"data":[...]}, {"tokens":[...]}, a bare array, or a single object.
type listingEnvelope struct {
	Data   []*domain.RawToken `json:"data"`
	Tokens []*domain.RawToken `json:"tokens"`
}

// decodeListing coerces any of the known listing shapes into a token slice.
// An unrecognized shape decodes to an empty list rather than an error.
func decodeListing(body []byte) ([]*domain.RawToken, error) {
	var env listingEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Data) > 0 {
			return env.Data, nil
		}
		if len(env.Tokens) > 0 {
			return env.Tokens, nil
		}
	}

	var list []*domain.RawToken
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var single domain.RawToken
	if err := json.Unmarshal(body, &single); err == nil && single.ID != "" {
		return []*domain.RawToken{&single}, nil
	}

	return nil, nil
}
