package dto

import "encoding/json"

// Decoder fills dst from a request payload. Handlers pass gin's
// ShouldBindJSON so services decide when the body is read.
type Decoder func(dst any) error

// Value returns a Decoder that copies v into dst through JSON, mostly for
// tests and command line tools.
func Value(v any) Decoder {
	return func(dst any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
