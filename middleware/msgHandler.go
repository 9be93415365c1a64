package middleware

import (
	"encoding/json"

	"collabroom/config"
)

func DecodeEnvelope(msg []byte) (*config.Envelope, error) {
	var env config.Envelope

	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, err
	}

	return &env, nil
}

func EncodeMsg(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
