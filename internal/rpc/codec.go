// internal/rpc/codec.go
// JSON encoding of requests and responses. Every value is wrapped in an
// envelope {"type": <Kind>, "data": <fields>}.
package rpc

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a frame that could not be turned into a value.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encode(kind Kind, data any) ([]byte, error) {
	env := envelope{Type: kind}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", kind, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// EncodeRequest returns the JSON payload for req.
func EncodeRequest(req Request) ([]byte, error) {
	switch r := req.(type) {
	case ListChannels, GetStatus, Quit:
		return encode(r.Kind(), nil)
	case GetMessages, GetUsers, Join, Part, SendMessage:
		return encode(r.Kind(), r)
	default:
		return nil, fmt.Errorf("encode: unknown request type %T", req)
	}
}

// DecodeRequest parses a JSON payload produced by EncodeRequest.
func DecodeRequest(payload []byte) (Request, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case KindListChannels:
		return ListChannels{}, nil
	case KindGetStatus:
		return GetStatus{}, nil
	case KindQuit:
		return Quit{}, nil
	case KindGetMessages:
		return decodeRequest(env, func(r GetMessages) string { return r.Channel })
	case KindGetUsers:
		return decodeRequest(env, func(r GetUsers) string { return r.Channel })
	case KindJoin:
		return decodeRequest(env, func(r Join) string { return r.Channel })
	case KindPart:
		return decodeRequest(env, func(r Part) string { return r.Channel })
	case KindSendMessage:
		return decodeRequest(env, func(r SendMessage) string { return r.Channel })
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown request type %q", env.Type)}
	}
}

// EncodeResponse returns the JSON payload for resp.
func EncodeResponse(resp Response) ([]byte, error) {
	switch r := resp.(type) {
	case Channels, Status, Messages, Users, ErrorResponse:
		return encode(r.Kind(), r)
	default:
		return nil, fmt.Errorf("encode: unknown response type %T", resp)
	}
}

// DecodeResponse parses a JSON payload produced by EncodeResponse.
func DecodeResponse(payload []byte) (Response, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case KindChannels:
		return decodeResponse[Channels](env)
	case KindStatus:
		return decodeResponse[Status](env)
	case KindMessages:
		return decodeResponse[Messages](env)
	case KindUsers:
		return decodeResponse[Users](env)
	case KindError:
		return decodeResponse[ErrorResponse](env)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown response type %q", env.Type)}
	}
}

func decodeEnvelope(payload []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return envelope{}, &DecodeError{Reason: "invalid json", Err: err}
	}
	if env.Type == "" {
		return envelope{}, &DecodeError{Reason: "missing type"}
	}
	return env, nil
}

func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 {
		return &DecodeError{Reason: fmt.Sprintf("%s: missing data", env.Type)}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &DecodeError{Reason: fmt.Sprintf("%s: invalid data", env.Type), Err: err}
	}
	return nil
}

// decodeRequest decodes a request that must name a channel.
func decodeRequest[T Request](env envelope, channel func(T) string) (Request, error) {
	var r T
	if err := decodeData(env, &r); err != nil {
		return nil, err
	}
	if channel(r) == "" {
		return nil, &DecodeError{Reason: fmt.Sprintf("%s: missing channel", env.Type)}
	}
	return r, nil
}

func decodeResponse[T Response](env envelope) (Response, error) {
	var r T
	if err := decodeData(env, &r); err != nil {
		return nil, err
	}
	return r, nil
}
