package tasksync

import "encoding/json"

// jsonCodec lets the Connect client exchange plain Go structs as JSON with
// the task service instead of generated protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	return json.Unmarshal(data, message)
}
