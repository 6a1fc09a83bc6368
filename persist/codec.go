package persist

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

// Codec converts values to and from the textual records a backend stores.
type Codec[T any] interface {
	Encode(v T) (string, error)
	Decode(s string) (T, error)
}

type jsonCodec[T any] struct{}

// JSON encodes values with encoding/json. It is the default codec.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

func (jsonCodec[T]) Encode(v T) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func (jsonCodec[T]) Decode(s string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

type yamlCodec[T any] struct{}

// YAML encodes values as YAML documents.
func YAML[T any]() Codec[T] {
	return yamlCodec[T]{}
}

func (yamlCodec[T]) Encode(v T) (string, error) {
	b, err := yaml.Marshal(v)
	return string(b), err
}

func (yamlCodec[T]) Decode(s string) (T, error) {
	var v T
	err := yaml.Unmarshal([]byte(s), &v)
	return v, err
}

type protoJSONCodec[T proto.Message] struct {
	newFn func() T
}

// ProtoJSON encodes protobuf messages in their canonical JSON mapping.
// newFn returns an empty message to decode into.
func ProtoJSON[T proto.Message](newFn func() T) Codec[T] {
	return protoJSONCodec[T]{newFn: newFn}
}

func (c protoJSONCodec[T]) Encode(v T) (string, error) {
	b, err := protojson.Marshal(v)
	return string(b), err
}

func (c protoJSONCodec[T]) Decode(s string) (T, error) {
	v := c.newFn()
	err := protojson.Unmarshal([]byte(s), v)
	return v, err
}
