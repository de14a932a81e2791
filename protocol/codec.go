package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec converts messages to and from transport frames.
type Codec interface {
	Name() string
	Marshal(Message) ([]byte, error)
	Unmarshal([]byte, *Message) error
}

var (
	CBOR Codec = cborCodec{}
	JSON Codec = jsonCodec{}
)

// CodecByName returns the codec with the given name ("cbor" or "json").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CBOR.Name():
		return CBOR, nil
	case JSON.Name():
		return JSON, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	// Parameters and responses are decoded into any, so maps must come back keyed by string.
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(m Message) ([]byte, error) { return cborEnc.Marshal(m) }

func (cborCodec) Unmarshal(b []byte, m *Message) error { return cborDec.Unmarshal(b, m) }

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(m Message) ([]byte, error) { return json.Marshal(m) }

func (jsonCodec) Unmarshal(b []byte, m *Message) error { return json.Unmarshal(b, m) }
