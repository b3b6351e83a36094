// Package codec serializes tab records and drag payloads for transfer
// across window boundaries.
package codec

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"pkt.systems/tabtear/schema"
)

// Serialize encodes a record for transfer across a window boundary.
func Serialize(record schema.TabRecord) (string, error) {
	if !utf8.ValidString(record.Title) || !utf8.ValidString(record.Content) {
		return "", fmt.Errorf("%w: record is not valid utf-8", schema.ErrInvalidPayload)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Deserialize decodes a serialized record. A JSON null is rejected.
func Deserialize(value string) (schema.TabRecord, error) {
	var record *schema.TabRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return schema.TabRecord{}, fmt.Errorf("%w: %v", schema.ErrInvalidPayload, err)
	}
	if record == nil {
		return schema.TabRecord{}, fmt.Errorf("%w: null record", schema.ErrInvalidPayload)
	}
	return *record, nil
}

// EncodeEnvelope writes env into the drag payload under the tab keys.
func EncodeEnvelope(env schema.TransferEnvelope, pkg schema.DataPackage) error {
	if pkg == nil {
		return fmt.Errorf("%w: nil data package", schema.ErrInvalidPayload)
	}
	data, err := Serialize(env.Record)
	if err != nil {
		return err
	}
	pkg[schema.DataIdentifier] = data
	pkg[schema.DataIndex] = env.OriginIndex
	pkg[schema.DataWindow] = env.OriginWindowID
	return nil
}

// DecodeEnvelope reads an envelope from a drag payload. Any missing or
// mistyped key is reported as schema.ErrInvalidPayload.
func DecodeEnvelope(pkg schema.DataPackage) (schema.TransferEnvelope, error) {
	raw, ok := pkg[schema.DataIdentifier]
	if !ok {
		return schema.TransferEnvelope{}, fmt.Errorf("%w: missing %s", schema.ErrInvalidPayload, schema.DataIdentifier)
	}
	data, ok := raw.(string)
	if !ok {
		return schema.TransferEnvelope{}, fmt.Errorf("%w: %s is %T, not string", schema.ErrInvalidPayload, schema.DataIdentifier, raw)
	}
	record, err := Deserialize(data)
	if err != nil {
		return schema.TransferEnvelope{}, err
	}
	index, ok := asInt(pkg[schema.DataIndex])
	if !ok {
		return schema.TransferEnvelope{}, fmt.Errorf("%w: missing %s", schema.ErrInvalidPayload, schema.DataIndex)
	}
	window, ok := asInt(pkg[schema.DataWindow])
	if !ok || !schema.WindowID(window).Valid() {
		return schema.TransferEnvelope{}, fmt.Errorf("%w: missing %s", schema.ErrInvalidPayload, schema.DataWindow)
	}
	return schema.TransferEnvelope{
		Record:         record,
		OriginWindowID: schema.WindowID(window),
		OriginIndex:    index,
	}, nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case schema.WindowID:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
