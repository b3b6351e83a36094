package codec

import (
	"errors"
	"testing"

	"pkt.systems/tabtear/schema"
)

func TestSerializeRoundTrip(t *testing.T) {
	records := []schema.TabRecord{
		{},
		{Title: "Item 1", Content: "Lorem ipsum dolor sit amet"},
		{Title: `"quoted"`, Content: `{"title":"nested"}`},
		{Title: "TabData", Content: "TabIndex\nTabWindow\t\\"},
		{Title: "null", Content: "<b>&amp;</b>"},
		{Title: "åäö ✓", Content: "  "},
	}
	for _, record := range records {
		data, err := Serialize(record)
		if err != nil {
			t.Fatalf("serialize %+v: %v", record, err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("deserialize %q: %v", data, err)
		}
		if got != record {
			t.Fatalf("round trip mismatch: want %+v, got %+v", record, got)
		}
	}
}

func TestSerializeRejectsInvalidUTF8(t *testing.T) {
	if _, err := Serialize(schema.TabRecord{Title: "\xff"}); !errors.Is(err, schema.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestDeserializeRejectsNull(t *testing.T) {
	for _, value := range []string{"null", "", "not json", "[]"} {
		if _, err := Deserialize(value); !errors.Is(err, schema.ErrInvalidPayload) {
			t.Fatalf("%q: expected ErrInvalidPayload, got %v", value, err)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := schema.TransferEnvelope{
		Record:         schema.TabRecord{Title: "Y", Content: "why"},
		OriginWindowID: 3,
		OriginIndex:    1,
	}
	pkg := schema.DataPackage{}
	if err := EncodeEnvelope(env, pkg); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEnvelope(pkg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != env {
		t.Fatalf("envelope mismatch: want %+v, got %+v", env, got)
	}
}

func TestDecodeEnvelopeFailures(t *testing.T) {
	valid, err := Serialize(schema.TabRecord{Title: "X"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	cases := []struct {
		name string
		pkg  schema.DataPackage
	}{
		{"nil", nil},
		{"missing-identifier", schema.DataPackage{schema.DataIndex: 0, schema.DataWindow: 1}},
		{"identifier-not-string", schema.DataPackage{schema.DataIdentifier: 42, schema.DataIndex: 0, schema.DataWindow: 1}},
		{"identifier-null", schema.DataPackage{schema.DataIdentifier: "null", schema.DataIndex: 0, schema.DataWindow: 1}},
		{"missing-index", schema.DataPackage{schema.DataIdentifier: valid, schema.DataWindow: 1}},
		{"missing-window", schema.DataPackage{schema.DataIdentifier: valid, schema.DataIndex: 0}},
		{"main-alias-window", schema.DataPackage{schema.DataIdentifier: valid, schema.DataIndex: 0, schema.DataWindow: schema.MainWindow}},
		{"fractional-index", schema.DataPackage{schema.DataIdentifier: valid, schema.DataIndex: 0.5, schema.DataWindow: 1}},
	}
	for _, tc := range cases {
		if _, err := DecodeEnvelope(tc.pkg); !errors.Is(err, schema.ErrInvalidPayload) {
			t.Fatalf("%s: expected ErrInvalidPayload, got %v", tc.name, err)
		}
	}
}
