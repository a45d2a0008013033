package store

import (
	"errors"
	"testing"

	"driftgate/internal/schema"

	"github.com/google/go-cmp/cmp"
)

func codecSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Field{
		{Name: "age", Kind: schema.KindNumeric},
		{Name: "fare", Kind: schema.KindNumeric},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

func TestCodec_RoundTrip(t *testing.T) {
	c := codec{schema: codecSchema(t)}
	want := map[string]float64{"age": 29, "fare": 7.25}

	data, err := c.encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
}

func TestCodec_Decode_Rejects(t *testing.T) {
	c := codec{schema: codecSchema(t)}
	tests := []struct {
		name string
		data string
	}{
		{"unknown envelope version", `{"v":2,"features":{"age":29,"fare":7.25}}`},
		{"missing schema feature", `{"v":1,"features":{"age":29}}`},
		{"undeclared feature", `{"v":1,"features":{"age":29,"fare":7.25,"cabin":1}}`},
		{"unknown envelope field", `{"v":1,"features":{"age":29,"fare":7.25},"extra":true}`},
		{"not json", `age=29`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.decode([]byte(tt.data)); !errors.Is(err, ErrCodec) {
				t.Errorf("decode = %v, want ErrCodec", err)
			}
		})
	}
}

// A payload written before a schema gained a feature must fail loudly on
// read, not silently default the new feature.
func TestCodec_SchemaEvolutionDetected(t *testing.T) {
	old := codec{schema: codecSchema(t)}
	data, err := old.encode(map[string]float64{"age": 29, "fare": 7.25})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	grown, err := schema.New([]schema.Field{
		{Name: "age", Kind: schema.KindNumeric},
		{Name: "fare", Kind: schema.KindNumeric},
		{Name: "deck", Kind: schema.KindNumeric},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	if _, err := (codec{schema: grown}).decode(data); !errors.Is(err, ErrCodec) {
		t.Errorf("decode with grown schema = %v, want ErrCodec", err)
	}
}

func TestKeyFormat(t *testing.T) {
	if got := Key("p1"); got != "entity:p1:features" {
		t.Errorf("Key = %q", got)
	}
	if got := IDFromKey("entity:p1:features"); got != "p1" {
		t.Errorf("IDFromKey = %q", got)
	}
	if got := IDFromKey("session:p1:features"); got != "" {
		t.Errorf("IDFromKey on foreign key = %q, want empty", got)
	}
}
