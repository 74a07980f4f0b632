package bag

import (
	"encoding/json"
	"testing"
)

func TestMarshalKeepsSessionShapeAndOrder(t *testing.T) {
	b := New()
	if err := b.Add(9, 1, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Add(2, 1, "M"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Add(2, 3, "L"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Add(9, 1, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"9":2,"2":{"items_by_size":{"M":1,"L":3}}}`
	if string(raw) != want {
		t.Fatalf("unexpected json\n got: %s\nwant: %s", raw, want)
	}

	decoded := New()
	if err := json.Unmarshal(raw, decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids := decoded.ProductIDs()
	if len(ids) != 2 || ids[0] != 9 || ids[1] != 2 {
		t.Fatalf("order not preserved: %v", ids)
	}
	entry, _ := decoded.Entry(2)
	sizes := entry.Sizes()
	if sizes[0].Size != "M" || sizes[1].Size != "L" {
		t.Fatalf("size order not preserved: %+v", sizes)
	}
}

func TestUnmarshalRejectsBrokenEntries(t *testing.T) {
	cases := map[string]string{
		"zero quantity":  `{"1":0}`,
		"empty sizes":    `{"1":{"items_by_size":{}}}`,
		"negative size":  `{"1":{"items_by_size":{"M":-1}}}`,
		"bad key":        `{"abc":1}`,
		"unknown object": `{"1":{"qty":1}}`,
		"not an object":  `[1,2]`,
		"duplicate size": `{"1":{"items_by_size":{"M":1,"M":2}}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if err := json.Unmarshal([]byte(raw), New()); err == nil {
				t.Fatalf("expected %s to be rejected", raw)
			}
		})
	}
}

func TestSnapshotOfEmptyBag(t *testing.T) {
	snap, err := New().Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap != "{}" {
		t.Fatalf("unexpected snapshot %q", snap)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := New()
	_ = b.Add(1, 1, "S")
	clone := b.Clone()
	_ = clone.Add(1, 4, "S")

	entry, _ := b.Entry(1)
	if qty, _ := entry.SizeQuantity("S"); qty != 1 {
		t.Fatalf("original mutated through clone: %d", qty)
	}
}
