package bag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Kind discriminates the two entry shapes a bag can hold.
type Kind int

const (
	KindSimple Kind = iota + 1
	KindSized
)

// SizeQuantity is one size line of a sized entry.
type SizeQuantity struct {
	Size     string
	Quantity int
}

// Entry is either Simple(quantity) or Sized(size -> quantity). A stored
// entry always has a positive total quantity and sized entries always hold
// at least one size.
type Entry struct {
	kind     Kind
	quantity int
	sizes    []SizeQuantity
}

// Simple builds a plain quantity entry.
func Simple(quantity int) Entry {
	return Entry{kind: KindSimple, quantity: quantity}
}

// Sized builds a size-keyed entry. Sizes keep the order given.
func Sized(sizes ...SizeQuantity) Entry {
	return Entry{kind: KindSized, sizes: append([]SizeQuantity(nil), sizes...)}
}

func (e Entry) Kind() Kind { return e.kind }

// Quantity is the stored quantity of a simple entry; zero for sized entries.
func (e Entry) Quantity() int {
	if e.kind != KindSimple {
		return 0
	}
	return e.quantity
}

// Sizes returns a copy of the size lines in insertion order.
func (e Entry) Sizes() []SizeQuantity {
	return append([]SizeQuantity(nil), e.sizes...)
}

// SizeQuantity returns the quantity held for size.
func (e Entry) SizeQuantity(size string) (int, bool) {
	idx := e.sizeIndex(size)
	if idx < 0 {
		return 0, false
	}
	return e.sizes[idx].Quantity, true
}

// Lines returns one line per size, or a single size-less line for a simple
// entry.
func (e Entry) Lines() []SizeQuantity {
	if e.kind == KindSimple {
		return []SizeQuantity{{Quantity: e.Quantity()}}
	}
	return e.Sizes()
}

// Total is the summed quantity across the entry.
func (e Entry) Total() int {
	if e.kind == KindSimple {
		return e.quantity
	}
	total := 0
	for _, s := range e.sizes {
		total += s.Quantity
	}
	return total
}

func (e Entry) sizeIndex(size string) int {
	for i, s := range e.sizes {
		if s.Size == size {
			return i
		}
	}
	return -1
}

func (e Entry) valid() bool {
	switch e.kind {
	case KindSimple:
		return e.quantity > 0
	case KindSized:
		if len(e.sizes) == 0 {
			return false
		}
		for _, s := range e.sizes {
			if s.Quantity <= 0 || s.Size == "" {
				return false
			}
		}
		return true
	}
	return false
}

// Bag is the session-held shopping bag keyed by product id. Iteration
// follows insertion order.
type Bag struct {
	order   []int64
	entries map[int64]Entry
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{entries: map[int64]Entry{}}
}

func (b *Bag) Len() int { return len(b.order) }

func (b *Bag) IsEmpty() bool { return len(b.order) == 0 }

// Entry returns the entry for productID.
func (b *Bag) Entry(productID int64) (Entry, bool) {
	e, ok := b.entries[productID]
	return e, ok
}

// ProductIDs lists product ids in insertion order.
func (b *Bag) ProductIDs() []int64 {
	return append([]int64(nil), b.order...)
}

// Each visits entries in insertion order.
func (b *Bag) Each(fn func(productID int64, entry Entry)) {
	for _, id := range b.order {
		fn(id, b.entries[id])
	}
}

// TotalQuantity is the number of units across every entry.
func (b *Bag) TotalQuantity() int {
	total := 0
	for _, e := range b.entries {
		total += e.Total()
	}
	return total
}

// Clone returns a deep copy.
func (b *Bag) Clone() *Bag {
	out := New()
	b.Each(func(id int64, e Entry) {
		out.put(id, Entry{kind: e.kind, quantity: e.quantity, sizes: e.Sizes()})
	})
	return out
}

// Snapshot is the serialized bag stored on an order as its audit trail.
func (b *Bag) Snapshot() (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (b *Bag) put(productID int64, e Entry) {
	if b.entries == nil {
		b.entries = map[int64]Entry{}
	}
	if _, exists := b.entries[productID]; !exists {
		b.order = append(b.order, productID)
	}
	b.entries[productID] = e
}

func (b *Bag) delete(productID int64) {
	if _, exists := b.entries[productID]; !exists {
		return
	}
	delete(b.entries, productID)
	for i, id := range b.order {
		if id == productID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

const itemsBySizeKey = "items_by_size"

// MarshalJSON writes {"<id>": qty} or {"<id>": {"items_by_size": {...}}}
// keeping insertion order.
func (b *Bag) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(&buf, strconv.FormatInt(id, 10))
		e := b.entries[id]
		if e.kind == KindSimple {
			buf.WriteString(strconv.Itoa(e.quantity))
			continue
		}
		buf.WriteByte('{')
		writeKey(&buf, itemsBySizeKey)
		buf.WriteByte('{')
		for j, s := range e.sizes {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, s.Size)
			buf.WriteString(strconv.Itoa(s.Quantity))
		}
		buf.WriteString("}}")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) {
	quoted, _ := json.Marshal(key)
	buf.Write(quoted)
	buf.WriteByte(':')
}

// UnmarshalJSON reads the session shape, preserving key order and
// rejecting entries that break the bag invariants.
func (b *Bag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	out := New()
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("bag: invalid product id %q", key)
		}
		entry, err := readEntry(dec)
		if err != nil {
			return fmt.Errorf("bag: product %d: %w", id, err)
		}
		if !entry.valid() {
			return fmt.Errorf("bag: product %d has an empty or non-positive entry", id)
		}
		out.put(id, entry)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	*b = *out
	return nil
}

func readEntry(dec *json.Decoder) (Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return Entry{}, err
	}
	switch v := tok.(type) {
	case json.Number:
		qty, err := strconv.Atoi(v.String())
		if err != nil {
			return Entry{}, fmt.Errorf("invalid quantity %q", v)
		}
		return Simple(qty), nil
	case json.Delim:
		if v != '{' {
			return Entry{}, fmt.Errorf("unexpected %q", v)
		}
		key, err := readKey(dec)
		if err != nil {
			return Entry{}, err
		}
		if key != itemsBySizeKey {
			return Entry{}, fmt.Errorf("unexpected key %q", key)
		}
		sizes, err := readSizes(dec)
		if err != nil {
			return Entry{}, err
		}
		if err := expectDelim(dec, '}'); err != nil {
			return Entry{}, err
		}
		return Sized(sizes...), nil
	}
	return Entry{}, fmt.Errorf("unexpected token %v", tok)
}

func readSizes(dec *json.Decoder) ([]SizeQuantity, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var sizes []SizeQuantity
	seen := map[string]bool{}
	for dec.More() {
		size, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, fmt.Errorf("size %q: %w", size, err)
		}
		qty, err := strconv.Atoi(n.String())
		if err != nil {
			return nil, fmt.Errorf("size %q: invalid quantity %q", size, n)
		}
		if seen[size] {
			return nil, fmt.Errorf("duplicate size %q", size)
		}
		seen[size] = true
		sizes = append(sizes, SizeQuantity{Size: size, Quantity: qty})
	}
	return sizes, expectDelim(dec, '}')
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("bag: expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("bag: unexpected end of input")
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("bag: expected %q, got %v", want, tok)
	}
	return nil
}
