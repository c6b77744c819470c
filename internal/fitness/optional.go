package fitness

import (
	"bytes"
	"encoding/json"
)

type presence uint8

const (
	absent presence = iota
	empty
	present
)

// Optional is a value that can be absent (never provided), empty (provided
// but explicitly cleared) or set. Form input and the persisted schema meet
// here: both absent and empty end up as NULL in storage, but callers can
// still tell them apart.
type Optional[T any] struct {
	state presence
	value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{state: present, value: v}
}

func Empty[T any]() Optional[T] {
	return Optional[T]{state: empty}
}

func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// OptionalFromPtr maps a nullable column value: nil is absent.
func OptionalFromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Absent[T]()
	}
	return Some(*p)
}

func (o Optional[T]) IsSet() bool    { return o.state == present }
func (o Optional[T]) IsEmpty() bool  { return o.state == empty }
func (o Optional[T]) IsAbsent() bool { return o.state == absent }

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.state == present
}

// OrElse returns the value when set, def otherwise.
func (o Optional[T]) OrElse(def T) T {
	if o.state == present {
		return o.value
	}
	return def
}

// Ptr returns the persisted shape: a pointer to the value, nil unless set.
func (o Optional[T]) Ptr() *T {
	if o.state != present {
		return nil
	}
	v := o.value
	return &v
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.state != present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Empty[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
