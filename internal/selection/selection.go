package selection

import (
	"encoding/json"
	"fmt"
)

type Kind int

const (
	KindNone Kind = iota
	KindRoute
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindRoute:
		return "route"
	case KindStop:
		return "stop"
	default:
		return "none"
	}
}

// Selection is the single active user choice. The zero value is None; a
// Route selection never carries a stop and vice versa.
type Selection struct {
	kind  Kind
	value string
}

func None() Selection                      { return Selection{} }
func Route(busNo string) Selection         { return Selection{kind: KindRoute, value: busNo} }
func Stop(name string) Selection           { return Selection{kind: KindStop, value: name} }
func (s Selection) Kind() Kind             { return s.kind }
func (s Selection) IsNone() bool           { return s.kind == KindNone }
func (s Selection) Value() string          { return s.value }
func (s Selection) Equal(o Selection) bool { return s == o }

// Route returns the selected bus number, if a route is selected.
func (s Selection) Route() (string, bool) {
	if s.kind != KindRoute {
		return "", false
	}
	return s.value, true
}

// Stop returns the selected stop name, if a stop is selected.
func (s Selection) Stop() (string, bool) {
	if s.kind != KindStop {
		return "", false
	}
	return s.value, true
}

func (s Selection) String() string {
	if s.kind == KindNone {
		return "none"
	}
	return fmt.Sprintf("%s(%s)", s.kind, s.value)
}

func (s Selection) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind  string `json:"kind"`
		Value string `json:"value,omitempty"`
	}
	return json.Marshal(wire{Kind: s.kind.String(), Value: s.value})
}

type InputKind string

const (
	InputRoute InputKind = "route"
	InputStop  InputKind = "stop"
	InputFree  InputKind = "free"
)

// Input is a user action waiting to be resolved: an explicit pick of a route
// or stop, or free text that still has to be disambiguated.
type Input struct {
	Kind  InputKind `json:"kind"`
	Value string    `json:"value"`
}

func RouteInput(busNo string) Input { return Input{Kind: InputRoute, Value: busNo} }
func StopInput(name string) Input   { return Input{Kind: InputStop, Value: name} }
func FreeInput(text string) Input   { return Input{Kind: InputFree, Value: text} }
