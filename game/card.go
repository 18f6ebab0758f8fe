package game

import (
	"encoding/json"
	"fmt"
	"math"
)

// Element is a card's affinity. The declaration order is the element cycle.
type Element int

const (
	Water Element = iota
	Fire
	Wood
	Earth
	Air
	// Energy matches every element.
	Energy
)

var elementNames = [...]string{"water", "fire", "wood", "earth", "air", "energy"}

// Elements lists every element in cycle order.
var Elements = []Element{Water, Fire, Wood, Earth, Air, Energy}

func (e Element) String() string {
	if e < Water || e > Energy {
		return fmt.Sprintf("element(%d)", int(e))
	}
	return elementNames[e]
}

func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range elementNames {
		if n == name {
			*e = Element(i)
			return nil
		}
	}
	return fmt.Errorf("unknown element %q", name)
}

// Coefficient scales an attack played with element e on top of a card of
// element previous. Energy on either side, or equal elements, give 1.0.
// Otherwise the raw distance along the cycle is shifted by two below the
// half-cycle point and by one at or above it, and the coefficient is
// 0.50 + (5 - adjusted)/4: neighbours 1.0, two apart and opposite 0.75,
// the far ends of the cycle 0.50.
func Coefficient(e, previous Element) float64 {
	if e == Energy || previous == Energy {
		return 1.0
	}
	distance := int(e) - int(previous)
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 {
		return 1.0
	}

	half := len(elementNames) / 2
	adjusted := distance + 1
	if distance < half {
		adjusted++
	}
	return 0.50 + float64(int(Energy)-adjusted)/4
}

// EffectKind is what a card does when played.
type EffectKind int

const (
	Attack EffectKind = iota
	Flow
	Stun
	Add
)

var effectNames = [...]string{"attack", "flow", "stun", "add"}

func (k EffectKind) String() string {
	if k < Attack || k > Add {
		return fmt.Sprintf("effect(%d)", int(k))
	}
	return effectNames[k]
}

// Effect is an effect kind plus its magnitude: power for Attack, card count
// for Add, zero otherwise.
type Effect struct {
	Kind  EffectKind
	Value int
}

const (
	MinAttackPower = 1
	MaxAttackPower = 12
	MinAddCount    = 1
	MaxAddCount    = 4
)

func AttackEffect(power int) Effect { return Effect{Kind: Attack, Value: power} }
func FlowEffect() Effect            { return Effect{Kind: Flow} }
func StunEffect() Effect            { return Effect{Kind: Stun} }
func AddEffect(count int) Effect    { return Effect{Kind: Add, Value: count} }

// power is the strength a following attack has to reach.
func (e Effect) power() int {
	if e.Kind == Attack {
		return e.Value
	}
	return 1
}

func (e Effect) String() string {
	switch e.Kind {
	case Attack, Add:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Value)
	default:
		return e.Kind.String()
	}
}

// Card is immutable once dealt.
type Card struct {
	Element Element
	Effect  Effect
}

// Opener is the neutral card every game starts on.
var Opener = Card{Element: Energy, Effect: FlowEffect()}

type cardJSON struct {
	Element Element `json:"element"`
	Effect  string  `json:"effect"`
	Value   int     `json:"value,omitempty"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Element: c.Element, Effect: c.Effect.Kind.String(), Value: c.Effect.Value})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, n := range effectNames {
		if n == raw.Effect {
			*c = Card{Element: raw.Element, Effect: Effect{Kind: EffectKind(i), Value: raw.Value}}
			return nil
		}
	}
	return fmt.Errorf("unknown effect %q", raw.Effect)
}

func (c Card) String() string {
	return c.Element.String() + "/" + c.Effect.String()
}

// PlayableOn reports whether c may be played on top of previous. An attack
// must reach the previous card's power once scaled by the element
// coefficient; any other effect needs a coefficient of at least 1.0.
func (c Card) PlayableOn(previous Card) bool {
	coef := Coefficient(c.Element, previous.Element)
	if c.Effect.Kind == Attack {
		return int(math.Round(float64(c.Effect.Value)*coef)) >= previous.Effect.power()
	}
	return coef >= 1.0
}
