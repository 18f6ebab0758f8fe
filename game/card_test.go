package game

import (
	"encoding/json"
	"testing"
)

func TestCoefficient_AllPairs(t *testing.T) {
	tests := []struct {
		a, b Element
		want float64
	}{
		{Water, Fire, 1.0},
		{Water, Wood, 0.75},
		{Water, Earth, 0.75},
		{Water, Air, 0.50},
		{Water, Energy, 1.0},
		{Fire, Wood, 1.0},
		{Fire, Earth, 0.75},
		{Fire, Air, 0.75},
		{Fire, Energy, 1.0},
		{Wood, Earth, 1.0},
		{Wood, Air, 0.75},
		{Wood, Energy, 1.0},
		{Earth, Air, 1.0},
		{Earth, Energy, 1.0},
		{Air, Energy, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			if got := Coefficient(tt.a, tt.b); got != tt.want {
				t.Errorf("Expected Coefficient(%s, %s) = %v, got %v", tt.a, tt.b, tt.want, got)
			}
			if got := Coefficient(tt.b, tt.a); got != tt.want {
				t.Errorf("Expected Coefficient(%s, %s) = %v, got %v", tt.b, tt.a, tt.want, got)
			}
		})
	}
}

func TestCoefficient_SameElement(t *testing.T) {
	for _, e := range Elements {
		if got := Coefficient(e, e); got != 1.0 {
			t.Errorf("Expected Coefficient(%s, %s) = 1.0, got %v", e, e, got)
		}
	}
}

func TestCoefficient_EnergyMatchesAll(t *testing.T) {
	for _, e := range Elements {
		if Coefficient(Energy, e) != 1.0 || Coefficient(e, Energy) != 1.0 {
			t.Errorf("Energy should match %s with coefficient 1.0", e)
		}
	}
}

func TestCard_PlayableOn(t *testing.T) {
	tests := []struct {
		name     string
		card     Card
		previous Card
		want     bool
	}{
		{"stronger attack", Card{Fire, AttackEffect(10)}, Card{Fire, AttackEffect(8)}, true},
		{"weaker attack", Card{Fire, AttackEffect(5)}, Card{Fire, AttackEffect(8)}, false},
		{"equal attack", Card{Water, AttackEffect(8)}, Card{Fire, AttackEffect(8)}, true},
		{"attack scaled down", Card{Water, AttackEffect(9)}, Card{Wood, AttackEffect(8)}, false},
		{"attack scaled and rounded half up", Card{Water, AttackEffect(10)}, Card{Wood, AttackEffect(8)}, true},
		{"far attack", Card{Water, AttackEffect(12)}, Card{Air, AttackEffect(7)}, false},
		{"far attack enough", Card{Water, AttackEffect(12)}, Card{Air, AttackEffect(6)}, true},
		{"attack on opener", Card{Air, AttackEffect(1)}, Opener, true},
		{"attack on effect counts as power one", Card{Water, AttackEffect(2)}, Card{Earth, StunEffect()}, true},
		{"effect on neighbour", Card{Fire, FlowEffect()}, Card{Water, AttackEffect(12)}, true},
		{"effect two apart", Card{Wood, StunEffect()}, Card{Water, AttackEffect(1)}, false},
		{"effect on energy", Card{Air, AddEffect(3)}, Card{Energy, AttackEffect(12)}, true},
		{"energy effect", Card{Energy, AddEffect(2)}, Card{Air, AttackEffect(4)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.PlayableOn(tt.previous); got != tt.want {
				t.Errorf("Expected %s on %s playable=%v, got %v", tt.card, tt.previous, tt.want, got)
			}
		})
	}
}

func TestCard_JSON(t *testing.T) {
	data, err := json.Marshal(Card{Element: Earth, Effect: AttackEffect(7)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"element":"earth","effect":"attack","value":7}` {
		t.Errorf("Unexpected card encoding: %s", data)
	}

	data, _ = json.Marshal(Opener)
	if string(data) != `{"element":"energy","effect":"flow"}` {
		t.Errorf("Unexpected opener encoding: %s", data)
	}

	var card Card
	if err := json.Unmarshal([]byte(`{"element":"fire","effect":"add","value":3}`), &card); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if card != (Card{Element: Fire, Effect: AddEffect(3)}) {
		t.Errorf("Expected fire/add(3), got %s", card)
	}
	if err := json.Unmarshal([]byte(`{"element":"metal","effect":"add"}`), &card); err == nil {
		t.Error("Unknown element should fail to decode")
	}
}

func TestRandomDeck_CardsInRange(t *testing.T) {
	deck := NewSeededDeck(42)
	for i := 0; i < 2000; i++ {
		card, ok := deck.Draw()
		if !ok {
			t.Fatal("RandomDeck should never run out")
		}
		if card.Element < Water || card.Element > Energy {
			t.Fatalf("Element out of range: %d", card.Element)
		}
		switch card.Effect.Kind {
		case Attack:
			if card.Effect.Value < MinAttackPower || card.Effect.Value > MaxAttackPower {
				t.Fatalf("Attack power out of range: %d", card.Effect.Value)
			}
		case Add:
			if card.Effect.Value < MinAddCount || card.Effect.Value > MaxAddCount {
				t.Fatalf("Add count out of range: %d", card.Effect.Value)
			}
		case Flow, Stun:
			if card.Effect.Value != 0 {
				t.Fatalf("%s should carry no value", card.Effect.Kind)
			}
		default:
			t.Fatalf("Unknown effect: %d", card.Effect.Kind)
		}
	}
}

func TestStackedDeck_Order(t *testing.T) {
	first := Card{Water, AttackEffect(1)}
	second := Card{Fire, StunEffect()}
	deck := NewStackedDeck(first, second)

	if card, _ := deck.Draw(); card != first {
		t.Errorf("Expected %s, got %s", first, card)
	}
	if deck.Remaining() != 1 {
		t.Errorf("Expected 1 remaining, got %d", deck.Remaining())
	}
	if card, _ := deck.Draw(); card != second {
		t.Errorf("Expected %s, got %s", second, card)
	}
	if _, ok := deck.Draw(); ok {
		t.Error("Empty deck should report no card")
	}
}
