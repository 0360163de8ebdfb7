package models

import "time"

// SignalPatch — partial update of a signal. Nil fields are left untouched.
type SignalPatch struct {
	SL           *float64
	Tracked      *bool
	TP1Hit       *bool
	TP1HitAt     *time.Time
	TP2Hit       *bool
	TP2HitAt     *time.Time
	TP3Hit       *bool
	TP3HitAt     *time.Time
	BreakevenSet *bool
	Closed       *bool
	ClosedAt     *time.Time
	ClosedPrice  *float64
	ClosedReason *string
}

// PatchField is one changed attribute: JSON is the document key, Column the
// relational column.
type PatchField struct {
	JSON   string
	Column string
	Value  any
}

func (p SignalPatch) IsEmpty() bool { return len(p.Fields()) == 0 }

// Fields returns the set fields in a stable order.
func (p SignalPatch) Fields() []PatchField {
	out := make([]PatchField, 0, 13)
	add := func(json, col string, set bool, v any) {
		if set {
			out = append(out, PatchField{JSON: json, Column: col, Value: v})
		}
	}
	add("sl", "sl", p.SL != nil, deref(p.SL))
	add("tracked", "tracked", p.Tracked != nil, deref(p.Tracked))
	add("tp1Hit", "tp1_hit", p.TP1Hit != nil, deref(p.TP1Hit))
	add("tp1HitAt", "tp1_hit_at", p.TP1HitAt != nil, deref(p.TP1HitAt))
	add("tp2Hit", "tp2_hit", p.TP2Hit != nil, deref(p.TP2Hit))
	add("tp2HitAt", "tp2_hit_at", p.TP2HitAt != nil, deref(p.TP2HitAt))
	add("tp3Hit", "tp3_hit", p.TP3Hit != nil, deref(p.TP3Hit))
	add("tp3HitAt", "tp3_hit_at", p.TP3HitAt != nil, deref(p.TP3HitAt))
	add("breakevenSet", "breakeven_set", p.BreakevenSet != nil, deref(p.BreakevenSet))
	add("closed", "closed", p.Closed != nil, deref(p.Closed))
	add("closedAt", "closed_at", p.ClosedAt != nil, deref(p.ClosedAt))
	add("closedPrice", "closed_price", p.ClosedPrice != nil, deref(p.ClosedPrice))
	add("closedReason", "closed_reason", p.ClosedReason != nil, deref(p.ClosedReason))
	return out
}

// Apply returns s with the patch applied. s itself is not modified.
func (p SignalPatch) Apply(s Signal) Signal {
	if p.SL != nil {
		s.SL = *p.SL
	}
	if p.Tracked != nil {
		s.Tracked = *p.Tracked
	}
	if p.TP1Hit != nil {
		s.TP1Hit = *p.TP1Hit
	}
	if p.TP1HitAt != nil {
		t := *p.TP1HitAt
		s.TP1HitAt = &t
	}
	if p.TP2Hit != nil {
		s.TP2Hit = *p.TP2Hit
	}
	if p.TP2HitAt != nil {
		t := *p.TP2HitAt
		s.TP2HitAt = &t
	}
	if p.TP3Hit != nil {
		s.TP3Hit = *p.TP3Hit
	}
	if p.TP3HitAt != nil {
		t := *p.TP3HitAt
		s.TP3HitAt = &t
	}
	if p.BreakevenSet != nil {
		s.BreakevenSet = *p.BreakevenSet
	}
	if p.Closed != nil {
		s.Closed = *p.Closed
	}
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		s.ClosedAt = &t
	}
	if p.ClosedPrice != nil {
		s.ClosedPrice = *p.ClosedPrice
	}
	if p.ClosedReason != nil {
		s.ClosedReason = *p.ClosedReason
	}
	if s.Reasoning != nil {
		s.Reasoning = append([]string(nil), s.Reasoning...)
	}
	return s
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
