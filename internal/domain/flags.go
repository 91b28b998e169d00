package domain

import json "github.com/goccy/go-json"

// FlagSet is a small set of enum flags. The zero value is empty and copies are independent.
type FlagSet[F ~int] struct {
	bits uint32
}

func NewFlagSet[F ~int](flags ...F) FlagSet[F] {
	var s FlagSet[F]
	for _, f := range flags {
		s.Set(f, true)
	}
	return s
}

func (s *FlagSet[F]) Set(f F, on bool) {
	if f < 0 || f >= 32 {
		return
	}
	if on {
		s.bits |= 1 << uint(f)
	} else {
		s.bits &^= 1 << uint(f)
	}
}

func (s FlagSet[F]) Has(f F) bool {
	if f < 0 || f >= 32 {
		return false
	}
	return s.bits&(1<<uint(f)) != 0
}

func (s *FlagSet[F]) Clear() { s.bits = 0 }

func (s FlagSet[F]) Empty() bool { return s.bits == 0 }

// Slice lists the set flags in ascending order.
func (s FlagSet[F]) Slice() []F {
	out := make([]F, 0, 4)
	for i := 0; i < 32; i++ {
		if s.bits&(1<<uint(i)) != 0 {
			out = append(out, F(i))
		}
	}
	return out
}

func (s FlagSet[F]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *FlagSet[F]) UnmarshalJSON(data []byte) error {
	var flags []F
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	s.Clear()
	for _, f := range flags {
		s.Set(f, true)
	}
	return nil
}
