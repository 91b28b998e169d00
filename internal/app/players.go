package app

import "github.com/dkeye/proximity/internal/domain"

// playerTable holds every participant a room has heard about. Entries are never removed
// while the room lives.
type playerTable struct {
	byID map[domain.ClientID]*domain.PlayerState
	// insertion order, for deterministic name lookup and fan-out
	order []domain.ClientID
}

func newPlayerTable() *playerTable {
	return &playerTable{byID: make(map[domain.ClientID]*domain.PlayerState)}
}

// get returns the participant, creating it with sentinel defaults on first use.
func (t *playerTable) get(id domain.ClientID) *domain.PlayerState {
	if p, ok := t.byID[id]; ok {
		return p
	}
	p := domain.NewPlayerState(id)
	t.byID[id] = p
	t.order = append(t.order, id)
	return p
}

// peek returns the participant or a default-valued copy that is not stored.
func (t *playerTable) peek(id domain.ClientID) domain.PlayerState {
	if p, ok := t.byID[id]; ok {
		return *p
	}
	return *domain.NewPlayerState(id)
}

func (t *playerTable) byName(name string) *domain.PlayerState {
	for _, id := range t.order {
		if p := t.byID[id]; p.Name != "" && domain.SameName(p.Name, name) {
			return p
		}
	}
	return nil
}

func (t *playerTable) each(fn func(*domain.PlayerState)) {
	for _, id := range t.order {
		fn(t.byID[id])
	}
}
