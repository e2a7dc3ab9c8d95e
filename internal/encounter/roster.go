package encounter

import (
	"sort"
	"time"

	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
)

// RosterShot is the part of a shot roster planning looks at
type RosterShot struct {
	ID          uuid.UUID
	CharacterID *uuid.UUID
	VehicleID   *uuid.UUID
	CreatedAt   time.Time
}

// RosterPlan is the delta that turns the current roster into the desired one.
// Add lists carry one entry per shot to insert.
type RosterPlan struct {
	AddCharacters []uuid.UUID `json:"addCharacters"`
	AddVehicles   []uuid.UUID `json:"addVehicles"`
	Remove        []uuid.UUID `json:"remove"`
}

// Empty reports whether the plan changes nothing.
func (p RosterPlan) Empty() bool {
	return len(p.AddCharacters) == 0 && len(p.AddVehicles) == 0 && len(p.Remove) == 0
}

// PlanRoster compares the current shots against the desired multisets of
// character and vehicle ids. Surplus templates get new shots; for templates
// with too many shots the newest are removed first, ties broken by id.
// Placeholder shots with neither reference are never touched.
func PlanRoster(current []RosterShot, desiredCharacters, desiredVehicles []uuid.UUID) RosterPlan {
	byCharacter := make(map[uuid.UUID][]RosterShot)
	byVehicle := make(map[uuid.UUID][]RosterShot)
	for _, s := range current {
		switch {
		case s.CharacterID != nil:
			byCharacter[*s.CharacterID] = append(byCharacter[*s.CharacterID], s)
		case s.VehicleID != nil:
			byVehicle[*s.VehicleID] = append(byVehicle[*s.VehicleID], s)
		}
	}

	var plan RosterPlan
	plan.AddCharacters, plan.Remove = planGroup(byCharacter, desiredCharacters, plan.Remove)
	plan.AddVehicles, plan.Remove = planGroup(byVehicle, desiredVehicles, plan.Remove)
	return plan
}

func planGroup(existing map[uuid.UUID][]RosterShot, desired []uuid.UUID, remove []uuid.UUID) ([]uuid.UUID, []uuid.UUID) {
	want := make(map[uuid.UUID]int)
	var order []uuid.UUID
	for _, id := range desired {
		if want[id] == 0 {
			order = append(order, id)
		}
		want[id]++
	}

	var add []uuid.UUID
	for _, id := range order {
		for n := len(existing[id]); n < want[id]; n++ {
			add = append(add, id)
		}
	}

	// deterministic order over templates being shrunk
	var shrinking []uuid.UUID
	for id, shots := range existing {
		if len(shots) > want[id] {
			shrinking = append(shrinking, id)
		}
	}
	sort.Slice(shrinking, func(i, j int) bool { return shrinking[i].String() < shrinking[j].String() })

	for _, id := range shrinking {
		shots := append([]RosterShot(nil), existing[id]...)
		sort.SliceStable(shots, func(i, j int) bool {
			if !shots[i].CreatedAt.Equal(shots[j].CreatedAt) {
				return shots[i].CreatedAt.After(shots[j].CreatedAt)
			}
			return shots[i].ID.String() > shots[j].ID.String()
		})
		for _, s := range shots[:len(shots)-want[id]] {
			remove = append(remove, s.ID)
		}
	}
	return add, remove
}

func rosterOf(shots []model.Shot) []RosterShot {
	out := make([]RosterShot, len(shots))
	for i, s := range shots {
		out[i] = RosterShot{ID: s.ID, CharacterID: s.CharacterID, VehicleID: s.VehicleID, CreatedAt: s.CreatedAt}
	}
	return out
}
