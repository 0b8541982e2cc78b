package content

import (
	"sort"
)

const SortGap = 10

const (
	TypeScene     = "scene"
	TypeObjective = "objective"
	TypeMap       = "map"
	TypeNarrative = "narrative"
	TypeNote      = "note"
	TypeEncounter = "encounter"
	TypeNPC       = "npc"
	TypeLoot      = "loot"
	TypeMonster   = "monster"
	TypeHexCrawl  = "hex_crawl"
)

const (
	AudienceBoth        = "both"
	AudiencePlayers     = "players"
	AudienceStoryteller = "storyteller"
)

const (
	ModeDisplay   = "display"
	ModeRead      = "read"
	ModePrompt    = "prompt"
	ModeEncounter = "encounter"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var BlockTypes = []string{
	TypeScene, TypeObjective, TypeMap, TypeNarrative, TypeNote,
	TypeEncounter, TypeNPC, TypeLoot, TypeMonster, TypeHexCrawl,
}

var Audiences = []string{AudienceBoth, AudiencePlayers, AudienceStoryteller}

var Modes = []string{ModeDisplay, ModeRead, ModePrompt, ModeEncounter}

func ValidBlockType(value string) bool { return contains(BlockTypes, value) }

func ValidAudience(value string) bool { return contains(Audiences, value) }

func ValidMode(value string) bool { return contains(Modes, value) }

func ValidDirection(value string) bool {
	return value == DirectionUp || value == DirectionDown
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

// Ordered is the slice of a block the sequencing helpers need.
type Ordered struct {
	ID        string
	Type      string
	SortOrder int
}

// NextSortOrder leaves a gap after the current maximum so later inserts can
// land between siblings without renumbering.
func NextSortOrder(existing []int) int {
	max := 0
	for _, value := range existing {
		if value > max {
			max = value
		}
	}
	return max + SortGap
}

// SwapTarget finds the nearest sibling strictly before (up) or after (down)
// the block. ok is false when the block is missing or already at that end.
func SwapTarget(siblings []Ordered, id, direction string) (Ordered, Ordered, bool) {
	var current Ordered
	found := false
	for _, block := range siblings {
		if block.ID == id {
			current = block
			found = true
			break
		}
	}
	if !found || !ValidDirection(direction) {
		return Ordered{}, Ordered{}, false
	}
	var neighbor Ordered
	have := false
	for _, block := range siblings {
		if block.ID == id {
			continue
		}
		switch direction {
		case DirectionUp:
			if block.SortOrder < current.SortOrder && (!have || block.SortOrder > neighbor.SortOrder) {
				neighbor, have = block, true
			}
		case DirectionDown:
			if block.SortOrder > current.SortOrder && (!have || block.SortOrder < neighbor.SortOrder) {
				neighbor, have = block, true
			}
		}
	}
	if !have {
		return Ordered{}, Ordered{}, false
	}
	return current, neighbor, true
}

// SortOrdered sorts by sort_order, falling back to id for equal values.
func SortOrdered(blocks []Ordered) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].SortOrder == blocks[j].SortOrder {
			return blocks[i].ID < blocks[j].ID
		}
		return blocks[i].SortOrder < blocks[j].SortOrder
	})
}

// SceneGroup is one display section; Scene is nil for the leading bucket of
// blocks that appear before the first scene.
type SceneGroup[T any] struct {
	Scene  *T
	Blocks []T
}

// GroupByScene partitions blocks already in display order. Each scene block
// opens a new group and heads it.
func GroupByScene[T any](blocks []T, typeOf func(T) string) []SceneGroup[T] {
	groups := make([]SceneGroup[T], 0)
	for i := range blocks {
		block := blocks[i]
		if typeOf(block) == TypeScene {
			groups = append(groups, SceneGroup[T]{Scene: &block})
			continue
		}
		if len(groups) == 0 {
			groups = append(groups, SceneGroup[T]{})
		}
		last := &groups[len(groups)-1]
		last.Blocks = append(last.Blocks, block)
	}
	return groups
}
