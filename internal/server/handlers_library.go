package server

import (
	"context"
	"net/http"
	"strings"

	"neweyes-online/internal/content"
	"neweyes-online/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type npcRequest struct {
	Name         string `json:"name" binding:"required,name"`
	Description  string `json:"description" binding:"max=4000"`
	Strength     int    `json:"str" binding:"omitempty,min=1,max=30"`
	Dexterity    int    `json:"dex" binding:"omitempty,min=1,max=30"`
	Constitution int    `json:"con" binding:"omitempty,min=1,max=30"`
	Intelligence int    `json:"int" binding:"omitempty,min=1,max=30"`
	Wisdom       int    `json:"wis" binding:"omitempty,min=1,max=30"`
	Charisma     int    `json:"cha" binding:"omitempty,min=1,max=30"`
	ArmorClass   int    `json:"armor_class" binding:"omitempty,min=0,max=40"`
	HitPoints    int    `json:"hit_points" binding:"omitempty,min=1"`
}

type traitRequest struct {
	Name        string `json:"name" binding:"required,name"`
	Description string `json:"description" binding:"max=4000"`
}

type actionRequest struct {
	Name        string `json:"name" binding:"required,name"`
	Description string `json:"description" binding:"max=4000"`
	AttackBonus int    `json:"attack_bonus" binding:"min=-10,max=30"`
	Damage      string `json:"damage" binding:"max=32"`
}

type itemRequest struct {
	Name        string `json:"name" binding:"required,name"`
	Description string `json:"description" binding:"max=4000"`
	Rarity      string `json:"rarity" binding:"omitempty,oneof=common uncommon rare very_rare legendary artifact"`
}

type effectRequest struct {
	Name        string `json:"name" binding:"required,name"`
	Description string `json:"description" binding:"max=4000"`
	Modifier    int    `json:"modifier" binding:"min=-20,max=20"`
}

var libraryMessages = bindMessages{
	"Name":   {"required": "name is required", "name": "name must be 80 characters or fewer"},
	"Rarity": {"oneof": "rarity must be common, uncommon, rare, very_rare, legendary or artifact"},
}

// resource is the JSON CRUD surface of one library collection. Child
// collections check their parent exists before creating a record under it.
type resource[T any, R any] struct {
	name         string
	coll         Collection[T]
	parent       func(ctx context.Context, id string) error
	build        func(parentID string, req R) T
	apply        func(record *T, req R)
	beforeDelete func(ctx context.Context, id string) error
}

func (r resource[T, R]) list(c *gin.Context) {
	parentID := ""
	if r.parent != nil {
		var uri idURI
		if !bindURI(c, &uri) {
			return
		}
		parentID = uri.ID
	}
	records, err := r.coll.List(c.Request.Context(), parentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{r.name: records})
}

func (r resource[T, R]) get(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	record, err := r.coll.Get(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (r resource[T, R]) create(c *gin.Context) {
	parentID := ""
	if r.parent != nil {
		var uri idURI
		if !bindURI(c, &uri) {
			return
		}
		parentID = uri.ID
	}
	var req R
	if !bindJSON(c, &req, libraryMessages, "") {
		return
	}
	ctx := c.Request.Context()
	if r.parent != nil {
		if err := r.parent(ctx, parentID); err != nil {
			writeError(c, err)
			return
		}
	}
	record := r.build(parentID, req)
	if err := r.coll.Create(ctx, &record); err != nil {
		writeError(c, err)
		return
	}
	log.Info().Str("collection", r.name).Msg("library record created")
	c.JSON(http.StatusCreated, record)
}

func (r resource[T, R]) update(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req R
	if !bindJSON(c, &req, libraryMessages, "") {
		return
	}
	ctx := c.Request.Context()
	record, err := r.coll.Get(ctx, uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	r.apply(&record, req)
	if err := r.coll.Save(ctx, &record); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (r resource[T, R]) remove(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	if r.beforeDelete != nil {
		if err := r.beforeDelete(ctx, uri.ID); err != nil {
			writeError(c, err)
			return
		}
	}
	if err := r.coll.Delete(ctx, uri.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) registerLibraryRoutes(g *gin.RouterGroup) {
	lib := s.library

	npcs := resource[db.NPC, npcRequest]{
		name: "npcs",
		coll: lib.NPCs,
		build: func(_ string, req npcRequest) db.NPC {
			now := timeNowUTC()
			npc := db.NPC{ID: uuid.NewString(), CreatedAt: now}
			applyNPC(&npc, req)
			return npc
		},
		apply: applyNPC,
		beforeDelete: func(ctx context.Context, id string) error {
			npc, err := lib.NPCs.Get(ctx, id)
			if err != nil {
				return err
			}
			if err := deleteChildren(ctx, lib.Traits, id, func(t db.Trait) string { return t.ID }); err != nil {
				return err
			}
			if err := deleteChildren(ctx, lib.Actions, id, func(a db.Action) string { return a.ID }); err != nil {
				return err
			}
			s.deleteImage(ctx, npc.ImageKey)
			return nil
		},
	}
	npcExists := func(ctx context.Context, id string) error {
		_, err := lib.NPCs.Get(ctx, id)
		return err
	}
	traits := resource[db.Trait, traitRequest]{
		name:   "traits",
		coll:   lib.Traits,
		parent: npcExists,
		build: func(npcID string, req traitRequest) db.Trait {
			trait := db.Trait{ID: uuid.NewString(), NPCID: npcID, CreatedAt: timeNowUTC()}
			applyTrait(&trait, req)
			return trait
		},
		apply: applyTrait,
	}
	actions := resource[db.Action, actionRequest]{
		name:   "actions",
		coll:   lib.Actions,
		parent: npcExists,
		build: func(npcID string, req actionRequest) db.Action {
			action := db.Action{ID: uuid.NewString(), NPCID: npcID, CreatedAt: timeNowUTC()}
			applyAction(&action, req)
			return action
		},
		apply: applyAction,
	}
	items := resource[db.Item, itemRequest]{
		name: "items",
		coll: lib.Items,
		build: func(_ string, req itemRequest) db.Item {
			item := db.Item{ID: uuid.NewString(), CreatedAt: timeNowUTC()}
			applyItem(&item, req)
			return item
		},
		apply: applyItem,
		beforeDelete: func(ctx context.Context, id string) error {
			item, err := lib.Items.Get(ctx, id)
			if err != nil {
				return err
			}
			if err := deleteChildren(ctx, lib.Effects, id, func(e db.ItemEffect) string { return e.ID }); err != nil {
				return err
			}
			s.deleteImage(ctx, item.ImageKey)
			return nil
		},
	}
	effects := resource[db.ItemEffect, effectRequest]{
		name: "effects",
		coll: lib.Effects,
		parent: func(ctx context.Context, id string) error {
			_, err := lib.Items.Get(ctx, id)
			return err
		},
		build: func(itemID string, req effectRequest) db.ItemEffect {
			effect := db.ItemEffect{ID: uuid.NewString(), ItemID: itemID, CreatedAt: timeNowUTC()}
			applyEffect(&effect, req)
			return effect
		},
		apply: applyEffect,
	}

	g.GET("/npcs", npcs.list)
	g.POST("/npcs", npcs.create)
	g.GET("/npcs/:id", s.handleNPCSheet)
	g.PUT("/npcs/:id", npcs.update)
	g.DELETE("/npcs/:id", npcs.remove)
	g.POST("/npcs/:id/image", func(c *gin.Context) {
		uploadImage(c, s, lib.NPCs, func(n *db.NPC, key string) string {
			old := n.ImageKey
			n.ImageKey = key
			return old
		})
	})
	g.GET("/npcs/:id/traits", traits.list)
	g.POST("/npcs/:id/traits", traits.create)
	g.PUT("/traits/:id", traits.update)
	g.DELETE("/traits/:id", traits.remove)
	g.GET("/npcs/:id/actions", actions.list)
	g.POST("/npcs/:id/actions", actions.create)
	g.PUT("/actions/:id", actions.update)
	g.DELETE("/actions/:id", actions.remove)

	g.GET("/items", items.list)
	g.POST("/items", items.create)
	g.GET("/items/:id", s.handleItemDetail)
	g.PUT("/items/:id", items.update)
	g.DELETE("/items/:id", items.remove)
	g.POST("/items/:id/image", func(c *gin.Context) {
		uploadImage(c, s, lib.Items, func(i *db.Item, key string) string {
			old := i.ImageKey
			i.ImageKey = key
			return old
		})
	})
	g.GET("/items/:id/effects", effects.list)
	g.POST("/items/:id/effects", effects.create)
	g.PUT("/item_effects/:id", effects.update)
	g.DELETE("/item_effects/:id", effects.remove)
}

type npcSheet struct {
	db.NPC
	Modifiers map[string]int `json:"modifiers"`
	ImageURL  string         `json:"image_url,omitempty"`
}

// handleNPCSheet returns the NPC with its traits, actions and derived
// ability modifiers.
func (s *Server) handleNPCSheet(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	npc, err := s.library.NPCs.Get(ctx, uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if npc.Traits, err = s.library.Traits.List(ctx, npc.ID); err != nil {
		writeError(c, err)
		return
	}
	if npc.Actions, err = s.library.Actions.List(ctx, npc.ID); err != nil {
		writeError(c, err)
		return
	}
	sheet := npcSheet{
		NPC: npc,
		Modifiers: map[string]int{
			"str": content.AbilityModifier(npc.Strength),
			"dex": content.AbilityModifier(npc.Dexterity),
			"con": content.AbilityModifier(npc.Constitution),
			"int": content.AbilityModifier(npc.Intelligence),
			"wis": content.AbilityModifier(npc.Wisdom),
			"cha": content.AbilityModifier(npc.Charisma),
		},
	}
	if npc.ImageKey != "" {
		sheet.ImageURL = s.images.URL(npc.ImageKey)
	}
	c.JSON(http.StatusOK, sheet)
}

func (s *Server) handleItemDetail(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	item, err := s.library.Items.Get(ctx, uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if item.Effects, err = s.library.Effects.List(ctx, item.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func uploadImage[T any](c *gin.Context, s *Server, coll Collection[T], setKey func(*T, string) string) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	record, err := coll.Get(ctx, uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	body, err := file.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()
	key, err := s.images.Upload(ctx, uri.ID, blockImageRendition, body)
	if err != nil {
		writeError(c, err)
		return
	}
	if old := setKey(&record, key); old != "" && old != key {
		s.deleteImage(ctx, old)
	}
	if err := coll.Save(ctx, &record); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_key": key, "image_url": s.images.URL(key)})
}

func (s *Server) deleteImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("image_key", key).Msg("delete image failed")
	}
}

func deleteChildren[T any](ctx context.Context, coll Collection[T], parentID string, idOf func(T) string) error {
	children, err := coll.List(ctx, parentID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := coll.Delete(ctx, idOf(child)); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

func abilityOrDefault(score int) int {
	if score == 0 {
		return 10
	}
	return score
}

func applyNPC(npc *db.NPC, req npcRequest) {
	npc.Name = normalizeText(req.Name)
	npc.Description = strings.TrimSpace(req.Description)
	npc.Strength = abilityOrDefault(req.Strength)
	npc.Dexterity = abilityOrDefault(req.Dexterity)
	npc.Constitution = abilityOrDefault(req.Constitution)
	npc.Intelligence = abilityOrDefault(req.Intelligence)
	npc.Wisdom = abilityOrDefault(req.Wisdom)
	npc.Charisma = abilityOrDefault(req.Charisma)
	npc.ArmorClass = req.ArmorClass
	if npc.ArmorClass == 0 {
		npc.ArmorClass = 10
	}
	npc.HitPoints = req.HitPoints
	if npc.HitPoints == 0 {
		npc.HitPoints = 1
	}
	npc.UpdatedAt = timeNowUTC()
}

func applyTrait(trait *db.Trait, req traitRequest) {
	trait.Name = normalizeText(req.Name)
	trait.Description = strings.TrimSpace(req.Description)
	trait.UpdatedAt = timeNowUTC()
}

func applyAction(action *db.Action, req actionRequest) {
	action.Name = normalizeText(req.Name)
	action.Description = strings.TrimSpace(req.Description)
	action.AttackBonus = req.AttackBonus
	action.Damage = strings.TrimSpace(req.Damage)
	action.UpdatedAt = timeNowUTC()
}

func applyItem(item *db.Item, req itemRequest) {
	item.Name = normalizeText(req.Name)
	item.Description = strings.TrimSpace(req.Description)
	item.Rarity = req.Rarity
	if item.Rarity == "" {
		item.Rarity = "common"
	}
	item.UpdatedAt = timeNowUTC()
}

func applyEffect(effect *db.ItemEffect, req effectRequest) {
	effect.Name = normalizeText(req.Name)
	effect.Description = strings.TrimSpace(req.Description)
	effect.Modifier = req.Modifier
	effect.UpdatedAt = timeNowUTC()
}
