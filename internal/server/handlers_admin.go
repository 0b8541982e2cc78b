package server

import (
	"errors"
	"net/http"
	"strings"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/content"
	"neweyes-online/internal/db"
	"neweyes-online/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const blockImageRendition = "original"

func (s *Server) handleAdminEpisodes(c *gin.Context) {
	data := web.EpisodeListData{Flash: s.sessions.PopFlash(c.Writer, c.Request)}
	episodes, err := s.dir.ListEpisodes(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("list episodes failed")
		data.Error = "Failed to load episodes."
	}
	for _, episode := range episodes {
		data.Episodes = append(data.Episodes, episodeSummary(episode))
	}
	render(c, web.EpisodeList(data))
}

func (s *Server) handleAdminEpisodeCreate(c *gin.Context) {
	title, err := validateTitle(c.PostForm("title"))
	if err != nil {
		s.redirectWithFlash(c, "/admin/episodes", err.Error())
		return
	}
	identity, _ := auth.IdentityFrom(c)
	episode := db.Episode{
		ID:        uuid.NewString(),
		Title:     title,
		Summary:   strings.TrimSpace(c.PostForm("summary")),
		CreatedBy: &identity.UserID,
	}
	if err := s.dir.CreateEpisode(c.Request.Context(), &episode); err != nil {
		log.Error().Err(err).Msg("create episode failed")
		s.redirectWithFlash(c, "/admin/episodes", "Failed to create episode.")
		return
	}
	log.Info().Str("episode_id", episode.ID).Msg("episode created")
	c.Redirect(http.StatusFound, "/admin/episodes/"+episode.ID)
}

func (s *Server) handleAdminEpisodeView(c *gin.Context) {
	id := c.Param("id")
	if !validUUID(id) {
		s.redirectWithFlash(c, "/admin/episodes", "Episode not found.")
		return
	}
	ctx := c.Request.Context()
	episode, err := s.dir.Episode(ctx, id)
	if err != nil {
		s.redirectWithFlash(c, "/admin/episodes", "Episode not found.")
		return
	}
	data := web.EpisodeEditorData{
		Flash:     s.sessions.PopFlash(c.Writer, c.Request),
		Episode:   episodeSummary(episode),
		Types:     content.BlockTypes,
		Audiences: content.Audiences,
		Modes:     content.Modes,
	}
	blocks, err := s.dir.ListBlocks(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("episode_id", id).Msg("list blocks failed")
		data.Error = "Failed to load blocks."
	}
	data.Groups = s.blockGroups(blocks)
	render(c, web.EpisodeEditor(data))
}

func (s *Server) handleAdminEpisodeUpdate(c *gin.Context) {
	id := c.Param("id")
	back := "/admin/episodes/" + id
	if !validUUID(id) {
		s.redirectWithFlash(c, "/admin/episodes", "Episode not found.")
		return
	}
	title, err := validateTitle(c.PostForm("title"))
	if err != nil {
		s.redirectWithFlash(c, back, err.Error())
		return
	}
	if err := s.dir.UpdateEpisode(c.Request.Context(), id, title, strings.TrimSpace(c.PostForm("summary"))); err != nil {
		s.redirectWithFlash(c, "/admin/episodes", adminFailure("update episode", err))
		return
	}
	s.redirectWithFlash(c, back, "Episode saved.")
}

func (s *Server) handleAdminEpisodeDelete(c *gin.Context) {
	id := c.Param("id")
	if !validUUID(id) {
		s.redirectWithFlash(c, "/admin/episodes", "Episode not found.")
		return
	}
	if err := s.dir.DeleteEpisode(c.Request.Context(), id); err != nil {
		s.redirectWithFlash(c, "/admin/episodes", adminFailure("delete episode", err))
		return
	}
	log.Info().Str("episode_id", id).Msg("episode deleted")
	s.redirectWithFlash(c, "/admin/episodes", "Episode deleted.")
}

func (s *Server) handleAdminBlockCreate(c *gin.Context) {
	episodeID := c.Param("id")
	if !validUUID(episodeID) {
		s.redirectWithFlash(c, "/admin/episodes", "Episode not found.")
		return
	}
	block, err := blockFromForm(c)
	back := "/admin/episodes/" + episodeID
	if err != nil {
		s.redirectWithFlash(c, back, err.Error())
		return
	}
	block.ID = uuid.NewString()
	block.EpisodeID = episodeID
	if err := s.dir.CreateBlock(c.Request.Context(), &block); err != nil {
		s.redirectWithFlash(c, back, adminFailure("create block", err))
		return
	}
	log.Info().Str("episode_id", episodeID).Str("block_id", block.ID).Int("sort_order", block.SortOrder).Msg("block created")
	s.redirectWithFlash(c, back+"#block-"+block.ID, "Block added.")
}

func (s *Server) handleAdminBlockUpdate(c *gin.Context) {
	current, ok := s.adminBlock(c)
	if !ok {
		return
	}
	back := "/admin/episodes/" + current.EpisodeID + "#block-" + current.ID
	block, err := blockFromForm(c)
	if err != nil {
		s.redirectWithFlash(c, back, err.Error())
		return
	}
	block.ID = current.ID
	if err := s.dir.UpdateBlock(c.Request.Context(), block); err != nil {
		s.redirectWithFlash(c, back, adminFailure("update block", err))
		return
	}
	message := "Block saved."
	if _, failed := block.Metadata[content.MetaErrorKey]; failed {
		message = "Block saved; metadata is not a valid JSON object and was kept as text."
	}
	s.redirectWithFlash(c, back, message)
}

func (s *Server) handleAdminBlockMove(c *gin.Context) {
	current, ok := s.adminBlock(c)
	if !ok {
		return
	}
	back := "/admin/episodes/" + current.EpisodeID
	direction := c.PostForm("direction")
	if !content.ValidDirection(direction) {
		s.redirectWithFlash(c, back, "Direction must be up or down.")
		return
	}
	moved, err := s.dir.MoveBlock(c.Request.Context(), current.ID, direction)
	if err != nil {
		s.redirectWithFlash(c, back, adminFailure("move block", err))
		return
	}
	log.Info().Str("block_id", moved.ID).Str("direction", direction).Int("sort_order", moved.SortOrder).Msg("block moved")
	c.Redirect(http.StatusFound, back+"#block-"+moved.ID)
}

func (s *Server) handleAdminBlockImage(c *gin.Context) {
	current, ok := s.adminBlock(c)
	if !ok {
		return
	}
	back := "/admin/episodes/" + current.EpisodeID + "#block-" + current.ID
	file, err := c.FormFile("image")
	if err != nil {
		s.redirectWithFlash(c, back, "Choose an image to upload.")
		return
	}
	body, err := file.Open()
	if err != nil {
		s.redirectWithFlash(c, back, "Failed to read the upload.")
		return
	}
	defer body.Close()
	ctx := c.Request.Context()
	key, err := s.images.Upload(ctx, current.ID, blockImageRendition, body)
	if err != nil {
		s.redirectWithFlash(c, back, adminFailure("upload image", err))
		return
	}
	if err := s.dir.SetBlockImage(ctx, current.ID, key); err != nil {
		s.redirectWithFlash(c, back, adminFailure("save image", err))
		return
	}
	if current.ImageKey != "" && current.ImageKey != key {
		if err := s.images.Delete(ctx, current.ImageKey); err != nil {
			log.Warn().Err(err).Str("block_id", current.ID).Msg("delete replaced image failed")
		}
	}
	s.redirectWithFlash(c, back, "Image uploaded.")
}

func (s *Server) handleAdminBlockDelete(c *gin.Context) {
	current, ok := s.adminBlock(c)
	if !ok {
		return
	}
	back := "/admin/episodes/" + current.EpisodeID
	ctx := c.Request.Context()
	if err := s.dir.DeleteBlock(ctx, current.ID); err != nil {
		s.redirectWithFlash(c, back, adminFailure("delete block", err))
		return
	}
	if current.ImageKey != "" {
		if err := s.images.Delete(ctx, current.ImageKey); err != nil {
			log.Warn().Err(err).Str("block_id", current.ID).Msg("delete block image failed")
		}
	}
	s.redirectWithFlash(c, back, "Block deleted.")
}

func (s *Server) adminBlock(c *gin.Context) (db.EpisodeBlock, bool) {
	id := c.Param("id")
	if !validUUID(id) {
		s.redirectWithFlash(c, "/admin/episodes", "Block not found.")
		return db.EpisodeBlock{}, false
	}
	block, err := s.dir.Block(c.Request.Context(), id)
	if err != nil {
		s.redirectWithFlash(c, "/admin/episodes", adminFailure("load block", err))
		return db.EpisodeBlock{}, false
	}
	return block, true
}

// blockFromForm validates the authoring form. Metadata never fails the save;
// text that is not a JSON object is kept under an error marker.
func blockFromForm(c *gin.Context) (db.EpisodeBlock, error) {
	block := db.EpisodeBlock{
		Type:     c.PostForm("type"),
		Audience: c.DefaultPostForm("audience", content.AudienceBoth),
		Mode:     c.DefaultPostForm("mode", content.ModeDisplay),
		Title:    normalizeText(c.PostForm("title")),
		Body:     strings.TrimSpace(c.PostForm("body")),
		Metadata: content.ParseMetadata(c.PostForm("metadata")),
	}
	if !content.ValidBlockType(block.Type) {
		return block, errors.New("unknown block type")
	}
	if !content.ValidAudience(block.Audience) {
		return block, errors.New("audience must be both, players or storyteller")
	}
	if !content.ValidMode(block.Mode) {
		return block, errors.New("unknown block mode")
	}
	if len([]rune(block.Title)) > maxTitleLength {
		return block, errors.New("title must be 140 characters or fewer")
	}
	return block, nil
}

func adminFailure(action string, err error) string {
	switch statusFor(err) {
	case http.StatusNotFound:
		return "Not found."
	case http.StatusBadRequest:
		return err.Error()
	}
	log.Error().Err(err).Str("action", action).Msg("admin action failed")
	return "Failed to " + action + "."
}
