package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"blockpad/internal/domain"
	"blockpad/internal/events"
)

// ─────────────────────────────────────────────────────────────
// HTTP surface — thin CRUD over the BlockStore, no business
// logic beyond field validation and order renumbering
// ─────────────────────────────────────────────────────────────

type Server struct {
	store    domain.BlockStore
	emitter  events.Emitter
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP server. hub may be nil, in which case
// /blocks/stream is still routed but no events are fanned out.
func NewServer(store domain.BlockStore, hub *events.Hub) *Server {
	var emitter events.Emitter = &events.MockEmitter{}
	if hub != nil {
		emitter = hub
	}
	return &Server{
		store:   store,
		emitter: emitter,
		hub:     hub,
		upgrader: websocket.Upgrader{
			// Single-user local editor; cross-origin is fine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/blocks", s.handleListBlocks)
	engine.POST("/blocks", s.handleCreateBlock)
	engine.PATCH("/blocks", s.handleUpdateBlock)
	engine.PUT("/blocks", s.handleReplaceBlocks)
	engine.PATCH("/blocks/reorder", s.handleReorderBlocks)
	engine.DELETE("/blocks/:id", s.handleDeleteBlock)
	engine.GET("/blocks/stream", s.handleStream)
	return engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListBlocks(c *gin.Context) {
	blocks, err := s.store.ListBlocks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	c.JSON(http.StatusOK, blocks)
}

func (s *Server) handleCreateBlock(c *gin.Context) {
	var in domain.CreateBlockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	block, err := s.store.CreateBlock(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	s.emitter.Emit(c.Request.Context(), "block:created", block)
	c.JSON(http.StatusCreated, block)
}

// updateBlockRequest is a patch addressed by id in the body.
type updateBlockRequest struct {
	ID string `json:"id"`
	domain.BlockPatch
}

func (s *Server) handleUpdateBlock(c *gin.Context) {
	var req updateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "block id required"})
		return
	}

	block, err := s.store.UpdateBlock(c.Request.Context(), req.ID, req.BlockPatch)
	if err != nil {
		writeError(c, err)
		return
	}

	s.emitter.Emit(c.Request.Context(), "block:updated", block)
	c.JSON(http.StatusOK, block)
}

type reorderRequest struct {
	BlockIDs []string `json:"blockIds"`
}

func (s *Server) handleReorderBlocks(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.BlockIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blockIds must be an array"})
		return
	}

	if err := s.store.ReorderBlocks(c.Request.Context(), req.BlockIDs); err != nil {
		writeError(c, err)
		return
	}

	s.emitter.Emit(c.Request.Context(), "blocks:reordered", req.BlockIDs)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleReplaceBlocks(c *gin.Context) {
	var blocks []domain.Block
	if err := c.ShouldBindJSON(&blocks); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	for _, b := range blocks {
		if b.ID == "" || !b.Type.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every block needs an id and a valid type"})
			return
		}
	}

	if err := s.store.ReplaceBlocks(c.Request.Context(), blocks); err != nil {
		writeError(c, err)
		return
	}

	s.emitter.Emit(c.Request.Context(), "blocks:replaced", len(blocks))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteBlock(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.DeleteBlock(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	s.emitter.Emit(c.Request.Context(), "block:deleted", id)
	c.Status(http.StatusNoContent)
}

// handleStream upgrades to a websocket and pushes block-change events
// until the client goes away.
func (s *Server) handleStream(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event stream disabled"})
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("api: websocket upgrade: %v", err)
		return
	}
	s.hub.Register(conn)

	// Reader loop only detects disconnects; clients don't send data.
	go func() {
		defer s.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writeError maps the store error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("api: storage failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
	}
}
