package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/atelier/internal/engine"
	"github.com/roach88/atelier/internal/project"
)

// writeError maps the engine's error taxonomy onto status codes:
// NOT_FOUND is 404, INVALID_OPERATION is 409, everything else is a 500.
func writeError(c *gin.Context, err error) {
	switch {
	case engine.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case engine.IsInvalidOperation(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func (s *Server) getDocument(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Active().Engine().Snapshot())
}

type createNodeRequest struct {
	ParentID    string            `json:"parentId"`
	Tag         string            `json:"tag"`
	Classes     []string          `json:"classes"`
	Attributes  map[string]string `json:"attributes"`
	TextContent string            `json:"textContent"`
	InsertIndex *int              `json:"insertIndex"`
}

func (s *Server) createNode(c *gin.Context) {
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var node any
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		n, change, err := sess.Engine().CreateNode(engine.CreateNodeRequest{
			ParentID:    req.ParentID,
			Tag:         req.Tag,
			Classes:     req.Classes,
			Attributes:  req.Attributes,
			TextContent: req.TextContent,
			InsertIndex: req.InsertIndex,
		})
		node = n
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

type createSubtreeRequest struct {
	ParentID string           `json:"parentId"`
	Nodes    []engine.NodeDef `json:"nodes"`
}

func (s *Server) createSubtree(c *gin.Context) {
	var req createSubtreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var result engine.SubtreeResult
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		r, change, err := sess.Engine().CreateSubtree(req.ParentID, req.Nodes)
		result = r
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getNode(c *gin.Context) {
	node, err := s.manager.Active().Engine().GetNode(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

type updateNodeRequest struct {
	Tag         *string           `json:"tag"`
	Classes     *[]string         `json:"classes"`
	Attributes  map[string]string `json:"attributes"`
	TextContent *string           `json:"textContent"`
}

func (s *Server) updateNode(c *gin.Context) {
	var req updateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var node any
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		n, change, err := sess.Engine().UpdateNode(c.Param("id"), engine.NodePatch{
			Tag:         req.Tag,
			Classes:     req.Classes,
			Attributes:  req.Attributes,
			TextContent: req.TextContent,
		})
		node = n
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) deleteNode(c *gin.Context) {
	var removed int
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		n, change, err := sess.Engine().DeleteNode(c.Param("id"))
		removed = n
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removedCount": removed})
}

type moveNodeRequest struct {
	NewParentID string `json:"newParentId"`
	InsertIndex *int   `json:"insertIndex"`
}

func (s *Server) moveNode(c *gin.Context) {
	var req moveNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var node any
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		n, change, err := sess.Engine().MoveNode(c.Param("id"), req.NewParentID, req.InsertIndex)
		node = n
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) listTree(c *gin.Context) {
	tree, err := s.manager.Active().Engine().ListTree(c.Query("pageId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

type pageNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) createPage(c *gin.Context) {
	var req pageNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var page any
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		p, change, err := sess.Engine().CreatePage(req.Name)
		page = p
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) clonePage(c *gin.Context) {
	var req pageNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var page any
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		p, change, err := sess.Engine().ClonePage(c.Param("id"), req.Name)
		page = p
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) renamePage(c *gin.Context) {
	var req pageNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var page any
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		p, change, err := sess.Engine().RenamePage(c.Param("id"), req.Name)
		page = p
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) deletePage(c *gin.Context) {
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().DeletePage(c.Param("id"))
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) setActivePage(c *gin.Context) {
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().SetActivePage(c.Param("id"))
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activePageId": c.Param("id")})
}

type setStylesRequest struct {
	Selector   string            `json:"selector"`
	Properties map[string]string `json:"properties"`
}

func (s *Server) setStyles(c *gin.Context) {
	var req setStylesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().SetStyles(req.Selector, req.Properties)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selector": req.Selector})
}

type batchSetStylesRequest struct {
	Rules []engine.StyleRule `json:"rules"`
}

func (s *Server) batchSetStyles(c *gin.Context) {
	var req batchSetStylesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().BatchSetStyles(req.Rules)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(req.Rules)})
}

func (s *Server) deleteStyles(c *gin.Context) {
	selector := c.Query("selector")
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().DeleteStyles(selector)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selector": selector})
}

type setTokensRequest struct {
	Category string            `json:"category"`
	Values   map[string]string `json:"values"`
}

func (s *Server) setTokens(c *gin.Context) {
	var req setTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().SetTokens(req.Category, req.Values)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": req.Category})
}

type propagateTokenRequest struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

func (s *Server) propagateToken(c *gin.Context) {
	var req propagateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	var result engine.PropagationResult
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		r, change, err := sess.Engine().UpdateTokenWithPropagation(req.Category, req.Key, req.Value)
		result = r
		return change, err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setViewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) setViewport(c *gin.Context) {
	var req setViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	err := s.manager.Do(func(sess *project.Session) (*engine.Change, error) {
		return sess.Engine().SetViewport(req.Width, req.Height)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"width": req.Width, "height": req.Height})
}

func (s *Server) listProjects(c *gin.Context) {
	projects, activeID := s.manager.List()
	c.JSON(http.StatusOK, gin.H{"projects": projects, "activeProjectId": activeID})
}

type projectNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) createProject(c *gin.Context) {
	var req projectNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	info, err := s.manager.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) switchProject(c *gin.Context) {
	if err := s.manager.Switch(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activeProjectId": c.Param("id")})
}

func (s *Server) renameProject(c *gin.Context) {
	var req projectNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if err := s.manager.Rename(c.Param("id"), req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "name": req.Name})
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type checkpointRequest struct {
	Message string `json:"message"`
}

func (s *Server) createCheckpoint(c *gin.Context) {
	var req checkpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	id, err := s.manager.Checkpoint(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) listCheckpoints(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	checkpoints, err := s.manager.Checkpoints(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkpoints": checkpoints})
}

func (s *Server) restoreCheckpoint(c *gin.Context) {
	if err := s.manager.Restore(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": c.Param("id")})
}

func (s *Server) diffCheckpoint(c *gin.Context) {
	diff, err := s.manager.Diff(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diff": diff})
}

func (s *Server) listOperations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.manager.Operations(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operations": entries})
}
