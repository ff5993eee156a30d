package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tluyben/lawyeredup/library"
)

type SearchResponse struct {
	Query string        `json:"query"`
	Hits  []library.Hit `json:"hits"`
	Count int           `json:"count"`
}

var (
	ErrNoLibrary    = errors.New("contract library is not configured")
	ErrMissingField = errors.New("id and content are required")
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

func (s *Server) addDocument(c *gin.Context) {
	if !s.hasLibrary(c) {
		return
	}
	var doc library.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		abort(c, http.StatusBadRequest, "",
			fmt.Errorf("%w: %v", ErrInvalidJSON, err),
		)
		return
	}
	if doc.ID == "" || doc.Content == "" {
		abort(c, http.StatusBadRequest, "", ErrMissingField)
		return
	}
	if err := s.library.Add(&doc); err != nil {
		abort(c, http.StatusInternalServerError, "", err)
		return
	}
	c.JSON(http.StatusCreated, library.Hit{ID: doc.ID, Title: doc.Title})
}

func (s *Server) searchLibrary(c *gin.Context) {
	if !s.hasLibrary(c) {
		return
	}
	limit := library.DefaultLimit
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			abort(c, http.StatusBadRequest, "", ErrInvalidLimit)
			return
		}
		limit = n
	}

	q := c.Query("q")
	hits, err := s.library.Search(q, limit)
	if errors.Is(err, library.ErrEmptyQuery) {
		abort(c, http.StatusBadRequest, "", err)
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, "", err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Query: q, Hits: hits, Count: len(hits)})
}

func (s *Server) getDocument(c *gin.Context) {
	if !s.hasLibrary(c) {
		return
	}
	doc, err := s.library.Get(c.Param("id"))
	if errors.Is(err, library.ErrNotFound) {
		abort(c, http.StatusNotFound, "", err)
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, "", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) hasLibrary(c *gin.Context) bool {
	if s.library == nil {
		abort(c, http.StatusServiceUnavailable, "", ErrNoLibrary)
		return false
	}
	return true
}
