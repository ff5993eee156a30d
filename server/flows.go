package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tluyben/lawyeredup/flow"
	"github.com/tluyben/lawyeredup/schema"
)

type (
	FlowSummary struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	FlowsListResponse struct {
		Flows []FlowSummary `json:"flows"`
		Count int           `json:"count"`
	}

	// FlowResponse describes a flow's input and output as JSON Schema
	FlowResponse struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Input       json.RawMessage `json:"input"`
		Output      json.RawMessage `json:"output"`
	}
)

var ErrInvalidJSON = errors.New("invalid JSON")

var kindStatus = map[flow.Kind]int{
	flow.KindInputValidation:  http.StatusBadRequest,
	flow.KindTemplate:         http.StatusInternalServerError,
	flow.KindProvider:         http.StatusBadGateway,
	flow.KindOutputValidation: http.StatusUnprocessableEntity,
}

func (s *Server) listFlows(c *gin.Context) {
	specs := s.exec.Registry().Specs()
	res := make([]FlowSummary, len(specs))
	for i, spec := range specs {
		res[i] = FlowSummary{Name: spec.Name, Description: spec.Description}
	}
	c.JSON(http.StatusOK, FlowsListResponse{Flows: res, Count: len(res)})
}

func (s *Server) getFlow(c *gin.Context) {
	spec, err := s.exec.Registry().Get(c.Param("name"))
	if err != nil {
		abort(c, http.StatusNotFound, "", err)
		return
	}
	in, err := schema.MarshalJSONSchema(spec.Input)
	if err != nil {
		abort(c, http.StatusInternalServerError, flow.KindTemplate, err)
		return
	}
	c.JSON(http.StatusOK, FlowResponse{
		Name:        spec.Name,
		Description: spec.Description,
		Input:       in,
		Output:      spec.OutputSchema(),
	})
}

func (s *Server) invokeFlow(c *gin.Context) {
	name := c.Param("name")
	if _, err := s.exec.Registry().Get(name); err != nil {
		abort(c, http.StatusNotFound, "", err)
		return
	}

	var input any
	if err := json.NewDecoder(c.Request.Body).Decode(&input); err != nil {
		abort(c, http.StatusBadRequest, flow.KindInputValidation,
			fmt.Errorf("%w: %v", ErrInvalidJSON, err),
		)
		return
	}

	res, err := s.exec.Invoke(c.Request.Context(), name, input)
	if err != nil {
		kind := flow.KindOf(err)
		status, ok := kindStatus[kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		abort(c, status, kind, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
