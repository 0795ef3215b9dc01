package models

import (
	"fmt"
	"strings"
)

// QueryRequest is the body of a query call.
type QueryRequest struct {
	Query string `json:"query"`
}

// Validate returns a validation error when the query is empty or blank.
func (q *QueryRequest) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return NewError(KindValidation, "query", fmt.Errorf("query cannot be empty"))
	}
	return nil
}

// QueryResponse carries the generated answer.
type QueryResponse struct {
	Result string `json:"result"`
}

// GenerateRequest asks for a drafted document of the given type.
type GenerateRequest struct {
	DocumentType   string `json:"documentType"`
	AdditionalInfo string `json:"additionalInfo"`
}

// Validate returns a validation error when no document type is given.
func (g *GenerateRequest) Validate() error {
	if strings.TrimSpace(g.DocumentType) == "" {
		return NewError(KindValidation, "generate", fmt.Errorf("documentType cannot be empty"))
	}
	return nil
}
