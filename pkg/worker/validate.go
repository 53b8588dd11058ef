package worker

import (
	"strings"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/generator"
)

// ValidationFailure describes why a generated item was rejected.
type ValidationFailure struct {
	Reason string
}

// ParseResult is the outcome of validating one raw item: either a parsed
// example or a typed failure, never a silently defaulted record.
type ParseResult struct {
	Example *dataset.Example
	Failure *ValidationFailure
}

// parseItem validates a raw service item. The primary content fields must be
// non-empty; scenario and complexity tags are optional.
func parseItem(item generator.Item, category string) ParseResult {
	if strings.TrimSpace(item.Query) == "" {
		return ParseResult{Failure: &ValidationFailure{Reason: "empty query"}}
	}
	if strings.TrimSpace(item.Response) == "" {
		return ParseResult{Failure: &ValidationFailure{Reason: "empty response"}}
	}

	return ParseResult{Example: &dataset.Example{
		Category: category,
		Query:    item.Query,
		Response: item.Response,
		Metadata: dataset.Metadata{
			Scenario:   item.Scenario,
			Complexity: item.Complexity,
		},
	}}
}
