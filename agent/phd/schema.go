//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package phd

// JSON schemas for the structured outputs of each capability. Kept as data
// so the request layer stays free of reflection.

func obj(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func arr(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

var (
	str     = map[string]any{"type": "string"}
	num     = map[string]any{"type": "number"}
	boolean = map[string]any{"type": "boolean"}
	strArr  = arr(str)
)

var queriesSchema = obj(map[string]any{
	"queries": arr(obj(map[string]any{
		"query_string": str,
		"source_topic": str,
	}, "query_string", "source_topic")),
}, "queries")

var relevanceSchema = obj(map[string]any{
	"paper_id":        str,
	"is_relevant":     boolean,
	"relevance_score": num,
	"justification":   str,
}, "paper_id", "is_relevant", "relevance_score", "justification")

var analysisSchema = obj(map[string]any{
	"research_topic":          str,
	"overall_summary":         str,
	"key_themes":              strArr,
	"common_methodologies":    strArr,
	"identified_limitations":  strArr,
	"future_work_suggestions": strArr,
}, "research_topic", "overall_summary", "key_themes",
	"common_methodologies", "identified_limitations", "future_work_suggestions")

var gapsSchema = obj(map[string]any{
	"gaps": arr(obj(map[string]any{
		"gap_id":                         str,
		"title":                          str,
		"description":                    str,
		"supporting_evidence_summary":    str,
		"keywords":                       strArr,
		"potential_questions_to_explore": strArr,
	}, "gap_id", "title", "description", "supporting_evidence_summary",
		"keywords", "potential_questions_to_explore")),
}, "gaps")

var directionsSchema = obj(map[string]any{
	"directions": arr(obj(map[string]any{
		"direction_id":         str,
		"title":                str,
		"description":          str,
		"rationale":            str,
		"potential_impact":     str,
		"potential_challenges": str,
		"related_gap_ids":      strArr,
	}, "direction_id", "title", "description", "rationale",
		"potential_impact", "potential_challenges", "related_gap_ids")),
}, "directions")
