//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package postdoc

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
	str    = map[string]any{"type": "string"}
	num    = map[string]any{"type": "number"}
	strArr = arr(str)
)

var noveltySchema = obj(map[string]any{
	"direction_id":            str,
	"novelty_score":           num,
	"novelty_justification":   str,
	"related_work_references": strArr,
}, "direction_id", "novelty_score", "novelty_justification", "related_work_references")

var feasibilitySchema = obj(map[string]any{
	"direction_id":              str,
	"feasibility_score":         num,
	"feasibility_justification": str,
	"identified_challenges":     strArr,
	"suggested_mitigations":     strArr,
}, "direction_id", "feasibility_score", "feasibility_justification",
	"identified_challenges", "suggested_mitigations")

var overallSchema = obj(map[string]any{
	"overall_recommendation_score": num,
	"constructive_critique":        str,
}, "overall_recommendation_score", "constructive_critique")
