package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"regulations/backend/internal/model"
	"regulations/backend/internal/workflow"
)

// CO-PO 关联强度
const (
	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelStrong = "STRONG"
)

var mappingLevels = map[string]bool{LevelLow: true, LevelMedium: true, LevelStrong: true}

// 布鲁姆认知层级
var bloomTaxonomy = map[string]bool{
	"REMEMBER":   true,
	"UNDERSTAND": true,
	"APPLY":      true,
	"ANALYSE":    true,
	"EVALUATE":   true,
	"CREATE":     true,
}

// ValidateCourseOutcomes 校验课程目标：描述必填、层级合法、权重和为 1（保留两位小数）
func ValidateCourseOutcomes(outcomes model.CourseOutcomes) []string {
	if len(outcomes) == 0 {
		return []string{"At least one course outcome is required"}
	}

	var msgs []string
	var sum float64
	for _, key := range sortedKeys(outcomes) {
		co := outcomes[key]
		if strings.TrimSpace(key) == "" {
			msgs = append(msgs, "Course outcome key must not be empty")
			continue
		}
		if strings.TrimSpace(co.Description) == "" {
			msgs = append(msgs, fmt.Sprintf("Course outcome %s requires a description", key))
		}
		for _, tag := range co.Taxonomy {
			if !bloomTaxonomy[strings.ToUpper(tag)] {
				msgs = append(msgs, fmt.Sprintf("Course outcome %s has unknown taxonomy level %q", key, tag))
			}
		}
		if co.Weight <= 0 || co.Weight > 1 {
			msgs = append(msgs, fmt.Sprintf("Course outcome %s weight must be greater than 0 and at most 1", key))
		}
		sum += co.Weight
	}

	if rounded := math.Round(sum*100) / 100; rounded != 1 {
		msgs = append(msgs, fmt.Sprintf("Course outcome weights must sum to 1, got %.2f", rounded))
	}
	return msgs
}

// ValidateOutcomeMapping 校验 CO-PO 映射：键均已定义、强度合法；课程须已确认且映射未批准
func ValidateOutcomeMapping(item *model.SchemeItem, scope *model.RegulationProgramme, mapping model.OutcomeMapping) []string {
	var msgs []string

	if item.Status != workflow.StatusConfirmed {
		msgs = append(msgs, fmt.Sprintf("Course %s must be CONFIRMED before its outcome mapping can change", item.Code))
	}
	if item.MappingStatus == workflow.StatusApproved {
		msgs = append(msgs, fmt.Sprintf("Outcome mapping of %s is already APPROVED", item.Code))
	}

	outcomes := item.CourseOutcomes.Data()
	for _, po := range sortedKeys(mapping) {
		if !scope.HasProgrammeOutcome(po) {
			msgs = append(msgs, fmt.Sprintf("Programme outcome %s is not defined for the programme", po))
		}
		row := mapping[po]
		for _, co := range sortedKeys(row) {
			if _, ok := outcomes[co]; !ok {
				msgs = append(msgs, fmt.Sprintf("Course outcome %s is not defined for %s", co, item.Code))
			}
			if !mappingLevels[row[co]] {
				msgs = append(msgs, fmt.Sprintf("Mapping level %q for %s-%s must be one of LOW, MEDIUM, STRONG", row[co], po, co))
			}
		}
	}
	return msgs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
