package service

import (
	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
)

func toSchemeItemResponse(item *model.SchemeItem) *dto.SchemeItemResponse {
	resp := &dto.SchemeItemResponse{
		ID:                  item.SchemeItemID,
		RegulationID:        item.RegulationID,
		ProgrammeID:         item.ProgrammeID,
		Semester:            item.Semester,
		Code:                item.Code,
		Name:                item.Name,
		Category:            item.Category,
		Type:                item.Type,
		CreditPatternID:     item.CreditPatternID,
		EvaluationPatternID: item.EvaluationPatternID,
		Prerequisites:       []string(item.Prerequisites),
		IsVertical:          item.IsVertical,
		VerticalName:        item.VerticalName,
		IsPlaceholder:       item.IsPlaceholder,
		IsOneYear:           item.IsOneYear,
		Status:              item.Status,
		StatusReason:        item.StatusReason,
		MappingStatus:       item.MappingStatus,
		MappingReason:       item.MappingReason,
		CourseOutcomes:      make(map[string]dto.CourseOutcomeInput),
		OutcomeMapping:      item.OutcomeMapping.Data(),
		Version:             item.Version,
		UpdatedAt:           item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if resp.Prerequisites == nil {
		resp.Prerequisites = []string{}
	}
	if resp.OutcomeMapping == nil {
		resp.OutcomeMapping = map[string]map[string]string{}
	}
	for key, co := range item.CourseOutcomes.Data() {
		resp.CourseOutcomes[key] = dto.CourseOutcomeInput{
			Description: co.Description,
			Taxonomy:    co.Taxonomy,
			Weight:      co.Weight,
		}
	}

	if item.OfferingDepartment != nil {
		resp.OfferingDepartment = &dto.DepartmentResponse{
			ID:       item.OfferingDepartment.DepartmentID,
			Name:     item.OfferingDepartment.Name,
			Category: item.OfferingDepartment.Category,
		}
	} else if item.OfferingDepartmentID != nil {
		resp.OfferingDepartment = &dto.DepartmentResponse{ID: *item.OfferingDepartmentID}
	}
	return resp
}

func toScopeResponse(rp *model.RegulationProgramme) *dto.ScopeResponse {
	frozen := []int(rp.FrozenSemesters)
	if frozen == nil {
		frozen = []int{}
	}
	return &dto.ScopeResponse{
		RegulationID:      rp.RegulationID,
		ProgrammeID:       rp.ProgrammeID,
		Verticals:         []string(rp.Verticals),
		ProgrammeOutcomes: []string(rp.ProgrammeOutcomes),
		FrozenSemesters:   frozen,
	}
}
