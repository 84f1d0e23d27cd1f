package dto

// DepartmentResponse 开课部门，按 (name, category) 唯一定位
type DepartmentResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationRequest 列表分页参数（page 从 1 开始）
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p *PaginationRequest) GetPage() int {
	return max(p.Page, 1)
}

// GetPageSize 未传时取默认值，超过上限时截断
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	return min(p.PageSize, maxPageSize)
}

func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
