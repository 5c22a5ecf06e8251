package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepartmentFocus(t *testing.T) {
	tests := []struct {
		department string
		prefix     string
	}{
		{department: "研发部", prefix: "研发"},
		{department: "产品运营室", prefix: "产品："},
		{department: "研发运营组", prefix: "研发"},
		{department: "运营中心", prefix: "产品运营/ERP"},
		{department: "产品室", prefix: "产品："},
		{department: "模型算法室", prefix: "模型算法"},
		{department: "物流组", prefix: "物流"},
		{department: "ERP 支持", prefix: "产品运营/ERP"},
		{department: "pmo", prefix: "计划/PMO"},
		{department: "综合管理", prefix: "管控/管理"},
		{department: "未分类", prefix: "关注年度成果"},
	}

	for _, tt := range tests {
		t.Run(tt.department, func(t *testing.T) {
			assert.Contains(t, DepartmentFocus(tt.department), tt.prefix)
		})
	}
}
