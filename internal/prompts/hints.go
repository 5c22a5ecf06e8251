package prompts

import "strings"

// IndustryContext describes the business the reviewed departments serve
const IndustryContext = "部门聚焦钢铁行业解决方案交付，场景涵盖生产、质量、计划、物流、成本、ERP/产品运营等。" +
	"研发包含前端与后端开发；产品为产品经理；模型算法室负责算法赋能；" +
	"质量做钢厂质量分析与质量设计；物流做钢厂物流功能；产品运营室类似 ERP；" +
	"计划做钢厂生产计划；管理层为部门领导与管控。"

const defaultDepartmentFocus = "关注年度成果、工作量、优势、改进点、跨部门支撑与风险。"

type departmentHint struct {
	keywords []string
	focus    string
}

// Matched in order; the first entry with a keyword in the name wins
var departmentHints = []departmentHint{
	{[]string{"研发", "技术", "工程", "开发"}, "研发（前端/后端）：关注架构/核心模块、稳定性/缺陷率、性能指标、交付节奏、复用与技术债务。"},
	{[]string{"产品", "产品经理"}, "产品：关注需求测评、产品路线、共性能力沉淀、业务匹配度、交付与迭代节奏。"},
	{[]string{"模型", "算法"}, "模型算法：关注算法赋能、模型效果/覆盖、数据质量、算力成本、上线与迭代节奏。"},
	{[]string{"质量", "质检", "测试"}, "质量：关注缺陷发现率/漏检率、质量门禁、回归效率、工艺质量设计、风险预警。"},
	{[]string{"物流", "供应链", "仓储"}, "物流：关注交付准确率、响应时效、库存/成本效率、流程优化与数字化。"},
	{[]string{"产品运营", "运营", "erp"}, "产品运营/ERP：关注流程覆盖、上线与运维、用户采用度、效率/成本改进。"},
	{[]string{"计划", "pmo", "项目管理"}, "计划/PMO：关注生产计划/资源调配、里程碑兑现、关键路径、风险管控与协同。"},
	{[]string{"成本", "财务", "绩效"}, "成本/绩效：关注成本节约、ROI、效率提升、财务合规、绩效改进。"},
	{[]string{"管控", "综合管理", "外委", "管理层"}, "管控/管理：关注流程制度、供应商/外协管理、风险与合规、资源统筹、组织保障。"},
}

// DepartmentFocus returns the evaluation focus for a department name
func DepartmentFocus(department string) string {
	name := strings.ToLower(department)
	for _, hint := range departmentHints {
		for _, keyword := range hint.keywords {
			if strings.Contains(name, keyword) {
				return hint.focus
			}
		}
	}
	return defaultDepartmentFocus
}
