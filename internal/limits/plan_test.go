package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quotahub/saas-auth-api/internal/model"
)

func TestForPlan(t *testing.T) {
	tests := []struct {
		plan string
		want PlanLimits
	}{
		{model.PlanFree, PlanLimits{RequestsPerMinute: 60, MonthlyQuota: 1000}},
		{model.PlanPro, PlanLimits{RequestsPerMinute: 300, MonthlyQuota: 10000}},
		{"", PlanLimits{RequestsPerMinute: 60, MonthlyQuota: 1000}},
		{"ENTERPRISE", PlanLimits{RequestsPerMinute: 60, MonthlyQuota: 1000}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForPlan(tt.plan), "plan=%q", tt.plan)
	}
}
