package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcoord/core"
)

// Default advisor agent types.
const (
	TypeGrowthAdvisor        = "growth_advisor"
	TypeBusinessAdvisor      = "business_advisor"
	TypeContentAdvisor       = "content_advisor"
	TypeAnalyticsAdvisor     = "analytics_advisor"
	TypeCollaborationAdvisor = "collaboration_advisor"
	TypePricingAdvisor       = "pricing_advisor"
	TypePlatformAdvisor      = "platform_advisor"
	TypeComplianceAdvisor    = "compliance_advisor"
	TypeEngagementAdvisor    = "engagement_advisor"
	TypeOptimizationAdvisor  = "optimization_advisor"
)

var defaultRoster = []struct {
	agentType string
	caps      []core.Capability
}{
	{TypeGrowthAdvisor, []core.Capability{core.CapContentStrategy, core.CapAudienceAnalysis, core.CapPlatformOptimization, core.CapEngagementTactics, core.CapGrowthMetrics, core.CapTrendIdentification}},
	{TypeBusinessAdvisor, []core.Capability{core.CapMarketResearch, core.CapPartnershipOpportunity, core.CapBrandStrategy, core.CapRevenueOptimization, core.CapBusinessPlanning, core.CapCompetitiveAnalysis}},
	{TypeContentAdvisor, []core.Capability{core.CapContentPlanning, core.CapTrendAnalysis, core.CapCreativeDirection, core.CapPublishingSchedule, core.CapContentOptimization, core.CapStorytelling}},
	{TypeAnalyticsAdvisor, []core.Capability{core.CapPerformanceAnalysis, core.CapDataInterpretation, core.CapKPITracking, core.CapOptimizationRecommend, core.CapReporting, core.CapPredictiveAnalytics}},
	{TypeCollaborationAdvisor, []core.Capability{core.CapPartnershipMatching, core.CapCampaignCoordination, core.CapCommunicationFacilitate, core.CapProjectManagement, core.CapContractNegotiation, core.CapRelationshipBuilding}},
	{TypePricingAdvisor, []core.Capability{core.CapMarketRateAnalysis, core.CapPricingStrategy, core.CapValueProposition, core.CapNegotiationSupport, core.CapPricingOptimization, core.CapRevenueMaximization}},
	{TypePlatformAdvisor, []core.Capability{core.CapInstagramOptimization, core.CapTikTokStrategy, core.CapYouTubeManagement, core.CapCrossPlatformSynergy, core.CapPlatformAlgorithms, core.CapFeatureOptimization}},
	{TypeComplianceAdvisor, []core.Capability{core.CapContentModeration, core.CapBrandGuidelines, core.CapRegulatoryCompliance, core.CapRiskAssessment, core.CapPolicyEnforcement, core.CapLegalGuidance}},
	{TypeEngagementAdvisor, []core.Capability{core.CapAudienceInteraction, core.CapCommunityBuilding, core.CapFeedbackManagement, core.CapRelationshipNurturing, core.CapEngagementStrategies, core.CapCommunityModeration}},
	{TypeOptimizationAdvisor, []core.Capability{core.CapCampaignOptimization, core.CapROIAnalysis, core.CapABTesting, core.CapPerformanceForecasting, core.CapEfficiencyImprovement, core.CapResourceOptimization}},
}

// DefaultAgents returns the ten default advisor agents, active and without ids.
func DefaultAgents() []core.Agent {
	out := make([]core.Agent, 0, len(defaultRoster))
	for _, r := range defaultRoster {
		out = append(out, core.Agent{
			Name:         displayName(r.agentType),
			Type:         r.agentType,
			Capabilities: core.NewCapabilitySet(r.caps...),
			Status:       core.AgentActive,
			IsActive:     true,
		})
	}
	return out
}

// displayName turns "growth_advisor" into "Growth Advisor".
func displayName(agentType string) string {
	parts := strings.Split(agentType, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// Seed registers every default agent whose type is not yet present in reg.
// It returns the number of agents registered.
func Seed(ctx context.Context, reg core.AgentRegistry, w AgentWriter) (int, error) {
	existing, err := reg.ListAgents(ctx, core.AgentFilter{IncludeInactive: true})
	if err != nil {
		return 0, fmt.Errorf("seed: list agents: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, a := range existing {
		present[a.Type] = true
	}

	n := 0
	for _, a := range DefaultAgents() {
		if present[a.Type] {
			continue
		}
		if _, err := w.Register(ctx, a); err != nil {
			return n, fmt.Errorf("seed: register %s: %w", a.Type, err)
		}
		n++
	}
	return n, nil
}
