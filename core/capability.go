package core

import (
	"encoding/json"
	"sort"
)

// Capability is a typed capability tag carried by an agent.
type Capability string

// Known capability tags. The set mirrors the default advisor roster.
const (
	CapContentStrategy      Capability = "content_strategy"
	CapAudienceAnalysis     Capability = "audience_analysis"
	CapPlatformOptimization Capability = "platform_optimization"
	CapEngagementTactics    Capability = "engagement_tactics"
	CapGrowthMetrics        Capability = "growth_metrics"
	CapTrendIdentification  Capability = "trend_identification"

	// CapAnalysis is the general analysis tag used as a selection hint.
	CapAnalysis Capability = "analysis"

	CapMarketResearch          Capability = "market_research"
	CapPartnershipOpportunity  Capability = "partnership_opportunities"
	CapBrandStrategy           Capability = "brand_strategy"
	CapRevenueOptimization     Capability = "revenue_optimization"
	CapBusinessPlanning        Capability = "business_planning"
	CapCompetitiveAnalysis     Capability = "competitive_analysis"
	CapContentPlanning         Capability = "content_planning"
	CapTrendAnalysis           Capability = "trend_analysis"
	CapCreativeDirection       Capability = "creative_direction"
	CapPublishingSchedule      Capability = "publishing_schedule"
	CapContentOptimization     Capability = "content_optimization"
	CapStorytelling            Capability = "storytelling"
	CapPerformanceAnalysis     Capability = "performance_analysis"
	CapDataInterpretation      Capability = "data_interpretation"
	CapKPITracking             Capability = "kpi_tracking"
	CapOptimizationRecommend   Capability = "optimization_recommendations"
	CapReporting               Capability = "reporting"
	CapPredictiveAnalytics     Capability = "predictive_analytics"
	CapPartnershipMatching     Capability = "partnership_matching"
	CapCampaignCoordination    Capability = "campaign_coordination"
	CapCommunicationFacilitate Capability = "communication_facilitation"
	CapProjectManagement       Capability = "project_management"
	CapContractNegotiation     Capability = "contract_negotiation"
	CapRelationshipBuilding    Capability = "relationship_building"
	CapMarketRateAnalysis      Capability = "market_rate_analysis"
	CapPricingStrategy         Capability = "pricing_strategy"
	CapValueProposition        Capability = "value_proposition"
	CapNegotiationSupport      Capability = "negotiation_support"
	CapPricingOptimization     Capability = "pricing_optimization"
	CapRevenueMaximization     Capability = "revenue_maximization"
	CapInstagramOptimization   Capability = "instagram_optimization"
	CapTikTokStrategy          Capability = "tiktok_strategy"
	CapYouTubeManagement       Capability = "youtube_management"
	CapCrossPlatformSynergy    Capability = "cross_platform_synergy"
	CapPlatformAlgorithms      Capability = "platform_algorithms"
	CapFeatureOptimization     Capability = "feature_optimization"
	CapContentModeration       Capability = "content_moderation"
	CapBrandGuidelines         Capability = "brand_guidelines"
	CapRegulatoryCompliance    Capability = "regulatory_compliance"
	CapRiskAssessment          Capability = "risk_assessment"
	CapPolicyEnforcement       Capability = "policy_enforcement"
	CapLegalGuidance           Capability = "legal_guidance"
	CapAudienceInteraction     Capability = "audience_interaction"
	CapCommunityBuilding       Capability = "community_building"
	CapFeedbackManagement      Capability = "feedback_management"
	CapRelationshipNurturing   Capability = "relationship_nurturing"
	CapEngagementStrategies    Capability = "engagement_strategies"
	CapCommunityModeration     Capability = "community_moderation"
	CapCampaignOptimization    Capability = "campaign_optimization"
	CapROIAnalysis             Capability = "roi_analysis"
	CapABTesting               Capability = "a_b_testing"
	CapPerformanceForecasting  Capability = "performance_forecasting"
	CapEfficiencyImprovement   Capability = "efficiency_improvement"
	CapResourceOptimization    Capability = "resource_optimization"
)

// KnownCapabilities is the registry of valid capability tags.
var KnownCapabilities = map[Capability]struct{}{}

func init() {
	for _, c := range []Capability{
		CapContentStrategy, CapAudienceAnalysis, CapPlatformOptimization, CapEngagementTactics,
		CapGrowthMetrics, CapTrendIdentification, CapMarketResearch, CapPartnershipOpportunity,
		CapBrandStrategy, CapRevenueOptimization, CapBusinessPlanning, CapCompetitiveAnalysis,
		CapContentPlanning, CapTrendAnalysis, CapCreativeDirection, CapPublishingSchedule,
		CapContentOptimization, CapStorytelling, CapPerformanceAnalysis, CapDataInterpretation,
		CapKPITracking, CapOptimizationRecommend, CapReporting, CapPredictiveAnalytics,
		CapPartnershipMatching, CapCampaignCoordination, CapCommunicationFacilitate, CapProjectManagement,
		CapContractNegotiation, CapRelationshipBuilding, CapMarketRateAnalysis, CapPricingStrategy,
		CapValueProposition, CapNegotiationSupport, CapPricingOptimization, CapRevenueMaximization,
		CapInstagramOptimization, CapTikTokStrategy, CapYouTubeManagement, CapCrossPlatformSynergy,
		CapPlatformAlgorithms, CapFeatureOptimization, CapContentModeration, CapBrandGuidelines,
		CapRegulatoryCompliance, CapRiskAssessment, CapPolicyEnforcement, CapLegalGuidance,
		CapAudienceInteraction, CapCommunityBuilding, CapFeedbackManagement, CapRelationshipNurturing,
		CapEngagementStrategies, CapCommunityModeration, CapCampaignOptimization, CapROIAnalysis,
		CapABTesting, CapPerformanceForecasting, CapEfficiencyImprovement, CapResourceOptimization,
		CapAnalysis,
	} {
		KnownCapabilities[c] = struct{}{}
	}
}

// IsKnown reports whether c is a registered capability tag.
func (c Capability) IsKnown() bool {
	_, ok := KnownCapabilities[c]
	return ok
}

// ValidateQuery rejects an unknown tag used as a query filter. The empty
// capability means no filter and is valid.
func (c Capability) ValidateQuery() error {
	if c == "" || c.IsKnown() {
		return nil
	}
	return NewValidationError("capability", string(c), "unknown capability")
}

// CapabilitySet is the set of capabilities enabled on an agent.
// The JSON form is the historical string→bool map.
type CapabilitySet map[Capability]bool

// NewCapabilitySet builds a set with every given capability enabled.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = true
	}
	return s
}

// ParseCapabilities converts a raw capability map, rejecting unknown tags.
func ParseCapabilities(raw map[string]bool) (CapabilitySet, error) {
	return DecodeCapabilities(raw, false)
}

// DecodeCapabilities converts a raw capability map. In lenient mode unknown
// tags are kept so that rows written by newer deployments remain readable.
func DecodeCapabilities(raw map[string]bool, lenient bool) (CapabilitySet, error) {
	s := make(CapabilitySet, len(raw))
	for k, v := range raw {
		c := Capability(k)
		if !lenient && !c.IsKnown() {
			return nil, NewValidationError("capabilities", k, "unknown capability")
		}
		s[c] = v
	}
	return s, nil
}

// Has reports whether c is present and enabled.
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// Enabled returns the enabled capabilities in sorted order.
func (s CapabilitySet) Enabled() []Capability {
	out := make([]Capability, 0, len(s))
	for c, on := range s {
		if on {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the enabled capability names in sorted order.
func (s CapabilitySet) Strings() []string {
	enabled := s.Enabled()
	out := make([]string, len(enabled))
	for i, c := range enabled {
		out[i] = string(c)
	}
	return out
}

// Clone returns an independent copy.
func (s CapabilitySet) Clone() CapabilitySet {
	if s == nil {
		return nil
	}
	out := make(CapabilitySet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Raw returns the string→bool representation used for storage.
func (s CapabilitySet) Raw() map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return out
}

// MarshalJSON encodes the set as a plain object.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw())
}

// UnmarshalJSON decodes leniently; validation happens at the registry boundary.
func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, _ := DecodeCapabilities(raw, true)
	*s = set
	return nil
}
