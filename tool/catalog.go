package tool

import (
	"slices"
	"sync"
)

type searchArgs struct {
	Query     string `json:"query" description:"Search query"`
	Timeframe string `json:"timeframe,omitempty" description:"Time window such as 24h, 7d or 30d"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of results"`
}

type platformSearchArgs struct {
	Query    string `json:"query" description:"Search query"`
	Platform string `json:"platform,omitempty" description:"Platform filter" enum:"all,instagram,tiktok,youtube,twitter,facebook,linkedin"`
	Limit    int    `json:"limit,omitempty" description:"Maximum number of results"`
}

type webSearchArgs struct {
	Query      string `json:"query" description:"Search query"`
	MaxResults int    `json:"max_results,omitempty" description:"Maximum number of results"`
	Region     string `json:"region,omitempty" description:"Region code such as us-en"`
}

type accountArgs struct {
	Account string `json:"account" description:"Account handle or id"`
	Period  string `json:"period,omitempty" description:"Reporting period such as 7d or 30d"`
}

// Agent types that additionally receive platform analytics tools.
var platformAgentTypes = []string{"platform_advisor", "analytics_advisor"}

var baseTools = []Descriptor{
	{Name: "search_trends", Description: "Search trending topics and hashtags", Parameters: CreateSchema(searchArgs{})},
	{Name: "search_influencers", Description: "Search influencer profiles and engagement metrics", Parameters: CreateSchema(platformSearchArgs{})},
	{Name: "search_content", Description: "Search content strategies and examples", Parameters: CreateSchema(platformSearchArgs{})},
	{Name: "search_hashtags", Description: "Search trending hashtags with engagement data", Parameters: CreateSchema(platformSearchArgs{})},
	{Name: "duckduckgo_search_web", Description: "Search the web for current information", Parameters: CreateSchema(webSearchArgs{})},
}

var platformTools = []Descriptor{
	{Name: "get_instagram_insights", Description: "Fetch Instagram account insights", Parameters: CreateSchema(accountArgs{})},
	{Name: "get_youtube_analytics", Description: "Fetch YouTube channel analytics", Parameters: CreateSchema(accountArgs{})},
	{Name: "get_tiktok_analytics", Description: "Fetch TikTok account analytics", Parameters: CreateSchema(accountArgs{})},
	{Name: "search_twitter_trends", Description: "Search current Twitter trends", Parameters: CreateSchema(searchArgs{})},
}

// Catalog holds the tool descriptors known to the gateway and decides which of
// them each agent type may use.
type Catalog struct {
	mu      sync.RWMutex
	byName  map[string]Descriptor
	base    []string
	byAgent map[string][]string
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	c := &Catalog{
		byName:  make(map[string]Descriptor),
		byAgent: make(map[string][]string),
	}
	for _, d := range baseTools {
		c.byName[d.Name] = d
		c.base = append(c.base, d.Name)
	}
	for _, d := range platformTools {
		c.byName[d.Name] = d
	}
	for _, agentType := range platformAgentTypes {
		for _, d := range platformTools {
			c.byAgent[agentType] = append(c.byAgent[agentType], d.Name)
		}
	}
	return c
}

// Register adds or replaces a descriptor. With agent types it becomes
// available to those types only; without, to every agent type.
func (c *Catalog) Register(d Descriptor, agentTypes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.byName[d.Name]
	c.byName[d.Name] = d
	if existed {
		return
	}
	if len(agentTypes) == 0 {
		c.base = append(c.base, d.Name)
		return
	}
	for _, t := range agentTypes {
		c.byAgent[t] = append(c.byAgent[t], d.Name)
	}
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byName[name]
	return d, ok
}

// ForAgentType returns the descriptors available to agentType, base tools
// first.
func (c *Catalog) ForAgentType(agentType string) []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := slices.Concat(c.base, c.byAgent[agentType])
	out := make([]Descriptor, 0, len(names))
	for _, n := range names {
		out = append(out, c.byName[n])
	}
	return out
}
