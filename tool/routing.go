package tool

import "maps"

// Server family names.
const (
	ServerDuckDuckGo = "duckduckgo-search"
	ServerWebSearch  = "web-search-tools"
	ServerTwitter    = "twitter-tools"
	ServerInstagram  = "instagram-tools"
	ServerYouTube    = "youtube-tools"
	ServerTikTok     = "tiktok-tools"
	ServerFacebook   = "facebook-tools"
	ServerLinkedIn   = "linkedin-tools"
)

// DefaultServer receives every tool missing from the routing table.
const DefaultServer = ServerDuckDuckGo

var defaultRoutes = map[string]string{
	"duckduckgo_search_web":         ServerDuckDuckGo,
	"duckduckgo_get_instant_answer": ServerDuckDuckGo,
	"duckduckgo_search_news":        ServerDuckDuckGo,
	"duckduckgo_search_images":      ServerDuckDuckGo,
	"duckduckgo_search_videos":      ServerDuckDuckGo,

	"search_trends":      ServerWebSearch,
	"search_influencers": ServerWebSearch,
	"search_content":     ServerWebSearch,
	"search_hashtags":    ServerWebSearch,
	"search_web":         ServerWebSearch,

	"search_twitter_trends":  ServerTwitter,
	"get_instagram_insights": ServerInstagram,
	"get_youtube_analytics":  ServerYouTube,
	"get_tiktok_analytics":   ServerTikTok,
	"get_facebook_insights":  ServerFacebook,
	"get_linkedin_analytics": ServerLinkedIn,
}

// Router maps tool names to server families. It is immutable after
// construction and safe for concurrent use.
type Router struct {
	routes   map[string]string
	fallback string
}

// NewRouter builds a router from the built-in table; overrides replace or
// extend individual entries.
func NewRouter(overrides map[string]string) *Router {
	routes := maps.Clone(defaultRoutes)
	for name, server := range overrides {
		if server == "" {
			delete(routes, name)
			continue
		}
		routes[name] = server
	}
	return &Router{routes: routes, fallback: DefaultServer}
}

// Route returns the server family hosting name.
func (r *Router) Route(name string) string {
	if server, ok := r.routes[name]; ok {
		return server
	}
	return r.fallback
}

// Routes returns a copy of the routing table.
func (r *Router) Routes() map[string]string {
	return maps.Clone(r.routes)
}
