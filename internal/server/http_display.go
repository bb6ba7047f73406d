package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
	s.displayCacheInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                  - Health check")
	fmt.Println("  GET    /stats                   - Server statistics")
	fmt.Println("  POST   /job-descriptions        - Register a job description")
	fmt.Println("  GET    /job-descriptions[/{id}] - List or fetch job descriptions")
	fmt.Println("  POST   /personas/generate       - Generate a persona from a job description")
	fmt.Println("  POST   /personas/validate       - Validate persona weights")
	fmt.Println("  POST   /personas                - Save a new persona")
	fmt.Println("  GET    /personas[/{id}]         - List or fetch saved personas")
	fmt.Println("  PUT    /personas/{id}           - Update a saved persona")
	fmt.Println("  DELETE /personas/{id}           - Delete a saved persona")
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /job-descriptions and /personas")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}

func (s *Server) displayCacheInfo() {
	if s.Cache == nil {
		fmt.Println("Generation cache: DISABLED")
		return
	}
	fmt.Printf("Generation cache: ENABLED (ttl %s)\n", s.Cache.ttl)
}
