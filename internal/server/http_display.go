package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayUploadLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                 - Health check")
	fmt.Println("  GET  /stats                  - Server statistics")
	fmt.Println("  POST /cv/modify              - Align an uploaded CV with a job post (LaTeX or PDF)")
	fmt.Println("  POST /cv/modify-json         - Align an uploaded CV with a job post (structured JSON)")
	fmt.Println("  GET  /test-jsearch/          - Raw JSearch posting pass-through")
	fmt.Println("  POST /match-jobs/            - Rank live postings against an uploaded CV")
	fmt.Println("  POST /match-cv-description/  - Score an uploaded CV against a job description")
}

// displayUploadLimitInfo shows upload size limit configuration
func (s *Server) displayUploadLimitInfo() {
	if s.MaxUploadSize > 0 {
		fmt.Printf("Upload size limit: %d bytes (%.1f MB)\n", s.MaxUploadSize, float64(s.MaxUploadSize)/(1024*1024))
	} else {
		fmt.Println("Upload size limit: DISABLED")
		fmt.Println("WARNING: No upload size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min per IP, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
