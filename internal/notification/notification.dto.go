package notification

import "strings"

var platforms = map[string]bool{"ios": true, "android": true, "web": true}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Valid requires a token and one of ios, android or web. An empty platform
// is treated as android, matching older app builds.
func (r *RegisterDeviceRequest) Valid() bool {
	r.Token = strings.TrimSpace(r.Token)
	r.Platform = strings.ToLower(strings.TrimSpace(r.Platform))
	if r.Platform == "" {
		r.Platform = "android"
	}
	return r.Token != "" && platforms[r.Platform]
}
