// Package publicsvc implements the unauthenticated discovery endpoint a
// client calls before it knows which auth mode the server accepts. It never
// touches the database — everything it reports comes straight off the
// already-loaded config.
package publicsvc

// AuthModes lists which credential kinds the server currently accepts.
type AuthModes struct {
	APIKey      bool `json:"api_key"`
	DeviceToken bool `json:"device_token"`
	UserSession bool `json:"user_session"`
	OIDC        bool `json:"oidc"`
}

// Features mirrors the subset of config.Config's feature flags clients need
// to decide which route subtrees are reachable.
type Features struct {
	Webhooks   bool `json:"webhooks"`
	Enrollment bool `json:"enrollment"`
	Reports    bool `json:"reports"`
}

// Response is the JSON body for GET /api/v1/config/public.
type Response struct {
	AuthModes AuthModes `json:"auth_modes"`
	Features  Features  `json:"features"`
}
