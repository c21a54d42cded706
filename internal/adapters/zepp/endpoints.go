package zepp

// Endpoints holds the base URLs of the remote service's hosts. The backend is
// split across several domains that each own part of the flow; tests point
// these at local servers.
type Endpoints struct {
	// Auth handles the encrypted credential exchange.
	Auth string
	// Account exchanges access codes for login tokens.
	Account string
	// AccountCN issues app tokens from login tokens.
	AccountCN string
	// User hosts registrations and image challenges.
	User string
	// Data accepts activity telemetry uploads.
	Data string
	// Bind drives the messaging-platform binding flow.
	Bind string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:      "https://api-user.zepp.com",
		Account:   "https://account.huami.com",
		AccountCN: "https://account-cn.huami.com",
		User:      "https://api-user.huami.com",
		Data:      "https://api-mifit-cn.huami.com",
		Bind:      "https://weixin.amazfit.com",
	}
}
