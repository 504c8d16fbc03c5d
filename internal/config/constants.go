package config

// Application constants
const (
	AppName = "Merchandise Trade Intelligence Dashboard"

	DefaultConfigFile    = "config.yaml"
	DefaultPort          = 8050
	DefaultSessionCookie = "mtid_session"

	DefaultFormalPath   = "data/formal_trade.csv"
	DefaultInformalPath = "data/informal_trade.csv"
)
