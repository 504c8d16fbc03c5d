// Package config loads the dashboard configuration.
//
// Values are resolved in this order, later sources winning:
//
//	1. Default()
//	2. the YAML file named by MTID_CONFIG_FILE (config.yaml when unset)
//	3. environment variables, after a .env file in the working directory
//
// Environment variables follow the struct layout under the MTID prefix:
//
//	MTID_SERVER_PORT=8050
//	MTID_DATA_FORMAL_PATH=data/formal_trade.xlsx
//	MTID_LOGGING_LEVEL=debug
//	MTID_CHAT_ENDPOINT=http://localhost:11434/v1/chat/completions
//
// Load validates the result; an invalid configuration is an error.
package config
